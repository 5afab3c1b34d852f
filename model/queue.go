/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import "time"

const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

type QueueStatus string

const (
	QueueQueued     QueueStatus = "QUEUED"
	QueueProcessing QueueStatus = "PROCESSING"
	QueueCompleted  QueueStatus = "COMPLETED"
	QueueFailed     QueueStatus = "FAILED"
)

func (s QueueStatus) Valid() bool {
	switch s {
	case QueueQueued, QueueProcessing, QueueCompleted, QueueFailed:
		return true
	}
	return false
}

func (s QueueStatus) IsTerminal() bool {
	return s == QueueCompleted || s == QueueFailed
}

// TransactionStatus returns the transaction status a queue entry in this
// state must be mirrored by.
func (s QueueStatus) TransactionStatus() TransactionStatus {
	switch s {
	case QueueProcessing:
		return TransactionProcessing
	case QueueCompleted:
		return TransactionCompleted
	case QueueFailed:
		return TransactionFailed
	}
	return TransactionPending
}

// QueueEntry is the pending-work record of a Transaction.
// Seq is a strictly increasing logical clock assigned at enqueue time; it
// orders entries whose AddedAt values compare equal.
type QueueEntry struct {
	TransactionID string      `json:"transaction_id"`
	AccountID     string      `json:"account_id"`
	Priority      int         `json:"priority"`
	Status        QueueStatus `json:"status"`
	AddedAt       time.Time   `json:"added_at"`
	Seq           int64       `json:"seq"`
}

// Before reports whether e arrived before other.
func (e QueueEntry) Before(other QueueEntry) bool {
	if !e.AddedAt.Equal(other.AddedAt) {
		return e.AddedAt.Before(other.AddedAt)
	}
	return e.Seq < other.Seq
}

func ValidPriority(p int) bool {
	return p >= MinPriority && p <= MaxPriority
}
