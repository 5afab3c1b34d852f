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

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix,
// e.g. "txn_1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// Account is a customer account as seen by the processing core.
// Number is assigned by the caller; the core never generates it.
type Account struct {
	AccountID string          `json:"account_id"`
	Number    string          `json:"number"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// Transfer is one side of a completed transfer, kept for history queries.
type Transfer struct {
	TransferID     string            `json:"transfer_id"`
	AccountID      string            `json:"account_id"`
	CounterpartyID string            `json:"counterparty_id"`
	Direction      TransferDirection `json:"direction"`
	Amount         decimal.Decimal   `json:"amount"`
	Description    string            `json:"description"`
	CreatedAt      time.Time         `json:"created_at"`
}

type TransferDirection string

const (
	DirectionOutgoing TransferDirection = "OUTGOING"
	DirectionIncoming TransferDirection = "INCOMING"
)

// ResourceSnapshot is the input of a Banker's algorithm safety check.
// MaxDemand and Allocated are indexed [process][resource].
type ResourceSnapshot struct {
	Available []int   `json:"available"`
	MaxDemand [][]int `json:"max_demand"`
	Allocated [][]int `json:"allocated"`
}

// Processes returns the number of processes in the snapshot.
func (s ResourceSnapshot) Processes() int {
	return len(s.MaxDemand)
}

// Need returns the remaining demand of process i.
func (s ResourceSnapshot) Need(i int) []int {
	need := make([]int, len(s.Available))
	for r := range need {
		need[r] = s.MaxDemand[i][r] - s.Allocated[i][r]
	}
	return need
}
