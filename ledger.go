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

package bankcore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blnkfinance/bankcore/database"
	"github.com/blnkfinance/bankcore/internal/apierror"
	"github.com/blnkfinance/bankcore/internal/cache"
	"github.com/blnkfinance/bankcore/internal/events"
	"github.com/blnkfinance/bankcore/internal/lock"
	"github.com/blnkfinance/bankcore/model"
)

const (
	defaultHistoryLimit = 10
	transactionCacheTTL = time.Hour
)

// Ledger records transaction intents together with their queue entries and
// answers history queries.
type Ledger struct {
	datasource      database.IDataSource
	publisher       events.Publisher
	defaultPriority int
	dailyLimit      decimal.Decimal
	now             func() time.Time
	// cache holds finished transactions only; nil disables it.
	cache cache.Cache
	// limits serializes the daily limit check with the write it admits,
	// keyed by the debited account.
	limits *lock.Table

	mu      sync.Mutex
	lastSeq int64
	wake    chan struct{}
}

func newLedger(ds database.IDataSource, publisher events.Publisher, defaultPriority int, dailyLimit decimal.Decimal) *Ledger {
	return &Ledger{
		datasource:      ds,
		publisher:       publisher,
		defaultPriority: defaultPriority,
		dailyLimit:      dailyLimit,
		now:             time.Now,
		limits:          lock.NewTable(),
		wake:            make(chan struct{}, 1),
	}
}

// nextSeq returns a strictly increasing value close to the wall clock in
// nanoseconds.
func (l *Ledger) nextSeq(at time.Time) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	seq := at.UnixNano()
	if seq <= l.lastSeq {
		seq = l.lastSeq + 1
	}
	l.lastSeq = seq
	return seq
}

// Wake is signalled after every successful enqueue.
func (l *Ledger) Wake() <-chan struct{} {
	return l.wake
}

func (l *Ledger) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RecordTransaction validates and enqueues a transaction at the default priority.
func (l *Ledger) RecordTransaction(ctx context.Context, accountID string, txnType model.TransactionType, amount decimal.Decimal, description, relatedAccount string) (string, error) {
	return l.RecordTransactionWithPriority(ctx, accountID, txnType, amount, description, relatedAccount, l.defaultPriority)
}

// RecordTransactionWithPriority validates and enqueues a transaction. The
// transaction row and its queue entry are written in one storage
// transaction.
func (l *Ledger) RecordTransactionWithPriority(ctx context.Context, accountID string, txnType model.TransactionType, amount decimal.Decimal, description, relatedAccount string, priority int) (string, error) {
	ctx, span := tracer.Start(ctx, "Recording transaction")
	defer span.End()

	if err := l.validate(ctx, accountID, txnType, amount, relatedAccount, priority); err != nil {
		span.RecordError(err)
		return "", err
	}

	now := l.now().UTC()
	txn := &model.Transaction{
		TransactionID:  model.GenerateUUIDWithSuffix("txn"),
		AccountID:      accountID,
		Type:           txnType,
		Amount:         amount,
		Description:    description,
		RelatedAccount: relatedAccount,
		Status:         model.TransactionPending,
		CreatedAt:      now,
	}
	if debit, _ := txn.Parties(); debit != "" {
		unlock := l.lockLimit(debit)
		defer unlock()
		if err := l.checkDailyLimit(ctx, debit, amount); err != nil {
			span.RecordError(err)
			return "", err
		}
	}
	entry := &model.QueueEntry{
		TransactionID: txn.TransactionID,
		AccountID:     accountID,
		Priority:      priority,
		Status:        model.QueueQueued,
		AddedAt:       now,
		Seq:           l.nextSeq(now),
	}

	if err := l.datasource.RecordTransaction(ctx, txn, entry); err != nil {
		return "", rejected(logAndRecordError(span, "record transaction error", storageError("failed to record transaction", err)))
	}
	span.SetAttributes(attribute.String("transaction.id", txn.TransactionID))

	l.signal()
	if err := l.publisher.Publish(ctx, events.TransactionQueued, txn); err != nil {
		logrus.Warnf("failed to publish %s event for %s: %v", events.TransactionQueued, txn.TransactionID, err)
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": txn.TransactionID,
		"account_id":     accountID,
		"type":           txnType,
		"priority":       priority,
	}).Info("transaction queued")
	return txn.TransactionID, nil
}

func (l *Ledger) validate(ctx context.Context, accountID string, txnType model.TransactionType, amount decimal.Decimal, relatedAccount string, priority int) error {
	if !amount.IsPositive() {
		return validationError("Transaction amount must be greater than zero")
	}
	if !txnType.Valid() {
		return validationError("unknown transaction type " + string(txnType))
	}
	if !model.ValidPriority(priority) {
		return validationError("priority must be between 1 and 10")
	}
	if txnType.IsTransfer() {
		if relatedAccount == "" {
			return validationError("a transfer needs a related account")
		}
		if relatedAccount == accountID {
			return validationError("Cannot transfer to the same account")
		}
	}

	if _, err := l.datasource.GetAccount(ctx, accountID); err != nil {
		return rejected(storageError("account "+accountID+" not found", err))
	}
	if txnType.IsTransfer() {
		if _, err := l.datasource.GetAccount(ctx, relatedAccount); err != nil {
			return rejected(storageError("related account "+relatedAccount+" not found", err))
		}
	}
	return nil
}

// lockLimit holds the daily limit of an account until the returned func is
// called. Without a limit there is nothing to serialize.
func (l *Ledger) lockLimit(accountID string) func() {
	if !l.dailyLimit.IsPositive() {
		return func() {}
	}
	return l.limits.Lock(accountID)
}

// checkDailyLimit rejects a debit that would take the account's debits since
// local midnight past the configured limit. A zero limit disables the check.
func (l *Ledger) checkDailyLimit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if !l.dailyLimit.IsPositive() {
		return nil
	}
	now := l.now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	spent, err := l.datasource.DebitTotalSince(ctx, accountID, midnight.UTC())
	if err != nil {
		return rejected(storageError("failed to read daily debits", err))
	}
	if spent.Add(amount).GreaterThan(l.dailyLimit) {
		return validationError("Daily transaction limit exceeded")
	}
	return nil
}

// GetTransactionHistory returns the newest transactions of an account first.
func (l *Ledger) GetTransactionHistory(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Fetching transaction history")
	defer span.End()

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	history, err := l.datasource.GetTransactionHistory(ctx, accountID, limit)
	if err != nil {
		return nil, logAndRecordError(span, "transaction history error", storageError("failed to read transaction history", err))
	}
	if history == nil {
		history = []model.Transaction{}
	}
	return history, nil
}

// GetTransaction loads a transaction. Finished transactions never change, so
// they are served from the cache when one is configured.
func (l *Ledger) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	key := "txn:" + id
	if l.cache != nil {
		var cached model.Transaction
		found, err := l.cache.Get(ctx, key, &cached)
		if err != nil {
			logrus.Warnf("transaction cache read failed: %v", err)
		}
		if found && err == nil {
			return &cached, nil
		}
	}

	txn, err := l.datasource.GetTransaction(ctx, id)
	if err != nil {
		return nil, storageError("transaction "+id+" not found", err)
	}

	if l.cache != nil && txn.Status.IsTerminal() {
		if err := l.cache.Set(ctx, key, txn, transactionCacheTTL); err != nil {
			logrus.Warnf("transaction cache write failed: %v", err)
		}
	}
	return txn, nil
}

// UpdatePriority changes the priority of a transaction that is still queued.
func (l *Ledger) UpdatePriority(ctx context.Context, transactionID string, priority int) error {
	if !model.ValidPriority(priority) {
		return validationError("priority must be between 1 and 10")
	}
	err := l.datasource.UpdateQueuePriority(ctx, transactionID, priority)
	if errors.Is(err, database.ErrEntryNotQueued) {
		return apierror.NewAPIError(apierror.ErrConflict, "transaction "+transactionID+" is no longer queued", nil)
	}
	if err != nil {
		return storageError("failed to update priority", err)
	}
	return nil
}

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, ": ", err)
	return err
}
