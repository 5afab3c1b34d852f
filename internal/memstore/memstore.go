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

// Package memstore is an in-process implementation of database.IDataSource.
// It backs the "memory" driver and the tests of the processing core.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/blnkfinance/bankcore/database"
	"github.com/blnkfinance/bankcore/internal/apierror"
	"github.com/blnkfinance/bankcore/model"
)

var _ database.IDataSource = (*Store)(nil)

// Store keeps every table in maps guarded by one mutex. Each method is
// atomic with respect to the others.
type Store struct {
	mu           sync.Mutex
	accounts     map[string]*model.Account
	transactions map[string]*model.Transaction
	order        []string
	queue        map[string]*model.QueueEntry
	transfers    []model.Transfer
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]*model.Account),
		transactions: make(map[string]*model.Transaction),
		queue:        make(map[string]*model.QueueEntry),
	}
}

func (s *Store) CreateAccount(_ context.Context, account model.Account) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.AccountID == "" {
		account.AccountID = model.GenerateUUIDWithSuffix("acc")
	}
	if _, ok := s.accounts[account.AccountID]; ok {
		return account, apierror.NewAPIError(apierror.ErrConflict, "account already exists", nil)
	}
	account.CreatedAt = time.Now().UTC()
	stored := account
	s.accounts[account.AccountID] = &stored
	return account, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, errors.Wrapf(database.ErrAccountNotFound, "account %s", id)
	}
	cp := *account
	return &cp, nil
}

func (s *Store) GetBalance(_ context.Context, id string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, errors.Wrapf(database.ErrAccountNotFound, "account %s", id)
	}
	return account.Balance, nil
}

func (s *Store) AdjustBalance(_ context.Context, id string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return errors.Wrapf(database.ErrAccountNotFound, "account %s", id)
	}
	account.Balance = account.Balance.Add(delta)
	return nil
}

func (s *Store) RecordTransaction(_ context.Context, txn *model.Transaction, entry *model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[txn.TransactionID]; ok {
		return apierror.NewAPIError(apierror.ErrConflict, "transaction already exists", nil)
	}
	t, e := *txn, *entry
	s.transactions[t.TransactionID] = &t
	s.queue[e.TransactionID] = &e
	s.order = append(s.order, t.TransactionID)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[id]
	if !ok {
		return nil, errors.Wrapf(database.ErrTransactionNotFound, "transaction %s", id)
	}
	cp := *txn
	return &cp, nil
}

// GetTransactionHistory walks insertion order backwards, which is newest
// first even when CreatedAt values collide.
func (s *Store) GetTransactionHistory(_ context.Context, accountID string, limit int) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []model.Transaction
	for i := len(s.order) - 1; i >= 0 && len(history) < limit; i-- {
		txn := s.transactions[s.order[i]]
		if txn.AccountID == accountID {
			history = append(history, *txn)
		}
	}
	return history, nil
}

func (s *Store) QueuedEntries(_ context.Context) ([]model.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []model.QueueEntry
	for _, e := range s.queue {
		if e.Status == model.QueueQueued {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Before(entries[j]) })
	return entries, nil
}

func (s *Store) ClaimEntry(_ context.Context, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.queue[transactionID]
	if !ok || e.Status != model.QueueQueued {
		return false, nil
	}
	e.Status = model.QueueProcessing
	if txn, ok := s.transactions[transactionID]; ok {
		txn.Status = model.TransactionProcessing
	}
	return true, nil
}

func (s *Store) FinishEntry(_ context.Context, transactionID string, status model.QueueStatus) error {
	if !status.IsTerminal() {
		return errors.Errorf("status %s is not terminal", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.queue[transactionID]; ok && e.Status == model.QueueProcessing {
		e.Status = status
	}
	if txn, ok := s.transactions[transactionID]; ok {
		txn.Status = status.TransactionStatus()
	}
	return nil
}

func (s *Store) UpdateQueuePriority(_ context.Context, transactionID string, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.queue[transactionID]
	if !ok || e.Status != model.QueueQueued {
		return errors.Wrapf(database.ErrEntryNotQueued, "transaction %s", transactionID)
	}
	e.Priority = priority
	return nil
}

func (s *Store) DebitTotalSince(_ context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, txn := range s.transactions {
		if debit, _ := txn.Parties(); debit != accountID || txn.Status == model.TransactionFailed {
			continue
		}
		if txn.CreatedAt.Before(since) {
			continue
		}
		total = total.Add(txn.Amount)
	}
	for _, t := range s.transfers {
		// Rows of queued transfers are already counted above.
		if _, queued := s.transactions[t.TransferID]; queued {
			continue
		}
		if t.AccountID == accountID && t.Direction == model.DirectionOutgoing && !t.CreatedAt.Before(since) {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func (s *Store) RecordTransfer(_ context.Context, outgoing, incoming model.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transfers = append(s.transfers, outgoing, incoming)
	return nil
}

func (s *Store) GetTransferHistory(_ context.Context, accountID string, limit int) ([]model.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []model.Transfer
	for i := len(s.transfers) - 1; i >= 0 && len(history) < limit; i-- {
		if s.transfers[i].AccountID == accountID {
			history = append(history, s.transfers[i])
		}
	}
	return history, nil
}
