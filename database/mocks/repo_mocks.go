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
package mocks

import (
	"context"
	"time"

	"github.com/blnkfinance/bankcore/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Account methods

func (m *MockDataSource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDataSource) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

// Ledger methods

func (m *MockDataSource) RecordTransaction(ctx context.Context, txn *model.Transaction, entry *model.QueueEntry) error {
	args := m.Called(ctx, txn, entry)
	return args.Error(0)
}

func (m *MockDataSource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransactionHistory(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) {
	args := m.Called(ctx, accountID, limit)
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *MockDataSource) QueuedEntries(ctx context.Context) ([]model.QueueEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.QueueEntry), args.Error(1)
}

func (m *MockDataSource) ClaimEntry(ctx context.Context, transactionID string) (bool, error) {
	args := m.Called(ctx, transactionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) FinishEntry(ctx context.Context, transactionID string, status model.QueueStatus) error {
	args := m.Called(ctx, transactionID, status)
	return args.Error(0)
}

func (m *MockDataSource) UpdateQueuePriority(ctx context.Context, transactionID string, priority int) error {
	args := m.Called(ctx, transactionID, priority)
	return args.Error(0)
}

func (m *MockDataSource) DebitTotalSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// Transfer methods

func (m *MockDataSource) RecordTransfer(ctx context.Context, outgoing, incoming model.Transfer) error {
	args := m.Called(ctx, outgoing, incoming)
	return args.Error(0)
}

func (m *MockDataSource) GetTransferHistory(ctx context.Context, accountID string, limit int) ([]model.Transfer, error) {
	args := m.Called(ctx, accountID, limit)
	return args.Get(0).([]model.Transfer), args.Error(1)
}
