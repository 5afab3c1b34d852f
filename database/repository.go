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

package database

import (
	"context"
	"time"

	"github.com/blnkfinance/bankcore/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrEntryNotQueued      = errors.New("queue entry is not queued")
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	account  // Interface for account-related operations
	ledger   // Interface for transaction and queue operations
	transfer // Interface for transfer history operations
}

// account defines methods for handling accounts and their balances.
type account interface {
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error) // Creates a new account
	GetAccount(ctx context.Context, id string) (*model.Account, error)               // Retrieves an account by ID
	GetBalance(ctx context.Context, id string) (decimal.Decimal, error)              // Reads the current balance
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error       // Adds delta to the balance in one statement
}

// ledger defines methods for transactions and their queue entries.
type ledger interface {
	RecordTransaction(ctx context.Context, txn *model.Transaction, entry *model.QueueEntry) error        // Inserts a transaction and its queue entry atomically
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)                           // Retrieves a transaction by ID
	GetTransactionHistory(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) // Newest first
	QueuedEntries(ctx context.Context) ([]model.QueueEntry, error)                                       // All entries still QUEUED, oldest first
	ClaimEntry(ctx context.Context, transactionID string) (bool, error)                                  // QUEUED -> PROCESSING, false if already claimed
	FinishEntry(ctx context.Context, transactionID string, status model.QueueStatus) error               // PROCESSING -> COMPLETED|FAILED
	UpdateQueuePriority(ctx context.Context, transactionID string, priority int) error                   // Changes the priority of a QUEUED entry
	DebitTotalSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error)     // Sum of non-failed debits since a point in time
}

// transfer defines methods for transfer history.
type transfer interface {
	RecordTransfer(ctx context.Context, outgoing, incoming model.Transfer) error                   // Records both sides of a completed transfer
	GetTransferHistory(ctx context.Context, accountID string, limit int) ([]model.Transfer, error) // Newest first
}
