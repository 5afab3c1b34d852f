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
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/blnkfinance/bankcore/model"
)

// RecordTransaction inserts txn and entry in one transaction. If either
// insert fails neither row persists.
func (d Datasource) RecordTransaction(ctx context.Context, txn *model.Transaction, entry *model.QueueEntry) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		_, err := d.exec(ctx, tx, `
			INSERT INTO transactions (transaction_id, account_id, type, amount, description, related_account, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, txn.TransactionID, txn.AccountID, string(txn.Type), txn.Amount, txn.Description, txn.RelatedAccount, string(txn.Status), txn.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert transaction")
		}

		_, err = d.exec(ctx, tx, `
			INSERT INTO transaction_queue (transaction_id, account_id, priority, status, added_at, seq)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, entry.TransactionID, entry.AccountID, entry.Priority, string(entry.Status), entry.AddedAt, entry.Seq)
		if err != nil {
			return errors.Wrap(err, "insert queue entry")
		}
		return nil
	})
}

func scanTransaction(row interface{ Scan(...interface{}) error }) (model.Transaction, error) {
	var (
		txn         model.Transaction
		typ, status string
	)
	err := row.Scan(&txn.TransactionID, &txn.AccountID, &typ, &txn.Amount, &txn.Description, &txn.RelatedAccount, &status, &txn.CreatedAt)
	txn.Type = model.TransactionType(typ)
	txn.Status = model.TransactionStatus(status)
	return txn, err
}

func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := d.queryRow(ctx, `
		SELECT transaction_id, account_id, type, amount, description, related_account, status, created_at
		FROM transactions
		WHERE transaction_id = $1
	`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrapf(ErrTransactionNotFound, "transaction %s", id)
		}
		return nil, errors.Wrap(err, "get transaction")
	}
	return &txn, nil
}

func (d Datasource) GetTransactionHistory(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) {
	rows, err := d.query(ctx, `
		SELECT t.transaction_id, t.account_id, t.type, t.amount, t.description, t.related_account, t.status, t.created_at
		FROM transactions t
		LEFT JOIN transaction_queue q ON q.transaction_id = t.transaction_id
		WHERE t.account_id = $1
		ORDER BY t.created_at DESC, q.seq DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "transaction history")
	}
	defer rows.Close()

	var history []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan transaction")
		}
		history = append(history, txn)
	}
	return history, errors.Wrap(rows.Err(), "transaction history")
}

func (d Datasource) QueuedEntries(ctx context.Context) ([]model.QueueEntry, error) {
	rows, err := d.query(ctx, `
		SELECT transaction_id, account_id, priority, status, added_at, seq
		FROM transaction_queue
		WHERE status = $1
		ORDER BY added_at, seq
	`, string(model.QueueQueued))
	if err != nil {
		return nil, errors.Wrap(err, "queued entries")
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		var (
			e      model.QueueEntry
			status string
		)
		if err := rows.Scan(&e.TransactionID, &e.AccountID, &e.Priority, &status, &e.AddedAt, &e.Seq); err != nil {
			return nil, errors.Wrap(err, "scan queue entry")
		}
		e.Status = model.QueueStatus(status)
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "queued entries")
}

// ClaimEntry moves the entry and its transaction to PROCESSING. The update
// is conditional on the entry still being QUEUED, so of two concurrent
// claimers exactly one sees true.
func (d Datasource) ClaimEntry(ctx context.Context, transactionID string) (bool, error) {
	claimed := false
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := d.exec(ctx, tx, `
			UPDATE transaction_queue SET status = $1 WHERE transaction_id = $2 AND status = $3
		`, string(model.QueueProcessing), transactionID, string(model.QueueQueued))
		if err != nil {
			return errors.Wrap(err, "claim queue entry")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "claim queue entry")
		}
		if n == 0 {
			return nil
		}

		_, err = d.exec(ctx, tx, `
			UPDATE transactions SET status = $1 WHERE transaction_id = $2
		`, string(model.TransactionProcessing), transactionID)
		if err != nil {
			return errors.Wrap(err, "mark transaction processing")
		}
		claimed = true
		return nil
	})
	return claimed, err
}

// FinishEntry writes the terminal status to both the entry and its transaction.
func (d Datasource) FinishEntry(ctx context.Context, transactionID string, status model.QueueStatus) error {
	if !status.IsTerminal() {
		return errors.Errorf("status %s is not terminal", status)
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		_, err := d.exec(ctx, tx, `
			UPDATE transaction_queue SET status = $1 WHERE transaction_id = $2 AND status = $3
		`, string(status), transactionID, string(model.QueueProcessing))
		if err != nil {
			return errors.Wrap(err, "finish queue entry")
		}
		_, err = d.exec(ctx, tx, `
			UPDATE transactions SET status = $1 WHERE transaction_id = $2
		`, string(status.TransactionStatus()), transactionID)
		return errors.Wrap(err, "finish transaction")
	})
}

func (d Datasource) UpdateQueuePriority(ctx context.Context, transactionID string, priority int) error {
	res, err := d.exec(ctx, d.Conn, `
		UPDATE transaction_queue SET priority = $1 WHERE transaction_id = $2 AND status = $3
	`, priority, transactionID, string(model.QueueQueued))
	if err != nil {
		return errors.Wrap(err, "update priority")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update priority")
	}
	if n == 0 {
		return errors.Wrapf(ErrEntryNotQueued, "transaction %s", transactionID)
	}
	return nil
}

// DebitTotalSince sums every queued transaction that takes money out of the
// account since the given time, plus its outgoing direct transfers. A queued
// TRANSFER_IN debits its related account. Failed transactions are excluded.
func (d Datasource) DebitTotalSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	var queued, direct decimal.NullDecimal
	err := d.queryRow(ctx, `
		SELECT SUM(amount) FROM transactions
		WHERE ((account_id = $1 AND type IN ($2, $3)) OR (related_account = $4 AND type = $5))
		AND status <> $6 AND created_at >= $7
	`, accountID, string(model.TypeWithdrawal), string(model.TypeTransferOut), accountID, string(model.TypeTransferIn),
		string(model.TransactionFailed), since).Scan(&queued)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum debits")
	}

	// History rows written for queued transfers share the transaction ID.
	err = d.queryRow(ctx, `
		SELECT SUM(h.amount) FROM transfer_history h
		WHERE h.account_id = $1 AND h.direction = $2 AND h.created_at >= $3
		AND NOT EXISTS (SELECT 1 FROM transactions t WHERE t.transaction_id = h.transfer_id)
	`, accountID, string(model.DirectionOutgoing), since).Scan(&direct)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum transfers")
	}

	return queued.Decimal.Add(direct.Decimal), nil
}
