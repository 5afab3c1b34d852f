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

	"github.com/pkg/errors"

	"github.com/blnkfinance/bankcore/model"
)

func (d Datasource) RecordTransfer(ctx context.Context, outgoing, incoming model.Transfer) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range []model.Transfer{outgoing, incoming} {
			_, err := d.exec(ctx, tx, `
				INSERT INTO transfer_history (transfer_id, account_id, counterparty_id, direction, amount, description, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, t.TransferID, t.AccountID, t.CounterpartyID, string(t.Direction), t.Amount, t.Description, t.CreatedAt)
			if err != nil {
				return errors.Wrapf(err, "record %s transfer", t.Direction)
			}
		}
		return nil
	})
}

func (d Datasource) GetTransferHistory(ctx context.Context, accountID string, limit int) ([]model.Transfer, error) {
	rows, err := d.query(ctx, `
		SELECT transfer_id, account_id, counterparty_id, direction, amount, description, created_at
		FROM transfer_history
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "transfer history")
	}
	defer rows.Close()

	var history []model.Transfer
	for rows.Next() {
		var (
			t         model.Transfer
			direction string
		)
		if err := rows.Scan(&t.TransferID, &t.AccountID, &t.CounterpartyID, &direction, &t.Amount, &t.Description, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan transfer")
		}
		t.Direction = model.TransferDirection(direction)
		history = append(history, t)
	}
	return history, errors.Wrap(rows.Err(), "transfer history")
}
