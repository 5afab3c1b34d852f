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

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/blnkfinance/bankcore/internal/apierror"
	"github.com/blnkfinance/bankcore/model"
)

// CreateAccount inserts a new account. An empty AccountID is generated.
func (d Datasource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	if account.AccountID == "" {
		account.AccountID = model.GenerateUUIDWithSuffix("acc")
	}
	account.CreatedAt = time.Now().UTC()

	_, err := d.exec(ctx, d.Conn, `
		INSERT INTO accounts (account_id, number, balance, created_at)
		VALUES ($1, $2, $3, $4)
	`, account.AccountID, account.Number, account.Balance, account.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return account, apierror.NewAPIError(apierror.ErrConflict, "account already exists", err)
		}
		return account, errors.Wrap(err, "create account")
	}
	return account, nil
}

func (d Datasource) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{}
	err := d.queryRow(ctx, `
		SELECT account_id, number, balance, created_at
		FROM accounts
		WHERE account_id = $1
	`, id).Scan(&account.AccountID, &account.Number, &account.Balance, &account.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrapf(ErrAccountNotFound, "account %s", id)
		}
		return nil, errors.Wrap(err, "get account")
	}
	return account, nil
}

func (d Datasource) GetBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := d.queryRow(ctx, `SELECT balance FROM accounts WHERE account_id = $1`, id).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, errors.Wrapf(ErrAccountNotFound, "account %s", id)
		}
		return decimal.Zero, errors.Wrap(err, "get balance")
	}
	return balance, nil
}

// AdjustBalance applies delta in a single UPDATE, so the store serializes
// concurrent adjustments of the same row.
func (d Datasource) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	res, err := d.exec(ctx, d.Conn, `
		UPDATE accounts SET balance = balance + $1 WHERE account_id = $2
	`, delta, id)
	if err != nil {
		return errors.Wrap(err, "adjust balance")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "adjust balance")
	}
	if n == 0 {
		return errors.Wrapf(ErrAccountNotFound, "account %s", id)
	}
	return nil
}
