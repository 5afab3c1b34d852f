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
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/bankcore/database"
	"github.com/blnkfinance/bankcore/internal/apierror"
	"github.com/blnkfinance/bankcore/internal/lock"
	"github.com/blnkfinance/bankcore/model"
)

// AccountStore is the part of the datasource the executor mutates.
type AccountStore interface {
	GetBalance(ctx context.Context, id string) (decimal.Decimal, error)
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error
}

// TransferStep names the step of a transfer that failed.
type TransferStep string

const (
	StepValidate   TransferStep = "VALIDATE"
	StepDebit      TransferStep = "DEBIT"
	StepCredit     TransferStep = "CREDIT"
	StepCompensate TransferStep = "COMPENSATE"
)

type TransferError struct {
	Step TransferStep
	Err  error
}

func (e *TransferError) Error() string {
	return "transfer " + string(e.Step) + ": " + e.Err.Error()
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// StepOf returns the transfer step err failed at, if any.
func StepOf(err error) (TransferStep, bool) {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Step, true
	}
	return "", false
}

// Inconsistency is a transfer whose debit could not be undone. The source
// account is short by Amount until an operator reconciles it.
type Inconsistency struct {
	TransactionID string          `json:"transaction_id"`
	Source        string          `json:"source"`
	Destination   string          `json:"destination"`
	Amount        decimal.Decimal `json:"amount"`
	CreditError   string          `json:"credit_error"`
	RollbackError string          `json:"rollback_error"`
	DetectedAt    time.Time       `json:"detected_at"`
}

// Executor applies balance mutations under per-account locks.
type Executor struct {
	accounts       AccountStore
	locks          *lock.Table
	onInconsistent func(ctx context.Context, inc Inconsistency)
}

func NewExecutor(accounts AccountStore, locks *lock.Table) *Executor {
	if locks == nil {
		locks = lock.NewTable()
	}
	return &Executor{accounts: accounts, locks: locks}
}

// Execute performs the balance change txn describes. Errors carry a Stage:
// REJECTED when nothing was applied, FAILED otherwise.
func (e *Executor) Execute(ctx context.Context, txn *model.Transaction) error {
	if !txn.Amount.IsPositive() {
		return validationError("Transaction amount must be greater than zero")
	}

	switch txn.Type {
	case model.TypeDeposit:
		return e.deposit(ctx, txn.AccountID, txn.Amount)
	case model.TypeWithdrawal:
		return e.withdraw(ctx, txn.AccountID, txn.Amount)
	case model.TypeTransferOut, model.TypeTransferIn:
		from, to := txn.Parties()
		return e.Transfer(ctx, txn.TransactionID, from, to, txn.Amount)
	}
	return validationError("unknown transaction type " + string(txn.Type))
}

func (e *Executor) deposit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	unlock := e.locks.Lock(accountID)
	defer unlock()

	if err := e.accounts.AdjustBalance(ctx, accountID, amount); err != nil {
		return applyError("failed to credit account "+accountID, err)
	}
	return nil
}

func (e *Executor) withdraw(ctx context.Context, accountID string, amount decimal.Decimal) error {
	unlock := e.locks.Lock(accountID)
	defer unlock()

	balance, err := e.accounts.GetBalance(ctx, accountID)
	if err != nil {
		return rejected(storageError("failed to read balance of "+accountID, err))
	}
	if balance.LessThan(amount) {
		return rejected(insufficientFunds(accountID))
	}
	if err := e.accounts.AdjustBalance(ctx, accountID, amount.Neg()); err != nil {
		return applyError("failed to debit account "+accountID, err)
	}
	return nil
}

// Transfer moves amount from one account to another. Both account locks are
// held, in global order, from validation until the credit or its
// compensation has been applied.
func (e *Executor) Transfer(ctx context.Context, transactionID, from, to string, amount decimal.Decimal) error {
	if from == "" || to == "" {
		return validationError("a transfer needs a source and a destination")
	}
	if from == to {
		return validationError("Cannot transfer to the same account")
	}

	unlock := e.locks.LockPair(from, to)
	defer unlock()

	balance, err := e.accounts.GetBalance(ctx, from)
	if err != nil {
		return rejected(&TransferError{Step: StepValidate, Err: lookupError("Source account not found", "failed to read source account", err)})
	}
	if _, err := e.accounts.GetBalance(ctx, to); err != nil {
		return rejected(&TransferError{Step: StepValidate, Err: lookupError("Destination account not found", "failed to read destination account", err)})
	}
	if balance.LessThan(amount) {
		return rejected(&TransferError{
			Step: StepValidate,
			Err:  apierror.NewAPIError(apierror.ErrInsufficientFunds, "Insufficient funds in source account", nil),
		})
	}

	if err := e.accounts.AdjustBalance(ctx, from, amount.Neg()); err != nil {
		return failed(&TransferError{Step: StepDebit, Err: storageError("Failed to update source account", err)})
	}

	creditErr := e.accounts.AdjustBalance(ctx, to, amount)
	if creditErr == nil {
		return nil
	}

	rollbackErr := e.accounts.AdjustBalance(ctx, from, amount)
	if rollbackErr == nil {
		logrus.WithFields(logrus.Fields{
			"transaction_id": transactionID,
			"source":         from,
			"destination":    to,
		}).Warnf("credit failed, debit compensated: %v", creditErr)
		return failed(&TransferError{Step: StepCredit, Err: storageError("Failed to update destination account", creditErr)})
	}

	inc := Inconsistency{
		TransactionID: transactionID,
		Source:        from,
		Destination:   to,
		Amount:        amount,
		CreditError:   creditErr.Error(),
		RollbackError: rollbackErr.Error(),
		DetectedAt:    time.Now().UTC(),
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"source":         from,
		"destination":    to,
		"amount":         amount.String(),
		"credit_error":   inc.CreditError,
		"rollback_error": inc.RollbackError,
	}).Error("compensation failed, manual reconciliation required")
	if e.onInconsistent != nil {
		e.onInconsistent(ctx, inc)
	}

	return failed(&TransferError{
		Step: StepCompensate,
		Err:  apierror.NewAPIError(apierror.ErrCompensationFailure, "Failed to update destination account and to restore source account", inc),
	})
}

// applyError classifies a failed balance write. A write against an unknown
// account applied nothing.
func applyError(message string, err error) error {
	if errors.Is(err, database.ErrAccountNotFound) {
		return rejected(storageError(message, err))
	}
	return failed(storageError(message, err))
}

func lookupError(notFound, failure string, err error) error {
	if errors.Is(err, database.ErrAccountNotFound) {
		return storageError(notFound, err)
	}
	return storageError(failure, err)
}
