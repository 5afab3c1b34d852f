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
	"errors"

	"github.com/blnkfinance/bankcore/database"
	"github.com/blnkfinance/bankcore/internal/apierror"
)

// Stage tells an operator whether a failure happened before any money moved.
type Stage string

const (
	// StageRejected failures were caught before execution; no balance changed.
	StageRejected Stage = "REJECTED"
	// StageFailed failures happened during execution.
	StageFailed Stage = "FAILED"
)

// StageError attaches a Stage to an underlying error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func rejected(err error) error {
	return &StageError{Stage: StageRejected, Err: err}
}

func failed(err error) error {
	return &StageError{Stage: StageFailed, Err: err}
}

// StageOf returns the stage of err, if it carries one.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

func validationError(message string) error {
	return rejected(apierror.NewAPIError(apierror.ErrInvalidInput, message, nil))
}

func insufficientFunds(accountID string) error {
	return apierror.NewAPIError(apierror.ErrInsufficientFunds, "insufficient funds in account "+accountID, nil)
}

// storageError classifies err from the datasource. Unknown accounts are
// reported as NOT_FOUND; everything else is a STORAGE_ERROR.
func storageError(message string, err error) error {
	if errors.Is(err, database.ErrAccountNotFound) || errors.Is(err, database.ErrTransactionNotFound) {
		return apierror.NewAPIError(apierror.ErrNotFound, message, nil)
	}
	if apierror.CodeOf(err) != "" {
		return err
	}
	return apierror.NewAPIError(apierror.ErrStorage, message, err.Error())
}

var errClaimConflict = apierror.NewAPIError(apierror.ErrClaimConflict, "queue entry already claimed", nil)
