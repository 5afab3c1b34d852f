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
	"go.opentelemetry.io/otel/attribute"

	"github.com/blnkfinance/bankcore/internal/apierror"
	"github.com/blnkfinance/bankcore/internal/events"
	"github.com/blnkfinance/bankcore/model"
)

const transferSucceeded = "Transfer completed successfully"

// TransferFunds moves amount from source to dest immediately, bypassing the
// queue. The message explains the outcome either way.
func (c *Core) TransferFunds(ctx context.Context, source, dest string, amount decimal.Decimal, description string) (bool, string) {
	if _, err := c.Transfer(ctx, source, dest, amount, description); err != nil {
		return false, TransferMessage(err)
	}
	return true, transferSucceeded
}

// Transfer is TransferFunds with a staged error instead of a message. It
// returns the outgoing history row of a completed transfer.
func (c *Core) Transfer(ctx context.Context, source, dest string, amount decimal.Decimal, description string) (*model.Transfer, error) {
	ctx, span := tracer.Start(ctx, "Transferring funds")
	defer span.End()

	if !amount.IsPositive() {
		return nil, validationError("Transfer amount must be greater than zero")
	}
	if source == dest {
		return nil, validationError("Cannot transfer to the same account")
	}
	if _, err := c.datasource.GetAccount(ctx, source); err != nil {
		return nil, rejected(lookupError("Source account not found", "failed to read source account", err))
	}
	if _, err := c.datasource.GetAccount(ctx, dest); err != nil {
		return nil, rejected(lookupError("Destination account not found", "failed to read destination account", err))
	}
	unlock := c.ledger.lockLimit(source)
	defer unlock()
	if err := c.ledger.checkDailyLimit(ctx, source, amount); err != nil {
		return nil, err
	}

	transferID := model.GenerateUUIDWithSuffix("trf")
	span.SetAttributes(attribute.String("transfer.id", transferID))

	err := c.gate.Do(ctx, func() error {
		return c.executor.Transfer(ctx, transferID, source, dest, amount)
	})
	if err != nil {
		if _, staged := StageOf(err); !staged {
			err = rejected(err)
		}
		span.RecordError(err)
		logrus.WithFields(logrus.Fields{
			"transfer_id": transferID,
			"source":      source,
			"destination": dest,
		}).Warnf("transfer failed: %v", err)
		return nil, err
	}

	outgoing, incoming := transferRows(transferID, source, dest, amount, description, time.Now().UTC())
	// History is best effort once both balances have changed.
	if err := c.datasource.RecordTransfer(ctx, outgoing, incoming); err != nil {
		logrus.WithField("transfer_id", transferID).Errorf("failed to record transfer history: %v", err)
	}
	if err := c.publisher.Publish(ctx, events.TransferCompleted, outgoing); err != nil {
		logrus.Warnf("failed to publish %s event: %v", events.TransferCompleted, err)
	}

	logrus.WithFields(logrus.Fields{
		"transfer_id": transferID,
		"source":      source,
		"destination": dest,
		"amount":      amount.String(),
	}).Info("transfer completed")
	return &outgoing, nil
}

// transferRows builds the outgoing and incoming history rows of a transfer.
func transferRows(id, source, dest string, amount decimal.Decimal, description string, at time.Time) (model.Transfer, model.Transfer) {
	outgoing := model.Transfer{
		TransferID:     id,
		AccountID:      source,
		CounterpartyID: dest,
		Direction:      model.DirectionOutgoing,
		Amount:         amount,
		Description:    description,
		CreatedAt:      at,
	}
	incoming := outgoing
	incoming.AccountID, incoming.CounterpartyID = dest, source
	incoming.Direction = model.DirectionIncoming
	return outgoing, incoming
}

// GetTransferHistory returns up to limit transfer rows of an account, newest
// first.
func (c *Core) GetTransferHistory(ctx context.Context, accountID string, limit int) ([]model.Transfer, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	history, err := c.datasource.GetTransferHistory(ctx, accountID, limit)
	if err != nil {
		return nil, storageError("failed to read transfer history", err)
	}
	if history == nil {
		history = []model.Transfer{}
	}
	return history, nil
}

// TransferMessage renders err the way TransferFunds reports it.
func TransferMessage(err error) string {
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
