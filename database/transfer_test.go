package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/bankcore/model"
)

func TestRecordTransfer(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverMySQL)
	now := time.Now()
	amount := decimal.NewFromInt(30)

	out := model.Transfer{TransferID: "tr_1", AccountID: "acc_a", CounterpartyID: "acc_b", Direction: model.DirectionOutgoing, Amount: amount, CreatedAt: now}
	in := model.Transfer{TransferID: "tr_2", AccountID: "acc_b", CounterpartyID: "acc_a", Direction: model.DirectionIncoming, Amount: amount, CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO transfer_history .* VALUES \(\?, \?, \?, \?, \?, \?, \?\)`).
		WithArgs("tr_1", "acc_a", "acc_b", "OUTGOING", amount, "", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO transfer_history").
		WithArgs("tr_2", "acc_b", "acc_a", "INCOMING", amount, "", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := ds.RecordTransfer(context.Background(), out, in)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransferHistory(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"transfer_id", "account_id", "counterparty_id", "direction", "amount", "description", "created_at"}).
		AddRow("tr_1", "acc_a", "acc_b", "OUTGOING", "30", "rent", now)
	mock.ExpectQuery("FROM transfer_history").
		WithArgs("acc_a", 5).
		WillReturnRows(rows)

	history, err := ds.GetTransferHistory(context.Background(), "acc_a", 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.DirectionOutgoing, history[0].Direction)
	assert.Equal(t, "acc_b", history[0].CounterpartyID)
}
