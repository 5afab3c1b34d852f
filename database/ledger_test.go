package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/bankcore/model"
)

func sampleTransaction(now time.Time) (*model.Transaction, *model.QueueEntry) {
	txn := &model.Transaction{
		TransactionID: "txn_1",
		AccountID:     "acc_1",
		Type:          model.TypeDeposit,
		Amount:        decimal.NewFromInt(50),
		Description:   "salary",
		Status:        model.TransactionPending,
		CreatedAt:     now,
	}
	entry := &model.QueueEntry{
		TransactionID: txn.TransactionID,
		AccountID:     txn.AccountID,
		Priority:      model.DefaultPriority,
		Status:        model.QueueQueued,
		AddedAt:       now,
		Seq:           1,
	}
	return txn, entry
}

func TestRecordTransaction_Success(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)
	now := time.Now()
	txn, entry := sampleTransaction(now)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs("txn_1", "acc_1", "DEPOSIT", txn.Amount, "salary", "", "PENDING", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO transaction_queue").
		WithArgs("txn_1", "acc_1", model.DefaultPriority, "QUEUED", now, int64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := ds.RecordTransaction(context.Background(), txn, entry)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTransaction_QueueInsertFailsRollsBack(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)
	txn, entry := sampleTransaction(time.Now())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO transaction_queue").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := ds.RecordTransaction(context.Background(), txn, entry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert queue entry")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransaction_NotFound(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)

	mock.ExpectQuery("FROM transactions").
		WithArgs("txn_missing").
		WillReturnError(sql.ErrNoRows)

	_, err := ds.GetTransaction(context.Background(), "txn_missing")
	assert.True(t, errors.Is(err, ErrTransactionNotFound))
}

func TestGetTransactionHistory(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)
	now := time.Now()

	cols := []string{"transaction_id", "account_id", "type", "amount", "description", "related_account", "status", "created_at"}
	rows := sqlmock.NewRows(cols).
		AddRow("txn_2", "acc_1", "WITHDRAWAL", "20", "atm", "", "COMPLETED", now).
		AddRow("txn_1", "acc_1", "DEPOSIT", "50", "salary", "", "COMPLETED", now.Add(-time.Minute))
	mock.ExpectQuery(`ORDER BY t.created_at DESC, q.seq DESC`).
		WithArgs("acc_1", 10).
		WillReturnRows(rows)

	history, err := ds.GetTransactionHistory(context.Background(), "acc_1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "txn_2", history[0].TransactionID)
	assert.Equal(t, model.TypeWithdrawal, history[0].Type)
	assert.Equal(t, model.TransactionCompleted, history[1].Status)
}

func TestQueuedEntries(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverSQLite)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"transaction_id", "account_id", "priority", "status", "added_at", "seq"}).
		AddRow("txn_1", "acc_1", 5, "QUEUED", now, int64(1)).
		AddRow("txn_2", "acc_2", 8, "QUEUED", now, int64(2))
	mock.ExpectQuery(`FROM transaction_queue WHERE status = \? ORDER BY added_at, seq`).
		WithArgs("QUEUED").
		WillReturnRows(rows)

	entries, err := ds.QueuedEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 8, entries[1].Priority)
	assert.Equal(t, model.QueueQueued, entries[0].Status)
}

func TestClaimEntry_Won(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transaction_queue SET status").
		WithArgs("PROCESSING", "txn_1", "QUEUED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs("PROCESSING", "txn_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claimed, err := ds.ClaimEntry(context.Background(), "txn_1")
	assert.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimEntry_Lost(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transaction_queue SET status").
		WithArgs("PROCESSING", "txn_1", "QUEUED").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	claimed, err := ds.ClaimEntry(context.Background(), "txn_1")
	assert.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishEntry(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transaction_queue SET status").
		WithArgs("FAILED", "txn_1", "PROCESSING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs("FAILED", "txn_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := ds.FinishEntry(context.Background(), "txn_1", model.QueueFailed)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishEntry_RejectsNonTerminal(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)

	err := ds.FinishEntry(context.Background(), "txn_1", model.QueueProcessing)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateQueuePriority(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)

	mock.ExpectExec("UPDATE transaction_queue SET priority").
		WithArgs(9, "txn_1", "QUEUED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE transaction_queue SET priority").
		WithArgs(9, "txn_2", "QUEUED").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, ds.UpdateQueuePriority(context.Background(), "txn_1", 9))
	err := ds.UpdateQueuePriority(context.Background(), "txn_2", 9)
	assert.True(t, errors.Is(err, ErrEntryNotQueued))
}

func TestDebitTotalSince(t *testing.T) {
	ds, mock := newMockDatasource(t, DriverPostgres)
	since := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT SUM\\(amount\\) FROM transactions").
		WithArgs("acc_1", "WITHDRAWAL", "TRANSFER_OUT", "acc_1", "TRANSFER_IN", "FAILED", since).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("120.5"))
	mock.ExpectQuery("SELECT SUM\\(h.amount\\) FROM transfer_history h").
		WithArgs("acc_1", "OUTGOING", since).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))

	total, err := ds.DebitTotalSince(context.Background(), "acc_1", since)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("120.5").Equal(total))
}
