package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/bankcore/database"
	"github.com/blnkfinance/bankcore/internal/apierror"
	"github.com/blnkfinance/bankcore/model"
)

func record(t *testing.T, s *Store, id, account string, typ model.TransactionType, amount int64, seq int64, at time.Time) {
	t.Helper()
	txn := &model.Transaction{TransactionID: id, AccountID: account, Type: typ, Amount: decimal.NewFromInt(amount), Status: model.TransactionPending, CreatedAt: at}
	entry := &model.QueueEntry{TransactionID: id, AccountID: account, Priority: model.DefaultPriority, Status: model.QueueQueued, AddedAt: at, Seq: seq}
	require.NoError(t, s.RecordTransaction(context.Background(), txn, entry))
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := New()

	acc, err := s.CreateAccount(ctx, model.Account{Number: "0001", Balance: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.NotEmpty(t, acc.AccountID)

	_, err = s.CreateAccount(ctx, model.Account{AccountID: acc.AccountID})
	assert.True(t, apierror.Is(err, apierror.ErrConflict))

	require.NoError(t, s.AdjustBalance(ctx, acc.AccountID, decimal.NewFromInt(-30)))
	balance, err := s.GetBalance(ctx, acc.AccountID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(70).Equal(balance))

	err = s.AdjustBalance(ctx, "acc_missing", decimal.NewFromInt(1))
	assert.True(t, errors.Is(err, database.ErrAccountNotFound))
	_, err = s.GetAccount(ctx, "acc_missing")
	assert.True(t, errors.Is(err, database.ErrAccountNotFound))
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	record(t, s, "t1", "a", model.TypeDeposit, 10, 1, now)
	record(t, s, "t2", "b", model.TypeDeposit, 10, 2, now)
	record(t, s, "t3", "a", model.TypeWithdrawal, 5, 3, now)

	history, err := s.GetTransactionHistory(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "t3", history[0].TransactionID)
	assert.Equal(t, "t1", history[1].TransactionID)

	history, err = s.GetTransactionHistory(ctx, "a", 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestQueuedEntriesOrder(t *testing.T) {
	s := New()
	now := time.Now()

	record(t, s, "t2", "a", model.TypeDeposit, 1, 2, now)
	record(t, s, "t1", "a", model.TypeDeposit, 1, 1, now)
	record(t, s, "t0", "a", model.TypeDeposit, 1, 3, now.Add(-time.Second))

	entries, err := s.QueuedEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"t0", "t1", "t2"}, []string{entries[0].TransactionID, entries[1].TransactionID, entries[2].TransactionID})
}

func TestClaimEntry_ExactlyOneWinner(t *testing.T) {
	s := New()
	record(t, s, "t1", "a", model.TypeDeposit, 1, 1, time.Now())

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ClaimEntry(context.Background(), "t1")
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	txn, err := s.GetTransaction(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionProcessing, txn.Status)
}

func TestFinishEntry(t *testing.T) {
	ctx := context.Background()
	s := New()
	record(t, s, "t1", "a", model.TypeDeposit, 1, 1, time.Now())

	assert.Error(t, s.FinishEntry(ctx, "t1", model.QueueQueued))

	ok, err := s.ClaimEntry(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.FinishEntry(ctx, "t1", model.QueueCompleted))

	txn, _ := s.GetTransaction(ctx, "t1")
	assert.Equal(t, model.TransactionCompleted, txn.Status)
	entries, _ := s.QueuedEntries(ctx)
	assert.Empty(t, entries)

	err = s.UpdateQueuePriority(ctx, "t1", 9)
	assert.True(t, errors.Is(err, database.ErrEntryNotQueued))
}

func TestDebitTotalSince(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	record(t, s, "t1", "a", model.TypeWithdrawal, 40, 1, now)
	record(t, s, "t2", "a", model.TypeDeposit, 500, 2, now)
	record(t, s, "t3", "a", model.TypeWithdrawal, 25, 3, now.Add(-48*time.Hour))
	record(t, s, "t4", "a", model.TypeTransferOut, 10, 4, now)
	_, _ = s.ClaimEntry(ctx, "t4")
	require.NoError(t, s.FinishEntry(ctx, "t4", model.QueueFailed))

	require.NoError(t, s.RecordTransfer(ctx,
		model.Transfer{AccountID: "a", CounterpartyID: "b", Direction: model.DirectionOutgoing, Amount: decimal.NewFromInt(15), CreatedAt: now},
		model.Transfer{AccountID: "b", CounterpartyID: "a", Direction: model.DirectionIncoming, Amount: decimal.NewFromInt(15), CreatedAt: now},
	))

	total, err := s.DebitTotalSince(ctx, "a", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(55).Equal(total), total.String())

	transfers, err := s.GetTransferHistory(ctx, "b", 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, model.DirectionIncoming, transfers[0].Direction)
}

func TestDebitTotalSince_CountsIncomingTransfersAgainstTheirSource(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	txn := &model.Transaction{TransactionID: "t1", AccountID: "b", Type: model.TypeTransferIn, Amount: decimal.NewFromInt(30), RelatedAccount: "a", Status: model.TransactionPending, CreatedAt: now}
	entry := &model.QueueEntry{TransactionID: "t1", AccountID: "b", Priority: model.DefaultPriority, Status: model.QueueQueued, AddedAt: now, Seq: 1}
	require.NoError(t, s.RecordTransaction(ctx, txn, entry))

	// History of the queued transfer must not count twice.
	require.NoError(t, s.RecordTransfer(ctx,
		model.Transfer{TransferID: "t1", AccountID: "a", CounterpartyID: "b", Direction: model.DirectionOutgoing, Amount: decimal.NewFromInt(30), CreatedAt: now},
		model.Transfer{TransferID: "t1", AccountID: "b", CounterpartyID: "a", Direction: model.DirectionIncoming, Amount: decimal.NewFromInt(30), CreatedAt: now},
	))

	total, err := s.DebitTotalSince(ctx, "a", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(total), total.String())

	total, err = s.DebitTotalSince(ctx, "b", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, total.IsZero(), total.String())
}
