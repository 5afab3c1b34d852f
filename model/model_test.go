package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("txn")
	assert.Contains(t, id, "txn_")
	assert.Len(t, id, len("txn_")+36)
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("txn"))
}

func TestParseTransactionType(t *testing.T) {
	typ, ok := ParseTransactionType(" transfer_out ")
	assert.True(t, ok)
	assert.Equal(t, TypeTransferOut, typ)

	_, ok = ParseTransactionType("REFUND")
	assert.False(t, ok)
}

func TestTransactionParties(t *testing.T) {
	tests := []struct {
		name   string
		txn    Transaction
		debit  string
		credit string
	}{
		{"deposit", Transaction{Type: TypeDeposit, AccountID: "a"}, "", "a"},
		{"withdrawal", Transaction{Type: TypeWithdrawal, AccountID: "a"}, "a", ""},
		{"transfer out", Transaction{Type: TypeTransferOut, AccountID: "a", RelatedAccount: "b"}, "a", "b"},
		{"transfer in", Transaction{Type: TypeTransferIn, AccountID: "a", RelatedAccount: "b"}, "b", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debit, credit := tt.txn.Parties()
			assert.Equal(t, tt.debit, debit)
			assert.Equal(t, tt.credit, credit)
		})
	}
}

func TestQueueStatusMirrorsTransactionStatus(t *testing.T) {
	assert.Equal(t, TransactionPending, QueueQueued.TransactionStatus())
	assert.Equal(t, TransactionProcessing, QueueProcessing.TransactionStatus())
	assert.Equal(t, TransactionCompleted, QueueCompleted.TransactionStatus())
	assert.Equal(t, TransactionFailed, QueueFailed.TransactionStatus())
	assert.True(t, QueueFailed.IsTerminal())
	assert.False(t, QueueProcessing.IsTerminal())
	assert.False(t, QueueStatus("DONE").Valid())
}

func TestQueueEntryBefore(t *testing.T) {
	now := time.Now()
	a := QueueEntry{AddedAt: now, Seq: 1}
	b := QueueEntry{AddedAt: now, Seq: 2}
	c := QueueEntry{AddedAt: now.Add(-time.Second), Seq: 3}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, c.Before(a))
}

func TestResourceSnapshotNeed(t *testing.T) {
	s := ResourceSnapshot{
		Available: []int{3, 3, 2},
		MaxDemand: [][]int{{7, 5, 3}},
		Allocated: [][]int{{0, 1, 0}},
	}
	assert.Equal(t, 1, s.Processes())
	assert.Equal(t, []int{7, 4, 3}, s.Need(0))
}

func TestTransactionTypeFlags(t *testing.T) {
	assert.True(t, TypeTransferIn.IsTransfer())
	assert.False(t, TypeDeposit.IsTransfer())
}
