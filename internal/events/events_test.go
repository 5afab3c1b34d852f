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

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewStreamPublisher(client, "bankcore:test")
	err := p.Publish(context.Background(), TransactionCompleted, map[string]string{"transaction_id": "txn_1"})
	require.NoError(t, err)

	entries, err := client.XRange(context.Background(), "bankcore:test", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, TransactionCompleted, entries[0].Values["type"])

	var event Event
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["event"].(string)), &event))
	assert.Equal(t, TransactionCompleted, event.Type)
	assert.Equal(t, "txn_1", event.Data.(map[string]interface{})["transaction_id"])
}

func TestStreamPublisher_PublishError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewStreamPublisher(db, "bankcore:test")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	eventJSON, err := json.Marshal(Event{Type: TransactionFailed, Timestamp: fixed})
	require.NoError(t, err)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "bankcore:test",
		MaxLen: 100000,
		Approx: true,
		Values: []any{"type", TransactionFailed, "event", string(eventJSON)},
	}).SetErr(errors.New("connection refused"))

	err = p.Publish(context.Background(), TransactionFailed, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamPublisher_MarshalError(t *testing.T) {
	db, _ := redismock.NewClientMock()
	p := NewStreamPublisher(db, "bankcore:test")

	err := p.Publish(context.Background(), TransactionFailed, make(chan int))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal event")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, TransactionQueued, "a"))
	require.NoError(t, r.Publish(ctx, TransactionQueued, "b"))
	require.NoError(t, r.Publish(ctx, TransactionCompleted, "a"))

	assert.Len(t, r.Events(), 3)
	assert.Equal(t, 2, r.Count(TransactionQueued))
	assert.Equal(t, 0, r.Count(TransactionFailed))
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), TransactionQueued, nil))
}
