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

package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrder(t *testing.T) {
	first, second := Order("acc_b", "acc_a")
	assert.Equal(t, "acc_a", first)
	assert.Equal(t, "acc_b", second)

	first, second = Order("acc_a", "acc_b")
	assert.Equal(t, "acc_a", first)
	assert.Equal(t, "acc_b", second)
}

func TestTable_LazyCreation(t *testing.T) {
	table := NewTable()
	assert.Equal(t, 0, table.Size())

	unlock := table.LockPair("x", "y")
	unlock()
	assert.Equal(t, 2, table.Size())

	unlock = table.Lock("x")
	unlock()
	assert.Equal(t, 2, table.Size(), "locks are reused, never recreated")
}

func TestTable_LockPairSameKey(t *testing.T) {
	table := NewTable()
	unlock := table.LockPair("x", "x")
	unlock()
	assert.Equal(t, 1, table.Size())
}

func TestTable_LockPairExcludes(t *testing.T) {
	table := NewTable()
	unlock := table.LockPair("a", "b")

	acquired := make(chan struct{})
	go func() {
		release := table.Lock("b")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("lock on b acquired while pair was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on b never acquired after release")
	}
}

func TestTable_OppositeDirectionsDoNotDeadlock(t *testing.T) {
	table := NewTable()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := table.LockPair("a", "b")
			counter++
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := table.LockPair("b", "a")
			counter++
			unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposite-direction pair locking deadlocked")
	}
	assert.Equal(t, 400, counter)
}
