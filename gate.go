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
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/blnkfinance/bankcore/config"
)

// Gate bounds how many units of work execute at once.
type Gate struct {
	sem   *semaphore.Weighted
	size  int
	inUse atomic.Int64
}

// NewGate returns a gate with size slots. A non-positive size uses the
// default concurrency.
func NewGate(size int) *Gate {
	if size <= 0 {
		size = config.DEFAULT_CONCURRENCY
	}
	return &Gate{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inUse.Add(1)
	return nil
}

func (g *Gate) Release() {
	g.inUse.Add(-1)
	g.sem.Release(1)
}

// Do runs fn while holding one slot. The slot is returned however fn exits,
// a panic included.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}

func (g *Gate) Size() int {
	return g.size
}

func (g *Gate) InUse() int {
	return int(g.inUse.Load())
}
