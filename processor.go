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
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/bankcore/config"
	"github.com/blnkfinance/bankcore/database"
	"github.com/blnkfinance/bankcore/internal/apierror"
	"github.com/blnkfinance/bankcore/internal/events"
	"github.com/blnkfinance/bankcore/model"
)

const defaultRecoveryInterval = 5 * time.Second

// Processor runs a pool of workers that drain the transaction queue.
// Each unit of work passes through the processor's gate, so at most
// gate.Size() units execute at once regardless of the worker count.
type Processor struct {
	name           string
	datasource     database.IDataSource
	scheduler      *Scheduler
	executor       *Executor
	gate           *Gate
	publisher      events.Publisher
	wake           <-chan struct{}
	pollInterval   time.Duration
	defaultWorkers int
	notify         func(error)

	// unfinished holds entries whose final status could not be written,
	// keyed by transaction ID. The recovery sweep retries them.
	unfinished       map[string]model.QueueStatus
	unfinishedMu     sync.Mutex
	recoveryInterval time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func (c *Core) newProcessor(name string, gate *Gate) *Processor {
	return &Processor{
		name:           name,
		datasource:     c.datasource,
		scheduler:      c.scheduler,
		executor:       c.executor,
		gate:           gate,
		publisher:      c.publisher,
		wake:           c.ledger.Wake(),
		pollInterval:   c.pollInterval,
		defaultWorkers: c.defaultWorkers,
		notify:         c.notify,

		unfinished:       make(map[string]model.QueueStatus),
		recoveryInterval: defaultRecoveryInterval,

		stopCh: make(chan struct{}),
	}
}

// NewBatchProcessor returns a processor that shares the core's scheduler
// and lock table but executes through the smaller batch gate.
func (c *Core) NewBatchProcessor() *Processor {
	return c.newProcessor("batch", c.batchGate)
}

// Start launches workers goroutines. A non-positive count uses the
// configured default. Starting a running processor does nothing.
func (p *Processor) Start(workers int) {
	if workers <= 0 {
		workers = p.defaultWorkers
	}
	if workers <= 0 {
		workers = config.DEFAULT_WORKERS
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(id, stopCh)
		}(i)
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.recoverLoop(stopCh)
	}()
	logrus.Infof("%s processor started with %d workers, concurrency %d", p.name, workers, p.gate.Size())
}

// Stop signals the workers and waits for them to exit. Units already
// claimed run to completion first.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logrus.Infof("%s processor stopped", p.name)
}

func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// run is the worker loop. The stop signal is only observed between units.
func (p *Processor) run(id int, stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		worked, err := p.ProcessNext(context.Background())
		if err != nil {
			logrus.WithField("worker", id).Errorf("%s processor: %v", p.name, err)
		}
		if worked {
			continue
		}

		timer := time.NewTimer(p.pollInterval)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-p.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// ProcessNext selects, claims and executes one queued entry. It reports
// whether the queue had anything to offer, including entries another
// worker claimed first.
func (p *Processor) ProcessNext(ctx context.Context) (bool, error) {
	entry, err := p.scheduler.NextReady(ctx)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	if err := p.claim(ctx, entry.TransactionID); err != nil {
		if apierror.Is(err, apierror.ErrClaimConflict) {
			logrus.Debugf("lost claim on %s, rescheduling", entry.TransactionID)
			return true, nil
		}
		return false, err
	}

	return true, p.execute(ctx, entry.TransactionID)
}

func (p *Processor) claim(ctx context.Context, transactionID string) error {
	claimed, err := p.datasource.ClaimEntry(ctx, transactionID)
	if err != nil {
		return storageError("failed to claim queue entry", err)
	}
	if !claimed {
		return errClaimConflict
	}
	return nil
}

func (p *Processor) execute(ctx context.Context, transactionID string) error {
	ctx, span := tracer.Start(ctx, "Processing transaction")
	defer span.End()

	txn, err := p.datasource.GetTransaction(ctx, transactionID)
	if err != nil {
		if finishErr := p.finish(ctx, transactionID, model.QueueFailed); finishErr != nil {
			logrus.Error(finishErr)
		}
		return logAndRecordError(span, "fetch claimed transaction error", storageError("failed to load claimed transaction", err))
	}

	runErr := p.gate.Do(ctx, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = failed(fmt.Errorf("panic while executing %s: %v", transactionID, r))
			}
		}()
		return p.executor.Execute(ctx, txn)
	})

	fields := logrus.Fields{
		"transaction_id": txn.TransactionID,
		"account_id":     txn.AccountID,
		"type":           txn.Type,
		"amount":         txn.Amount.String(),
	}
	if runErr != nil {
		span.RecordError(runErr)
		finishErr := p.finish(ctx, transactionID, model.QueueFailed)
		txn.Status = model.TransactionFailed
		stage, _ := StageOf(runErr)
		fields["stage"] = stage
		logrus.WithFields(fields).Warnf("transaction failed: %v", runErr)
		p.publish(ctx, events.TransactionFailed, map[string]any{"transaction": txn, "stage": stage, "error": runErr.Error()})
		return finishErr
	}

	if txn.Type.IsTransfer() {
		p.recordTransfer(ctx, txn)
	}
	finishErr := p.finish(ctx, transactionID, model.QueueCompleted)
	txn.Status = model.TransactionCompleted
	logrus.WithFields(fields).Info("transaction completed")
	p.publish(ctx, events.TransactionCompleted, txn)
	if finishErr != nil {
		span.RecordError(finishErr)
	}
	return finishErr
}

// recordTransfer writes both history rows of an executed queued transfer,
// keyed by the transaction ID. History is best effort once both balances
// have changed.
func (p *Processor) recordTransfer(ctx context.Context, txn *model.Transaction) {
	source, dest := txn.Parties()
	outgoing, incoming := transferRows(txn.TransactionID, source, dest, txn.Amount, txn.Description, time.Now().UTC())
	if err := p.datasource.RecordTransfer(ctx, outgoing, incoming); err != nil {
		logrus.WithField("transaction_id", txn.TransactionID).Errorf("failed to record transfer history: %v", err)
	}
}

// finish writes the final status of a claimed entry. An entry whose status
// cannot be written is held for the recovery sweep and reported once.
func (p *Processor) finish(ctx context.Context, transactionID string, status model.QueueStatus) error {
	err := p.datasource.FinishEntry(ctx, transactionID, status)
	if err == nil {
		return nil
	}

	p.unfinishedMu.Lock()
	_, seen := p.unfinished[transactionID]
	p.unfinished[transactionID] = status
	p.unfinishedMu.Unlock()

	err = storageError(fmt.Sprintf("failed to mark %s as %s", transactionID, status), err)
	if !seen {
		p.notify(err)
	}
	return err
}

// RecoverUnfinished retries the status writes held by finish and returns
// how many entries it settled.
func (p *Processor) RecoverUnfinished(ctx context.Context) int {
	p.unfinishedMu.Lock()
	pending := make(map[string]model.QueueStatus, len(p.unfinished))
	for id, status := range p.unfinished {
		pending[id] = status
	}
	p.unfinishedMu.Unlock()

	settled := 0
	for id, status := range pending {
		if err := p.datasource.FinishEntry(ctx, id, status); err != nil {
			logrus.Warnf("entry %s is still not marked %s: %v", id, status, err)
			continue
		}
		p.unfinishedMu.Lock()
		delete(p.unfinished, id)
		p.unfinishedMu.Unlock()
		settled++
	}
	if settled > 0 {
		logrus.Infof("%s processor recovered %d unfinished entries", p.name, settled)
	}
	return settled
}

// Unfinished returns the number of entries waiting for the recovery sweep.
func (p *Processor) Unfinished() int {
	p.unfinishedMu.Lock()
	defer p.unfinishedMu.Unlock()
	return len(p.unfinished)
}

// recoverLoop runs the recovery sweep until stopped, with a last pass on
// the way out.
func (p *Processor) recoverLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(p.recoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			p.RecoverUnfinished(context.Background())
			return
		case <-ticker.C:
			p.RecoverUnfinished(context.Background())
		}
	}
}

func (p *Processor) publish(ctx context.Context, eventType string, data any) {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		logrus.Warnf("failed to publish %s event: %v", eventType, err)
	}
}
