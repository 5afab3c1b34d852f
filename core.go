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
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/blnkfinance/bankcore/config"
	"github.com/blnkfinance/bankcore/database"
	"github.com/blnkfinance/bankcore/internal/cache"
	"github.com/blnkfinance/bankcore/internal/events"
	"github.com/blnkfinance/bankcore/internal/lock"
	"github.com/blnkfinance/bankcore/internal/notification"
	"github.com/blnkfinance/bankcore/model"
)

var tracer = otel.Tracer("bankcore")

//go:embed sql/*.sql
var SQLFiles embed.FS

// Core is the transaction processing core: a ledger feeding a scheduled
// worker pool that executes balance changes under ordered account locks.
type Core struct {
	datasource database.IDataSource
	config     *config.Configuration
	publisher  events.Publisher
	notify     func(error)
	locks      *lock.Table
	cache      cache.Cache

	ledger    *Ledger
	scheduler *Scheduler
	executor  *Executor
	gate      *Gate
	batchGate *Gate
	processor *Processor

	pollInterval   time.Duration
	defaultWorkers int

	mu              sync.Mutex
	inconsistencies []Inconsistency
}

type Option func(*Core)

// WithConfig uses cnf instead of the globally loaded configuration.
func WithConfig(cnf *config.Configuration) Option {
	return func(c *Core) { c.config = cnf }
}

func WithPublisher(p events.Publisher) Option {
	return func(c *Core) { c.publisher = p }
}

// WithCache serves finished transaction lookups from c.
func WithCache(c cache.Cache) Option {
	return func(core *Core) { core.cache = c }
}

// WithLockTable shares an existing lock table with the core.
func WithLockTable(t *lock.Table) Option {
	return func(c *Core) { c.locks = t }
}

// WithNotifier replaces the operator alert sent when a transfer cannot be
// compensated.
func WithNotifier(fn func(error)) Option {
	return func(c *Core) { c.notify = fn }
}

// NewCore wires a core over ds. Without WithConfig the configuration loaded
// by config.InitConfig is used, falling back to the defaults.
func NewCore(ds database.IDataSource, opts ...Option) (*Core, error) {
	if ds == nil {
		return nil, errors.New("a datasource is required")
	}

	c := &Core{datasource: ds}
	for _, opt := range opts {
		opt(c)
	}

	if c.config == nil {
		cnf, err := config.Fetch()
		if err != nil {
			logrus.Warnf("%v; using default configuration", err)
			cnf = config.DefaultConfig()
		}
		c.config = cnf
	}
	if c.publisher == nil {
		c.publisher = events.NoopPublisher{}
	}
	if c.notify == nil {
		c.notify = notification.NotifyError
	}
	if c.locks == nil {
		c.locks = lock.NewTable()
	}

	processing := c.config.Processing
	policy, ok := ParsePolicy(processing.Algorithm)
	if !ok {
		policy = PolicyFIFO
	}
	priority := processing.DefaultPriority
	if !model.ValidPriority(priority) {
		priority = model.DefaultPriority
	}
	dailyLimit := decimal.NewFromInt(config.DEFAULT_DAILY_LIMIT)
	if c.config.TransactionLimit.Daily != nil {
		dailyLimit = decimal.NewFromFloat(*c.config.TransactionLimit.Daily)
	}

	c.pollInterval = time.Duration(processing.PollIntervalMs) * time.Millisecond
	if c.pollInterval <= 0 {
		c.pollInterval = config.DEFAULT_POLL_INTERVAL_MS * time.Millisecond
	}
	c.defaultWorkers = processing.Workers

	c.ledger = newLedger(ds, c.publisher, priority, dailyLimit)
	c.ledger.cache = c.cache
	c.scheduler = NewScheduler(ds, policy)
	c.executor = NewExecutor(ds, c.locks)
	c.executor.onInconsistent = c.recordInconsistency
	c.gate = NewGate(processing.Concurrency)
	c.batchGate = NewGate(processing.BatchConcurrency)
	if processing.BatchConcurrency <= 0 {
		c.batchGate = NewGate(config.DEFAULT_BATCH_CONCURRENCY)
	}
	c.processor = c.newProcessor("transaction", c.gate)
	return c, nil
}

// CreateAccount opens an account with an opening balance. The account
// number is assigned by the caller.
func (c *Core) CreateAccount(ctx context.Context, number string, openingBalance decimal.Decimal) (model.Account, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return model.Account{}, validationError("account number is required")
	}
	if openingBalance.IsNegative() {
		return model.Account{}, validationError("opening balance cannot be negative")
	}
	account, err := c.datasource.CreateAccount(ctx, model.Account{Number: number, Balance: openingBalance})
	if err != nil {
		return model.Account{}, storageError("failed to create account", err)
	}
	logrus.WithField("account_id", account.AccountID).Info("account created")
	return account, nil
}

func (c *Core) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	account, err := c.datasource.GetAccount(ctx, id)
	if err != nil {
		return nil, storageError("account "+id+" not found", err)
	}
	return account, nil
}

// RecordTransaction queues a transaction at the default priority and
// returns its ID.
func (c *Core) RecordTransaction(ctx context.Context, accountID string, txnType model.TransactionType, amount decimal.Decimal, description, relatedAccount string) (string, error) {
	return c.ledger.RecordTransaction(ctx, accountID, txnType, amount, description, relatedAccount)
}

func (c *Core) RecordTransactionWithPriority(ctx context.Context, accountID string, txnType model.TransactionType, amount decimal.Decimal, description, relatedAccount string, priority int) (string, error) {
	return c.ledger.RecordTransactionWithPriority(ctx, accountID, txnType, amount, description, relatedAccount, priority)
}

func (c *Core) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	return c.ledger.GetTransaction(ctx, id)
}

// GetTransactionHistory returns up to limit transactions, newest first.
func (c *Core) GetTransactionHistory(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) {
	return c.ledger.GetTransactionHistory(ctx, accountID, limit)
}

func (c *Core) UpdatePriority(ctx context.Context, transactionID string, priority int) error {
	return c.ledger.UpdatePriority(ctx, transactionID, priority)
}

// SetSchedulingAlgorithm switches the scheduling policy. It returns false
// for an unknown name.
func (c *Core) SetSchedulingAlgorithm(name string) bool {
	return c.scheduler.SetPolicy(name)
}

func (c *Core) SchedulingAlgorithm() Policy {
	return c.scheduler.Policy()
}

// StartProcessing starts the worker pool. A non-positive count uses the
// configured number of workers.
func (c *Core) StartProcessing(workers int) {
	c.processor.Start(workers)
}

// StopProcessing stops the worker pool after in-flight units finish.
func (c *Core) StopProcessing() {
	c.processor.Stop()
}

func (c *Core) IsProcessing() bool {
	return c.processor.IsRunning()
}

// SafetyCheck runs the Banker's algorithm over the given allocation state.
func (c *Core) SafetyCheck(available []int, maxDemand, allocated [][]int) (bool, []int, error) {
	return CheckSafety(model.ResourceSnapshot{
		Available: available,
		MaxDemand: maxDemand,
		Allocated: allocated,
	})
}

// Inconsistencies lists transfers whose compensation failed since the core
// started.
func (c *Core) Inconsistencies() []Inconsistency {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Inconsistency, len(c.inconsistencies))
	copy(out, c.inconsistencies)
	return out
}

func (c *Core) recordInconsistency(ctx context.Context, inc Inconsistency) {
	c.mu.Lock()
	c.inconsistencies = append(c.inconsistencies, inc)
	c.mu.Unlock()

	c.notify(fmt.Errorf("transaction %s: %s debited %s but neither the credit to %s nor its reversal applied (credit: %s, reversal: %s)",
		inc.TransactionID, inc.Source, inc.Amount, inc.Destination, inc.CreditError, inc.RollbackError))
	if err := c.publisher.Publish(ctx, events.TransactionReconciliationRequired, inc); err != nil {
		logrus.Warnf("failed to publish %s event: %v", events.TransactionReconciliationRequired, err)
	}
}
