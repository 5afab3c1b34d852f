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

package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/bankcore"
)

type demoOptions struct {
	workers    int
	iterations int
	balance    int64
}

func demoCommands(b *bankcoreInstance) *cobra.Command {
	opts := demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "run concurrent transfers between two accounts and check the total is conserved",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout(), b.core, opts)
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", 5, "number of concurrent transfer workers")
	cmd.Flags().IntVar(&opts.iterations, "iterations", 10, "transfers per worker")
	cmd.Flags().Int64Var(&opts.balance, "balance", 1000, "opening balance of each account")
	return cmd
}

// runDemo opens two accounts and lets opts.workers goroutines move random
// amounts between them. It fails if the combined balance changed.
func runDemo(ctx context.Context, out io.Writer, core *bankcore.Core, opts demoOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opening := decimal.NewFromInt(opts.balance)

	first, err := core.CreateAccount(ctx, gofakeit.AchAccount(), opening)
	if err != nil {
		return err
	}
	second, err := core.CreateAccount(ctx, gofakeit.AchAccount(), opening)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Account 1: %s, Account 2: %s\n", first.AccountID, second.AccountID)
	fmt.Fprintf(out, "Initial balances: %s / %s\n", first.Balance, second.Balance)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < opts.workers; i++ {
		amount := decimal.NewFromInt(int64(gofakeit.Number(1, 10)))
		wg.Add(1)
		go func(from, to string) {
			defer wg.Done()
			for n := 0; n < opts.iterations; n++ {
				ok, _ := core.TransferFunds(ctx, from, to, amount, "Demo transfer")
				if ok {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
				time.Sleep(time.Duration(gofakeit.Number(10, 100)) * time.Millisecond)
			}
		}(directions(i, first.AccountID, second.AccountID))
	}
	wg.Wait()

	a, err := core.GetAccount(ctx, first.AccountID)
	if err != nil {
		return err
	}
	c, err := core.GetAccount(ctx, second.AccountID)
	if err != nil {
		return err
	}
	total := a.Balance.Add(c.Balance)
	fmt.Fprintf(out, "Final balances: %s / %s (%d transfers succeeded)\n", a.Balance, c.Balance, succeeded)
	fmt.Fprintf(out, "Total: %s\n", total)

	if !total.Equal(opening.Mul(decimal.NewFromInt(2))) {
		return fmt.Errorf("total balance changed from %s to %s", opening.Mul(decimal.NewFromInt(2)), total)
	}
	return nil
}

// directions alternates workers between the two transfer directions.
func directions(worker int, a, b string) (string, string) {
	if worker%2 == 0 {
		return a, b
	}
	return b, a
}
