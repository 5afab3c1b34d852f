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
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// workerCommands runs only the worker pool, without the HTTP API. With
// --batch the pool shares the smaller batch concurrency gate.
func workerCommands(b *bankcoreInstance) *cobra.Command {
	var (
		count int
		batch bool
	)

	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start bankcore workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := initializeTracing(ctx, b.cnf)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logrus.Errorf("Error during shutdown: %v", err)
				}
			}()

			if batch {
				processor := b.core.NewBatchProcessor()
				processor.Start(count)
				<-ctx.Done()
				processor.Stop()
			} else {
				b.core.StartProcessing(count)
				<-ctx.Done()
				b.core.StopProcessing()
			}

			logrus.Info("workers stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "number of workers; 0 uses the configured count")
	cmd.Flags().BoolVar(&batch, "batch", false, "run a batch processor with the batch concurrency limit")
	return cmd
}
