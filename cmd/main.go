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
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/bankcore"
	"github.com/blnkfinance/bankcore/config"
	"github.com/blnkfinance/bankcore/internal/notification"
)

// Bankcore is the CLI application.
type Bankcore struct {
	cmd *cobra.Command
}

// bankcoreInstance carries the wired core and its configuration into the
// subcommands once preRun has loaded them.
type bankcoreInstance struct {
	core    *bankcore.Core
	cnf     *config.Configuration
	cleanup func()
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *bankcoreInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		core, cleanup, err := setupCore(cnf)
		if err != nil {
			notification.NotifyError(err)
			return err
		}

		app.core = core
		app.cnf = cnf
		app.cleanup = cleanup
		return nil
	}
}

func postRun(app *bankcoreInstance) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if app.cleanup != nil {
			app.cleanup()
		}
	}
}

func NewCLI() *Bankcore {
	var configFile string
	b := &bankcoreInstance{}

	var rootCmd = &cobra.Command{
		Use:          "bankcore",
		Short:        "Transaction processing core",
		SilenceUsage: true,
		Run:          func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./bankcore.json", "Configuration file for bankcore")
	rootCmd.PersistentPreRunE = preRun(b, &configFile)
	rootCmd.PersistentPostRun = postRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))
	rootCmd.AddCommand(safetyCommands(b))
	rootCmd.AddCommand(demoCommands(b))
	rootCmd.AddCommand(configCommands(b))

	return &Bankcore{cmd: rootCmd}
}

func (b Bankcore) executeCLI() {
	if err := b.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
