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
	"database/sql"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/bankcore"
	"github.com/blnkfinance/bankcore/config"
	"github.com/blnkfinance/bankcore/database"
)

func migrateCommands(_ *bankcoreInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run bankcore migrations",
	}

	cmd.AddCommand(migrateDirectionCommand("up", migrate.Up, "Applied %d migrations!\n"))
	cmd.AddCommand(migrateDirectionCommand("down", migrate.Down, "Rolled back %d migrations!\n"))
	return cmd
}

func migrateDirectionCommand(use string, direction migrate.MigrationDirection, done string) *cobra.Command {
	return &cobra.Command{
		Use: use,
		RunE: func(cmd *cobra.Command, args []string) error {
			cnf, err := config.Fetch()
			if err != nil {
				return fmt.Errorf("error fetching config: %v", err)
			}

			db, dialect, err := migrationTarget(cnf)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := migrate.Exec(db, dialect, migrationSource(), direction)
			if err != nil {
				return fmt.Errorf("error migrating %s: %v", use, err)
			}
			fmt.Printf(done, n)
			return nil
		},
	}
}

func migrationSource() migrate.MigrationSource {
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: bankcore.SQLFiles,
		Root:       "sql",
	}
}

// migrationTarget opens the configured database and returns the sql-migrate
// dialect for its driver.
func migrationTarget(cnf *config.Configuration) (*sql.DB, string, error) {
	dialect, err := migrationDialect(cnf.DataSource.Driver)
	if err != nil {
		return nil, "", err
	}
	db, err := database.ConnectDB(cnf.DataSource.Driver, cnf.DataSource.Dns)
	if err != nil {
		return nil, "", fmt.Errorf("error connecting to database: %v", err)
	}
	return db, dialect, nil
}

func migrationDialect(driver string) (string, error) {
	switch driver {
	case database.DriverPostgres:
		return "postgres", nil
	case database.DriverSQLite:
		return "sqlite3", nil
	case database.DriverMySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("driver %q has no migrations", driver)
	}
}
