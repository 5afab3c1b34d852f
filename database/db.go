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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/bankcore/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
)

// Datasource is the SQL implementation of IDataSource. Queries are written
// with postgres-style $N placeholders and rebound for the other drivers.
type Datasource struct {
	Conn   *sql.DB
	Driver string
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := ConnectDB(configuration.DataSource.Driver, configuration.DataSource.Dns)
	if err != nil {
		return nil, err
	}
	return &Datasource{Conn: con, Driver: configuration.DataSource.Driver}, nil
}

// ConnectDB opens a connection pool and pings it with exponential backoff
// for up to 30 seconds.
func ConnectDB(driver, dns string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dns)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer at a time; concurrent sqlite writers fail with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	err = backoff.RetryNotify(db.Ping, policy, func(err error, next time.Duration) {
		logrus.Warnf("database ping failed, retrying in %v: %v", next, err)
	})
	if err != nil {
		logrus.Errorf("database Connection error ❌: %v", err)
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// rebind rewrites $N placeholders into ? for drivers that need it. It
// assumes each placeholder appears once and in order.
func (d Datasource) rebind(query string) string {
	if d.Driver != DriverSQLite && d.Driver != DriverMySQL {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d Datasource) exec(ctx context.Context, q execer, query string, args ...interface{}) (sql.Result, error) {
	return q.ExecContext(ctx, d.rebind(query), args...)
}

func (d Datasource) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return d.Conn.QueryRowContext(ctx, d.rebind(query), args...)
}

func (d Datasource) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return d.Conn.QueryContext(ctx, d.rebind(query), args...)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (d Datasource) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logrus.Errorf("rollback failed: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}
