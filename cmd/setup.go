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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/bankcore"
	"github.com/blnkfinance/bankcore/config"
	"github.com/blnkfinance/bankcore/database"
	"github.com/blnkfinance/bankcore/internal/cache"
	"github.com/blnkfinance/bankcore/internal/events"
	"github.com/blnkfinance/bankcore/internal/memstore"
	redis_db "github.com/blnkfinance/bankcore/internal/redis-db"
)

const (
	redisConnectTimeout = 10 * time.Second
	localCacheTTL       = time.Minute
)

// setupCore builds the datasource and event publisher named by cfg and wires
// a core over them. The returned cleanup closes whatever was opened.
func setupCore(cfg *config.Configuration) (*bankcore.Core, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logrus.Warnf("error during cleanup: %v", err)
			}
		}
	}

	ds, err := newDatasource(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("error getting datasource: %v", err)
	}
	if sqlDS, ok := ds.(*database.Datasource); ok {
		closers = append(closers, sqlDS.Conn.Close)
	}

	opts := []bankcore.Option{bankcore.WithConfig(cfg)}
	if cfg.Redis.Dns != "" {
		client, err := redis_db.NewRedisClient(cfg.Redis.Dns, redisConnectTimeout)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("error connecting to redis: %v", err)
		}
		closers = append(closers, client.Close)
		opts = append(opts,
			bankcore.WithPublisher(events.NewStreamPublisher(client.Client(), cfg.Events.Stream)),
			bankcore.WithCache(cache.NewRedisCache(client.Client(), localCacheTTL)),
		)
	}

	core, err := bankcore.NewCore(ds, opts...)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("error creating core: %v", err)
	}
	return core, cleanup, nil
}

func newDatasource(cfg *config.Configuration) (database.IDataSource, error) {
	if cfg.DataSource.Driver == "memory" {
		logrus.Warn("using the in-memory store; nothing will be persisted")
		return memstore.New(), nil
	}
	return database.NewDataSource(cfg)
}
