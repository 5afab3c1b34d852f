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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT              = "5001"
	DEFAULT_DRIVER            = "sqlite3"
	DEFAULT_WORKERS           = 3
	DEFAULT_CONCURRENCY       = 5
	DEFAULT_BATCH_CONCURRENCY = 3
	DEFAULT_POLL_INTERVAL_MS  = 100
	DEFAULT_ALGORITHM         = "FIFO"
	DEFAULT_PRIORITY          = 5
	DEFAULT_DAILY_LIMIT       = 10000
	DEFAULT_EVENT_STREAM      = "bankcore:transactions"
)

var ConfigStore atomic.Value

var supportedDrivers = map[string]bool{
	"postgres": true,
	"sqlite3":  true,
	"mysql":    true,
	"memory":   true,
}

var supportedAlgorithms = map[string]bool{
	"FIFO":        true,
	"PRIORITY":    true,
	"ROUND_ROBIN": true,
}

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"BANKCORE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"BANKCORE_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"BANKCORE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Driver string `json:"driver" envconfig:"BANKCORE_DATA_SOURCE_DRIVER"`
	Dns    string `json:"dns" envconfig:"BANKCORE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"BANKCORE_REDIS_DNS"`
}

type EventsConfig struct {
	Stream string `json:"stream" envconfig:"BANKCORE_EVENTS_STREAM"`
}

// ProcessingConfig controls the worker pool and its concurrency gates.
type ProcessingConfig struct {
	Workers          int    `json:"workers" envconfig:"BANKCORE_PROCESSING_WORKERS"`
	Concurrency      int    `json:"concurrency" envconfig:"BANKCORE_PROCESSING_CONCURRENCY"`
	BatchConcurrency int    `json:"batch_concurrency" envconfig:"BANKCORE_PROCESSING_BATCH_CONCURRENCY"`
	PollIntervalMs   int    `json:"poll_interval_ms" envconfig:"BANKCORE_PROCESSING_POLL_INTERVAL_MS"`
	Algorithm        string `json:"algorithm" envconfig:"BANKCORE_PROCESSING_ALGORITHM"`
	DefaultPriority  int    `json:"default_priority" envconfig:"BANKCORE_PROCESSING_DEFAULT_PRIORITY"`
}

type TransactionLimitConfig struct {
	Daily *float64 `json:"daily" envconfig:"BANKCORE_TRANSACTION_LIMIT_DAILY"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"BANKCORE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"BANKCORE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"BANKCORE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"BANKCORE_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName      string                 `json:"project_name" envconfig:"BANKCORE_PROJECT_NAME"`
	EnableTelemetry  bool                   `json:"enable_telemetry" envconfig:"BANKCORE_ENABLE_TELEMETRY"`
	Server           ServerConfig           `json:"server"`
	DataSource       DataSourceConfig       `json:"data_source"`
	Redis            RedisConfig            `json:"redis"`
	Events           EventsConfig           `json:"events"`
	Processing       ProcessingConfig       `json:"processing"`
	TransactionLimit TransactionLimitConfig `json:"transaction_limit"`
	Notification     Notification           `json:"notification"`
	RateLimit        RateLimitConfig        `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("bankcore", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called bankcore.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Bankcore"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Driver = strings.ToLower(strings.TrimSpace(cnf.DataSource.Driver))
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.DataSource.Driver == "" {
		cnf.DataSource.Driver = DEFAULT_DRIVER
	}
	if !supportedDrivers[cnf.DataSource.Driver] {
		return fmt.Errorf("unsupported data source driver %q", cnf.DataSource.Driver)
	}
	if cnf.DataSource.Driver != "memory" && cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if err := cnf.Processing.validateAndAddDefaults(); err != nil {
		return err
	}

	if cnf.TransactionLimit.Daily == nil {
		limit := float64(DEFAULT_DAILY_LIMIT)
		cnf.TransactionLimit.Daily = &limit
	}
	if *cnf.TransactionLimit.Daily < 0 {
		return errors.New("daily transaction limit cannot be negative")
	}

	if cnf.Events.Stream == "" {
		cnf.Events.Stream = DEFAULT_EVENT_STREAM
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (p *ProcessingConfig) validateAndAddDefaults() error {
	if p.Workers <= 0 {
		p.Workers = DEFAULT_WORKERS
	}
	if p.Concurrency <= 0 {
		p.Concurrency = DEFAULT_CONCURRENCY
	}
	if p.BatchConcurrency <= 0 {
		p.BatchConcurrency = DEFAULT_BATCH_CONCURRENCY
	}
	if p.PollIntervalMs <= 0 {
		p.PollIntervalMs = DEFAULT_POLL_INTERVAL_MS
	}
	p.Algorithm = strings.ToUpper(strings.TrimSpace(p.Algorithm))
	if p.Algorithm == "" {
		p.Algorithm = DEFAULT_ALGORITHM
	}
	if !supportedAlgorithms[p.Algorithm] {
		return fmt.Errorf("unknown scheduling algorithm %q", p.Algorithm)
	}
	if p.DefaultPriority == 0 {
		p.DefaultPriority = DEFAULT_PRIORITY
	}
	if p.DefaultPriority < 1 || p.DefaultPriority > 10 {
		return errors.New("default priority must be between 1 and 10")
	}
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

// DefaultConfig returns an in-memory configuration with every default applied.
func DefaultConfig() *Configuration {
	cnf := &Configuration{DataSource: DataSourceConfig{Driver: "memory"}}
	_ = cnf.validateAndAddDefaults()
	return cnf
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
