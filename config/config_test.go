package config

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Driver: "postgres"},
	}
	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{
		DataSource: DataSourceConfig{Driver: "oracle", Dns: "x"},
	}
	err = cnf.validateAndAddDefaults()
	assert.EqualError(t, err, `unsupported data source driver "oracle"`)

	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource:  DataSourceConfig{Dns: "bank.db"},
	}
	err = cnf.validateAndAddDefaults()
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_DRIVER, cnf.DataSource.Driver)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, DEFAULT_WORKERS, cnf.Processing.Workers)
	assert.Equal(t, DEFAULT_CONCURRENCY, cnf.Processing.Concurrency)
	assert.Equal(t, DEFAULT_BATCH_CONCURRENCY, cnf.Processing.BatchConcurrency)
	assert.Equal(t, DEFAULT_POLL_INTERVAL_MS, cnf.Processing.PollIntervalMs)
	assert.Equal(t, "FIFO", cnf.Processing.Algorithm)
	assert.Equal(t, DEFAULT_PRIORITY, cnf.Processing.DefaultPriority)
	assert.Equal(t, float64(DEFAULT_DAILY_LIMIT), *cnf.TransactionLimit.Daily)
	assert.Equal(t, DEFAULT_EVENT_STREAM, cnf.Events.Stream)
	assert.Nil(t, cnf.RateLimit.RequestsPerSecond)
}

func TestValidateProcessing(t *testing.T) {
	p := ProcessingConfig{Algorithm: "round_robin"}
	require.NoError(t, p.validateAndAddDefaults())
	assert.Equal(t, "ROUND_ROBIN", p.Algorithm)

	p = ProcessingConfig{Algorithm: "LOTTERY"}
	assert.Error(t, p.validateAndAddDefaults())

	p = ProcessingConfig{DefaultPriority: 11}
	assert.EqualError(t, p.validateAndAddDefaults(), "default priority must be between 1 and 10")
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := Configuration{
		DataSource: DataSourceConfig{Driver: "memory"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
	assert.Equal(t, 10800, *cnf.RateLimit.CleanupIntervalSec)
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "bankcore.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource:  DataSourceConfig{Driver: "postgres", Dns: "temp-dns"},
		Processing:  ProcessingConfig{Workers: 7},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	t.Setenv("BANKCORE_PROJECT_NAME", "Env Project")
	t.Setenv("BANKCORE_PROCESSING_ALGORITHM", "priority")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, "temp-dns", loadedConfig.DataSource.Dns)
	assert.Equal(t, 7, loadedConfig.Processing.Workers)
	assert.Equal(t, "PRIORITY", loadedConfig.Processing.Algorithm)
}

func TestInitConfigWithoutFile(t *testing.T) {
	t.Setenv("BANKCORE_DATA_SOURCE_DRIVER", "memory")

	err := InitConfig("does-not-exist.json")
	require.NoError(t, err)

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "memory", cnf.DataSource.Driver)
}

func TestMockConfig(t *testing.T) {
	MockConfig(&Configuration{ProjectName: "mocked"})
	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "mocked", cnf.ProjectName)
}

func TestDefaultConfig(t *testing.T) {
	cnf := DefaultConfig()
	assert.Equal(t, "memory", cnf.DataSource.Driver)
	assert.Equal(t, DEFAULT_CONCURRENCY, cnf.Processing.Concurrency)
}
