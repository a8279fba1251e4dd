package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
server:
  addr: ":9090"
  log_level: debug
kafka:
  brokers: ["localhost:9092"]
individual:
  timeout: 2s
household:
  network_errors_as_entity_errors: true
`))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Individual.Timeout)
	assert.True(t, cfg.Household.NetworkErrorsAsEntityErrors)
	// untouched keys keep their defaults
	assert.Equal(t, "/individual/v1/_search", cfg.Individual.SearchPath)
	assert.Equal(t, 100, cfg.Household.SearchLimit)
}

func TestLoadFromReaderEmpty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  adress: \":1\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode yaml")
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.LogLevel = "loud"
	cfg.Household.SearchLimit = 0
	cfg.Individual.SearchPath = "individual/_search"
	cfg.Kafka.Brokers = []string{"b:9092"}
	cfg.Kafka.UpdateTopic = ""

	err := Validate(cfg)
	require.Error(t, err)
	for _, want := range []string{"server.log_level", "household.search_limit", "individual.search_path", "kafka.update_topic"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"HCM_ADDR":           ":7000",
		"KAFKA_BROKERS":      "a:9092, b:9092,",
		"REDIS_URL":          "redis://localhost:6379/0",
		"INDIVIDUAL_TIMEOUT": "750ms",
	}
	env["HOUSEHOLD_NETWORK_ERRORS_AS_ENTITY_ERRORS"] = "true"
	cfg := Defaults()
	require.NoError(t, applyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.True(t, cfg.Household.NetworkErrorsAsEntityErrors)
	assert.Equal(t, 750*time.Millisecond, cfg.Individual.Timeout)
}

func TestApplyEnvRejectsMalformedValues(t *testing.T) {
	env := map[string]string{"HOUSEHOLD_SEARCH_LIMIT": "many", "HCM_REQUIRE_AUTH": "sure"}
	cfg := Defaults()
	err := applyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOUSEHOLD_SEARCH_LIMIT")
	assert.Contains(t, err.Error(), "HCM_REQUIRE_AUTH")
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hcm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\nhousehold:\n  search_limit: 50\n"), 0o600))
	t.Setenv(EnvConfigFile, path)
	t.Setenv("HOUSEHOLD_SEARCH_LIMIT", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 25, cfg.Household.SearchLimit)
}
