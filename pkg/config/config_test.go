package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv はテスト終了時に元の値へ戻るようにしてから環境変数を消します
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_FILE", path)
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, SourceStomp, cfg.FeedSource)
	assert.Equal(t, "http://localhost:8080/ws-alerts", cfg.Stomp.URL)
	assert.Equal(t, "auto", cfg.Stomp.Transport)
	assert.Equal(t, "/topic/alerts", cfg.Stomp.AlertTopic)
	assert.Equal(t, "/topic/prices", cfg.Stomp.PriceTopic)
	assert.Equal(t, 5*time.Second, cfg.Stomp.ReconnectDelay)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Brokers)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "/USD", cfg.Dashboard.QuoteSuffix)
	assert.Equal(t, "BTC/USD", cfg.Dashboard.DefaultSymbol)
	assert.Equal(t, 30, cfg.Dashboard.HistorySize)
	assert.Equal(t, 15, cfg.Dashboard.AlertSize)
	assert.Equal(t, ":3000", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Second, cfg.Mock.Interval)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))
	t.Setenv("WEBSOCKET_URL", "ws://feed.example.com/stomp")
	t.Setenv("RECONNECT_DELAY", "250ms")
	t.Setenv("DASHBOARD_HISTORY_SIZE", "60")
	t.Setenv("HTTP_ADDR", ":9000")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ws://feed.example.com/stomp", cfg.Stomp.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Stomp.ReconnectDelay)
	assert.Equal(t, 60, cfg.Dashboard.HistorySize)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
}

func TestLoad_ConfigFileFillsUnsetVariables(t *testing.T) {
	unsetEnv(t, "FEED_SOURCE", "REDIS_DB", "KAFKA_BROKERS", "REDIS_PRICE_CHANNEL")
	t.Setenv("DASHBOARD_DEFAULT_SYMBOL", "SOL/USD")
	writeConfigFile(t, `
FEED_SOURCE: redis
REDIS_DB: 2
redis_price_channel: ticks
KAFKA_BROKERS:
  - a:9092
  - b:9092
DASHBOARD_DEFAULT_SYMBOL: ETH/USD
`)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, SourceRedis, cfg.FeedSource)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "ticks", cfg.Redis.PriceChannel)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.BrokerList())
	assert.Equal(t, "SOL/USD", cfg.Dashboard.DefaultSymbol, "environment wins over file")
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "unknown feed source", env: map[string]string{"FEED_SOURCE": "carrier-pigeon"}},
		{name: "bad transport", env: map[string]string{"STOMP_TRANSPORT": "xhr"}},
		{name: "bad timezone", env: map[string]string{"DASHBOARD_TIMEZONE": "Nowhere/City"}},
		{name: "zero history", env: map[string]string{"DASHBOARD_HISTORY_SIZE": "0"}},
		{name: "not a duration", env: map[string]string{"RECONNECT_DELAY": "soon"}},
		{name: "nested file keys", file: "stomp:\n  url: x\n"},
		{name: "broken yaml", file: "FEED_SOURCE: [\n"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if tt.file != "" {
				writeConfigFile(t, tt.file)
			} else {
				t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()

			assert.Error(t, err)
		})
	}
}
