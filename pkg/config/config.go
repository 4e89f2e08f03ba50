package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/kafka"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/redis"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/stomp"
	"github.com/r-umemoto/anomaly-dashboard/pkg/logger"
	"github.com/r-umemoto/anomaly-dashboard/pkg/usecase"
)

// フィードの接続元
const (
	SourceStomp = "stomp"
	SourceKafka = "kafka"
	SourceRedis = "redis"
)

// AppConfig はシステム全体の設定です
type AppConfig struct {
	FeedSource string `envconfig:"FEED_SOURCE" default:"stomp"`
	Stomp      stomp.Config
	Kafka      kafka.Config
	Redis      redis.Config
	Dashboard  usecase.Config
	HTTP       HTTPConfig
	Log        logger.Config
	Mock       MockConfig
}

// HTTPConfig はAPIサーバーの設定です
type HTTPConfig struct {
	Addr           string        `envconfig:"HTTP_ADDR" default:":3000"`
	RequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"5s"`
}

// MockConfig は cmd/mock だけが使う設定です
type MockConfig struct {
	Addr     string        `envconfig:"MOCK_ADDR" default:":8080"`
	Interval time.Duration `envconfig:"MOCK_INTERVAL" default:"1s"`
}

// Load は .env、設定ファイル、環境変数の順に読み込んで設定を返します。
// 設定ファイルのキーは環境変数名で、未設定の環境変数だけを埋めます
func Load() (*AppConfig, error) {
	// .env が無い環境もあるのでエラーは無視する
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config/config.yml"
	}
	if err := applyFile(path); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyFile はYAMLの各キーを、まだ設定されていない環境変数として登録します
func applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	for key, v := range values {
		key = strings.ToUpper(key)
		if _, ok := os.LookupEnv(key); ok {
			continue
		}

		value, err := scalar(v)
		if err != nil {
			return fmt.Errorf("config file %s: key %s: %w", path, key, err)
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

func scalar(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, err := scalar(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	case map[string]any:
		return "", errors.New("nested mappings are not supported")
	default:
		return fmt.Sprint(val), nil
	}
}

// Validate は起動前に弾くべき設定ミスを検出します
func (c *AppConfig) Validate() error {
	switch c.FeedSource {
	case SourceStomp:
		if err := c.Stomp.Validate(); err != nil {
			return err
		}
	case SourceKafka:
		if len(c.Kafka.BrokerList()) == 0 {
			return errors.New("KAFKA_BROKERS must not be empty")
		}
	case SourceRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR must not be empty")
		}
	default:
		return fmt.Errorf("unknown feed source %q", c.FeedSource)
	}

	if c.Dashboard.HistorySize <= 0 {
		return fmt.Errorf("DASHBOARD_HISTORY_SIZE must be positive: %d", c.Dashboard.HistorySize)
	}
	if c.Dashboard.AlertSize <= 0 {
		return fmt.Errorf("DASHBOARD_ALERT_SIZE must be positive: %d", c.Dashboard.AlertSize)
	}
	if _, err := c.Dashboard.Location(); err != nil {
		return err
	}
	return nil
}
