package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/config"
	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/kafka"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/redis"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/stomp"
	"github.com/r-umemoto/anomaly-dashboard/pkg/usecase"
)

// BuildEngine は、システム全体を俯瞰する「目次」です
func BuildEngine(cfg *config.AppConfig, publisher Publisher, logger *zap.Logger) (*Engine, error) {
	// 1. インフラ層の構築
	gateway, err := buildGateway(cfg, logger)
	if err != nil {
		return nil, err
	}

	// 2. ユースケースの組み立て
	loc, err := cfg.Dashboard.Location()
	if err != nil {
		return nil, err
	}
	dashboardUC := usecase.NewDashboardUseCase(cfg.Dashboard, loc, logger)

	// 3. エンジンの完成
	return NewEngine(gateway, dashboardUC, publisher, logger), nil
}

func buildGateway(cfg *config.AppConfig, logger *zap.Logger) (market.FeedGateway, error) {
	log := logger.With(zap.String("source", cfg.FeedSource))

	switch cfg.FeedSource {
	case config.SourceStomp:
		return stomp.NewGateway(cfg.Stomp, log), nil

	case config.SourceKafka:
		alerts, prices, err := kafka.NewReaders(cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("kafka readers: %w", err)
		}
		return kafka.NewGateway(alerts, prices, cfg.Stomp.ReconnectDelay, log), nil

	case config.SourceRedis:
		client := redis.NewClient(cfg.Redis)
		return redis.NewGateway(client, cfg.Redis, cfg.Stomp.ReconnectDelay, log), nil

	default:
		return nil, fmt.Errorf("未対応のフィードです: %s", cfg.FeedSource)
	}
}
