package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
	"github.com/r-umemoto/anomaly-dashboard/pkg/usecase"
)

// ErrStopped はエンジン停止後に選択変更を依頼したときのエラーです
var ErrStopped = errors.New("engine stopped")

// Publisher は更新後のスナップショットを配信します
type Publisher interface {
	Publish(snapshot usecase.Snapshot)
}

type selectCommand struct {
	symbol string
	done   chan error
}

// Engine はフィードの受信から各ストアの更新までを1本のループで回す司令部です。
// ストアと選択銘柄を書き換えるのはこのループだけです
type Engine struct {
	gateway     market.FeedGateway
	dashboardUC *usecase.DashboardUseCase
	publisher   Publisher
	logger      *zap.Logger

	commands chan selectCommand
	stopped  chan struct{}
}

func NewEngine(gateway market.FeedGateway, dashboardUC *usecase.DashboardUseCase, publisher Publisher, logger *zap.Logger) *Engine {
	return &Engine{
		gateway:     gateway,
		dashboardUC: dashboardUC,
		publisher:   publisher,
		logger:      logger,
		commands:    make(chan selectCommand),
		stopped:     make(chan struct{}),
	}
}

// Run はフィードを開始し、ctx が終了するまでメインループを回します
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)

	priceCh, alertCh, err := e.gateway.Start(ctx)
	if err != nil {
		return err
	}

	e.logger.Info("dashboard engine started", zap.String("selected", e.dashboardUC.Selected()))

	// メインループ（すべてを1つのselectで統括する）
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("dashboard engine stopping")
			return nil

		case tick, ok := <-priceCh:
			if !ok {
				priceCh = nil
				e.logger.Warn("price channel closed")
				continue
			}
			e.dashboardUC.HandleTick(tick)
			e.publish()

		case alert, ok := <-alertCh:
			if !ok {
				alertCh = nil
				e.logger.Warn("alert channel closed")
				continue
			}
			e.dashboardUC.HandleAlert(alert)
			e.publish()

		case cmd := <-e.commands:
			err := e.dashboardUC.Select(cmd.symbol)
			cmd.done <- err
			if err == nil {
				e.publish()
			}
		}
	}
}

func (e *Engine) publish() {
	if e.publisher != nil {
		e.publisher.Publish(e.dashboardUC.Snapshot())
	}
}

// Select は選択変更をループに依頼し、反映されるまで待ちます
func (e *Engine) Select(ctx context.Context, symbol string) error {
	cmd := selectCommand{symbol: symbol, done: make(chan error, 1)}

	select {
	case e.commands <- cmd:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dashboard は読み取り用のユースケースです
func (e *Engine) Dashboard() *usecase.DashboardUseCase {
	return e.dashboardUC
}

func (e *Engine) Status() market.FeedStatus {
	return e.gateway.Status()
}
