package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
)

const (
	tickBuffer  = 100
	alertBuffer = 10
)

// Sink は生のペイロードをデコードしてエンジン向けのチャネルに流します。
// 1件のデコード失敗で購読全体が止まらないよう、失敗したメッセージはログを出して捨てます
type Sink struct {
	ticks   chan market.Tick
	alerts  chan market.Alert
	counter *Counter
	logger  *zap.Logger
}

func NewSink(counter *Counter, logger *zap.Logger) *Sink {
	return &Sink{
		ticks:   make(chan market.Tick, tickBuffer),
		alerts:  make(chan market.Alert, alertBuffer),
		counter: counter,
		logger:  logger,
	}
}

func (s *Sink) Ticks() <-chan market.Tick   { return s.ticks }
func (s *Sink) Alerts() <-chan market.Alert { return s.alerts }

// DeliverTick は価格メッセージを1件処理します。ctx が終了していれば false を返します
func (s *Sink) DeliverTick(ctx context.Context, data []byte) bool {
	s.counter.Received()
	tick, err := DecodeTick(data)
	if err != nil {
		s.drop("price", data, err)
		return ctx.Err() == nil
	}

	return send(ctx, s.ticks, tick)
}

// DeliverAlert はアラートメッセージを1件処理します
func (s *Sink) DeliverAlert(ctx context.Context, data []byte) bool {
	s.counter.Received()
	alert, err := DecodeAlert(data)
	if err != nil {
		s.drop("alert", data, err)
		return ctx.Err() == nil
	}

	return send(ctx, s.alerts, alert)
}

// send は ctx が終了していれば送らずに false を返します
func send[T any](ctx context.Context, ch chan<- T, v T) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Sink) drop(channel string, data []byte, err error) {
	s.counter.Dropped()
	s.logger.Warn("dropping feed message",
		zap.String("channel", channel),
		zap.ByteString("payload", data),
		zap.Error(err))
}

// Close は両チャネルを閉じます。送信側のゴルーチンがすべて終わってから呼んでください
func (s *Sink) Close() {
	close(s.ticks)
	close(s.alerts)
}
