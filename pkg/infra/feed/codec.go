// Package feed はフィードの2チャネル（アラート・価格）の共通デコードを担当します
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
)

var (
	// ErrMalformedPayload は JSON として解釈できないペイロードです
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrInvalidTick は銘柄や価格が不正な価格データです
	ErrInvalidTick = errors.New("invalid tick")
)

// DecodeTick は価格チャネルの1メッセージをデコードし、取り込み時の検証を行います
func DecodeTick(data []byte) (market.Tick, error) {
	var p PricePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return market.Tick{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if p.Symbol == "" {
		return market.Tick{}, fmt.Errorf("%w: empty symbol", ErrInvalidTick)
	}
	if p.Price == nil {
		return market.Tick{}, fmt.Errorf("%w: %s has no price", ErrInvalidTick, p.Symbol)
	}
	price := *p.Price
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return market.Tick{}, fmt.Errorf("%w: %s price %v", ErrInvalidTick, p.Symbol, price)
	}

	return market.Tick{
		Symbol:    p.Symbol,
		Price:     price,
		Timestamp: p.Timestamp,
	}, nil
}

// DecodeAlert はアラートチャネルの1メッセージをデコードします。各項目は任意です
func DecodeAlert(data []byte) (market.Alert, error) {
	var p AlertPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return market.Alert{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return market.Alert{
		Symbol:             p.Symbol,
		LatestPrice:        p.LatestPrice,
		PercentageIncrease: p.PercentageIncrease,
		Timestamp:          p.Timestamp,
	}, nil
}

// Counter は受信件数と破棄件数を数えます
type Counter struct {
	received  atomic.Uint64
	dropped   atomic.Uint64
	connected atomic.Bool
}

func (c *Counter) Received()            { c.received.Add(1) }
func (c *Counter) Dropped()             { c.dropped.Add(1) }
func (c *Counter) SetConnected(ok bool) { c.connected.Store(ok) }
func (c *Counter) IsConnected() bool    { return c.connected.Load() }

// Status は source 名を付けて現在値を返します
func (c *Counter) Status(source string) market.FeedStatus {
	return market.FeedStatus{
		Source:    source,
		Connected: c.connected.Load(),
		Received:  c.received.Load(),
		Dropped:   c.dropped.Load(),
	}
}
