package market

import (
	"context"
	"time"
)

// Tick はフィードから届く1件の価格観測です
type Tick struct {
	Symbol    string
	Price     float64
	Timestamp int64 // epoch millis
}

// Alert は異常検知システムからの通知です。ID と ReceivedAt は受信時に採番されます
type Alert struct {
	ID                 uint64
	Symbol             *string
	LatestPrice        *float64
	PercentageIncrease *float64
	Timestamp          *int64
	ReceivedAt         time.Time
}

// FeedStatus はフィード接続の状態と受信カウンタです
type FeedStatus struct {
	Source    string
	Connected bool
	Received  uint64
	Dropped   uint64
}

// FeedGateway は価格とアラートの2つのチャネルを供給する規格です
type FeedGateway interface {
	// Start は接続を開始し、2つのイベントチャネルを返します。ctx のキャンセルで両方が止まります
	Start(ctx context.Context) (<-chan Tick, <-chan Alert, error)
	Status() FeedStatus
}
