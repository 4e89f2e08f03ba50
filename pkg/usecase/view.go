package usecase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
)

// PriceRow は価格表の1行です
type PriceRow struct {
	Symbol     string        `json:"symbol"`
	Price      float64       `json:"price"`
	Change     *float64      `json:"change"`
	ChangeText string        `json:"changeText"`
	Bucket     market.Bucket `json:"bucket"`
	Timestamp  int64         `json:"timestamp"`
	Selected   bool          `json:"selected"`
}

// HeatCellView はヒートマップの1マスです
type HeatCellView struct {
	Symbol     string        `json:"symbol"`
	Label      string        `json:"label"`
	Change     float64       `json:"change"`
	ChangeText string        `json:"changeText"`
	Bucket     market.Bucket `json:"bucket"`
}

// AlertView はアラート一覧の1件です
type AlertView struct {
	ID                 uint64    `json:"id"`
	Symbol             *string   `json:"symbol"`
	LatestPrice        *float64  `json:"latestPrice"`
	PercentageIncrease *float64  `json:"percentageIncrease"`
	Timestamp          *int64    `json:"timestamp"`
	ReceivedAt         time.Time `json:"receivedAt"`
}

// ChartView は選択中の銘柄のチャートです。Bounds はズームリセット時の縦軸範囲でもあります
type ChartView struct {
	Symbol      string            `json:"symbol"`
	Labels      []string          `json:"labels"`
	Values      []float64         `json:"values"`
	LatestPrice *float64          `json:"latestPrice"`
	Bounds      market.AxisBounds `json:"bounds"`
	Waiting     bool              `json:"waiting"`
}

// Snapshot はプッシュ配信する全表示データです
type Snapshot struct {
	Selected string         `json:"selected"`
	Prices   []PriceRow     `json:"prices"`
	Heatmap  []HeatCellView `json:"heatmap"`
	Alerts   []AlertView    `json:"alerts"`
	Chart    ChartView      `json:"chart"`
}

// formatChange は変化率を "+1.23%" の形にします。未定義なら空文字です
func formatChange(change *float64) string {
	if change == nil {
		return ""
	}
	d := decimal.NewFromFloat(*change).Round(2)
	sign := ""
	if d.IsPositive() {
		sign = "+"
	}
	return sign + d.StringFixed(2) + "%"
}
