package usecase

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/export"
	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
)

// ErrEmptySymbol は空の銘柄を選択しようとしたときのエラーです
var ErrEmptySymbol = errors.New("symbol must not be empty")

// Config はダッシュボードの表示設定です
type Config struct {
	QuoteSuffix   string `envconfig:"DASHBOARD_QUOTE_SUFFIX" default:"/USD"`
	DefaultSymbol string `envconfig:"DASHBOARD_DEFAULT_SYMBOL" default:"BTC/USD"`
	HistorySize   int    `envconfig:"DASHBOARD_HISTORY_SIZE" default:"30"`
	AlertSize     int    `envconfig:"DASHBOARD_ALERT_SIZE" default:"15"`
	Timezone      string `envconfig:"DASHBOARD_TIMEZONE" default:"Local"`
}

// Location はラベル表示に使うタイムゾーンです
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DashboardUseCase は価格台帳・アラート・履歴の3つのストアと選択中の銘柄を持ちます。
// 更新(Handle*, Select)はエンジンのループからのみ呼ばれ、読み取りはどこからでも呼べます
type DashboardUseCase struct {
	ledger  *market.PriceLedger
	alerts  *market.AlertBuffer
	history *market.HistoryWindow
	suffix  string
	logger  *zap.Logger

	mu       sync.RWMutex
	selected string
}

func NewDashboardUseCase(cfg Config, loc *time.Location, logger *zap.Logger) *DashboardUseCase {
	return &DashboardUseCase{
		ledger:   market.NewPriceLedger(),
		alerts:   market.NewAlertBuffer(cfg.AlertSize),
		history:  market.NewHistoryWindow(cfg.HistorySize, loc),
		suffix:   cfg.QuoteSuffix,
		logger:   logger,
		selected: cfg.DefaultSymbol,
	}
}

// HandleTick は価格を台帳に反映し、選択中の銘柄の履歴を1点伸ばします
func (u *DashboardUseCase) HandleTick(tick market.Tick) market.PriceEntry {
	u.mu.Lock()
	defer u.mu.Unlock()

	entry := u.ledger.ApplyTick(tick)
	u.history.AppendIfSelected(u.selected, u.ledger)
	return entry
}

// HandleAlert はアラートを先頭に積みます
func (u *DashboardUseCase) HandleAlert(alert market.Alert) market.Alert {
	stored := u.alerts.Push(alert)
	u.logger.Debug("alert received",
		zap.Uint64("id", stored.ID),
		zap.Stringp("symbol", stored.Symbol),
		zap.Float64p("percentageIncrease", stored.PercentageIncrease))
	return stored
}

// Select は表示銘柄を切り替えます。履歴をリセットし、台帳に値があれば1点目を追加します
func (u *DashboardUseCase) Select(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return ErrEmptySymbol
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.selected = symbol
	u.history.Reset()
	u.history.AppendIfSelected(u.selected, u.ledger)
	u.logger.Info("selection changed", zap.String("symbol", symbol))
	return nil
}

func (u *DashboardUseCase) Selected() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.selected
}

// Prices は価格表の行を価格の降順で返します
func (u *DashboardUseCase) Prices() []PriceRow {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.prices()
}

func (u *DashboardUseCase) prices() []PriceRow {
	entries := u.ledger.Table(u.suffix)
	rows := make([]PriceRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, PriceRow{
			Symbol:     e.Symbol,
			Price:      e.Price,
			Change:     e.Change,
			ChangeText: formatChange(e.Change),
			Bucket:     market.Classify(e.Change),
			Timestamp:  e.Timestamp,
			Selected:   e.Symbol == u.selected,
		})
	}
	return rows
}

// Heatmap は変化率が出ている銘柄のマスを返します
func (u *DashboardUseCase) Heatmap() []HeatCellView {
	cells := u.ledger.Heatmap(u.suffix)
	views := make([]HeatCellView, 0, len(cells))
	for _, c := range cells {
		change := c.Change
		views = append(views, HeatCellView{
			Symbol:     c.Symbol,
			Label:      c.Label,
			Change:     c.Change,
			ChangeText: formatChange(&change),
			Bucket:     c.Bucket,
		})
	}
	return views
}

// Alerts は新しい順のアラート一覧です
func (u *DashboardUseCase) Alerts() []AlertView {
	alerts := u.alerts.List()
	views := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, AlertView{
			ID:                 a.ID,
			Symbol:             a.Symbol,
			LatestPrice:        a.LatestPrice,
			PercentageIncrease: a.PercentageIncrease,
			Timestamp:          a.Timestamp,
			ReceivedAt:         a.ReceivedAt,
		})
	}
	return views
}

// Chart は選択中の銘柄の履歴と縦軸範囲を返します
func (u *DashboardUseCase) Chart() ChartView {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.chart()
}

func (u *DashboardUseCase) chart() ChartView {
	labels, values := u.history.Series()
	view := ChartView{
		Symbol:  u.selected,
		Labels:  labels,
		Values:  values,
		Waiting: len(values) < 2,
	}

	latest := 0.0
	if entry, ok := u.ledger.Entry(u.selected); ok {
		latest = entry.Price
		view.LatestPrice = &latest
	} else if n := len(values); n > 0 {
		latest = values[n-1]
	}
	view.Bounds = market.ComputeBounds(values, latest)
	return view
}

// Snapshot は全ての表示データをまとめて返します
func (u *DashboardUseCase) Snapshot() Snapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()

	return Snapshot{
		Selected: u.selected,
		Prices:   u.prices(),
		Heatmap:  u.Heatmap(),
		Alerts:   u.Alerts(),
		Chart:    u.chart(),
	}
}

// ExportCSV は現在の履歴をCSVで書き出し、ダウンロード用のファイル名を返します
func (u *DashboardUseCase) ExportCSV(w io.Writer) (string, error) {
	u.mu.RLock()
	points := u.history.Points()
	name := export.FileName(u.selected)
	u.mu.RUnlock()

	if err := export.WriteCSV(w, points); err != nil {
		return "", fmt.Errorf("write chart csv: %w", err)
	}
	return name, nil
}
