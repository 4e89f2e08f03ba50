package market

import (
	"sync"
	"time"
)

const (
	// DefaultHistoryCapacity はチャート用の履歴の上限です
	DefaultHistoryCapacity = 30
	// LabelLayout は履歴ラベルの時刻書式です
	LabelLayout = "15:04:05"
)

// HistoryPoint はチャートの1点です
type HistoryPoint struct {
	Label     string
	Price     float64
	Timestamp int64
}

// AxisBounds はチャートの縦軸の範囲です
type AxisBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// HistoryWindow は選択中の銘柄の価格推移を保持する固定長のリングバッファです。
// 満杯のときは最も古い1点だけを捨てます
type HistoryWindow struct {
	data  []HistoryPoint
	head  int
	count int
	loc   *time.Location
	mu    sync.RWMutex
}

func NewHistoryWindow(size int, loc *time.Location) *HistoryWindow {
	if size <= 0 {
		size = DefaultHistoryCapacity
	}
	if loc == nil {
		loc = time.Local
	}
	return &HistoryWindow{
		data: make([]HistoryPoint, size),
		loc:  loc,
	}
}

// Append は1点を追加し、容量を超えた場合は先頭を進めます
func (w *HistoryWindow) Append(p HistoryPoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.append(p)
}

func (w *HistoryWindow) append(p HistoryPoint) {
	idx := (w.head + w.count) % len(w.data)
	w.data[idx] = p

	if w.count < len(w.data) {
		w.count++
	} else {
		w.head = (w.head + 1) % len(w.data)
	}
}

// AppendIfSelected は選択銘柄の最新エントリが台帳にあれば1点追加します。
// 台帳の更新時と選択の変更時に呼ばれます
func (w *HistoryWindow) AppendIfSelected(selected string, ledger *PriceLedger) bool {
	entry, ok := ledger.Entry(selected)
	if !ok {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.append(HistoryPoint{
		Label:     w.label(entry.Timestamp),
		Price:     entry.Price,
		Timestamp: entry.Timestamp,
	})
	return true
}

func (w *HistoryWindow) label(ts int64) string {
	return time.UnixMilli(ts).In(w.loc).Format(LabelLayout)
}

// Reset は両方の系列を空にします
func (w *HistoryWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	clear(w.data)
	w.head = 0
	w.count = 0
}

func (w *HistoryWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.count
}

// Points は古い順のコピーを返します
func (w *HistoryWindow) Points() []HistoryPoint {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]HistoryPoint, 0, w.count)
	for i := 0; i < w.count; i++ {
		out = append(out, w.data[(w.head+i)%len(w.data)])
	}
	return out
}

// Series はラベルと値の同じ長さの2系列を返します
func (w *HistoryWindow) Series() (labels []string, values []float64) {
	points := w.Points()
	labels = make([]string, len(points))
	values = make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Label
		values[i] = p.Price
	}
	return labels, values
}

// Bounds はチャートの縦軸範囲を計算します。
// 2点以上なら最小・最大に幅の15%（幅が0なら最小値の1%）を足し、それ以外は latest の ±1% です
func (w *HistoryWindow) Bounds(latest float64) AxisBounds {
	_, values := w.Series()
	return ComputeBounds(values, latest)
}

func ComputeBounds(values []float64, latest float64) AxisBounds {
	if len(values) <= 1 {
		return AxisBounds{Min: latest * 0.99, Max: latest * 1.01}
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	padding := (hi - lo) * 0.15
	if padding == 0 {
		padding = lo * 0.01
	}
	return AxisBounds{Min: lo - padding, Max: hi + padding}
}
