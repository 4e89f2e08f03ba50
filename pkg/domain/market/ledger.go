// pkg/domain/market/ledger.go
package market

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// PriceEntry は銘柄ごとの最新価格です。Change は初回観測時には nil です
type PriceEntry struct {
	Symbol    string
	Price     float64
	Timestamp int64
	Change    *float64
}

// PriceLedger は銘柄 → 最新価格のマップを保持し、更新のたびに変化率を再計算します
type PriceLedger struct {
	entries map[string]PriceEntry
	mu      sync.RWMutex // 書き込みはエンジンのループのみ、読み込みは複数ゴルーチンから
}

func NewPriceLedger() *PriceLedger {
	return &PriceLedger{
		entries: make(map[string]PriceEntry),
	}
}

// ApplyTick は Tick をマージし、更新後のエントリを返します。他の銘柄には触れません
func (l *PriceLedger) ApplyTick(tick Tick) PriceEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := PriceEntry{
		Symbol:    tick.Symbol,
		Price:     tick.Price,
		Timestamp: tick.Timestamp,
	}
	if prev, exists := l.entries[tick.Symbol]; exists {
		entry.Change = changePercent(prev.Price, tick.Price)
	}

	l.entries[tick.Symbol] = entry
	return entry
}

// 前回価格が 0 の場合や結果が有限でない場合は未定義(nil)とします
func changePercent(oldPrice, newPrice float64) *float64 {
	if oldPrice == 0 {
		return nil
	}
	c := (newPrice - oldPrice) / oldPrice * 100
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return nil
	}
	return &c
}

// Entry は指定銘柄の最新エントリを返します
func (l *PriceLedger) Entry(symbol string) (PriceEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[symbol]
	return e, ok
}

// Len は保持している銘柄数です
func (l *PriceLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot はその時点のマップのコピーを返します
func (l *PriceLedger) Snapshot() map[string]PriceEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]PriceEntry, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

// Table は suffix で終わる銘柄を価格の降順で返します（同値は銘柄名順）
func (l *PriceLedger) Table(suffix string) []PriceEntry {
	l.mu.RLock()
	rows := make([]PriceEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if strings.HasSuffix(e.Symbol, suffix) {
			rows = append(rows, e)
		}
	}
	l.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Price != rows[j].Price {
			return rows[i].Price > rows[j].Price
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}

// Heatmap は変化率が定義済みで suffix に一致する銘柄を銘柄名順で返します
func (l *PriceLedger) Heatmap(suffix string) []HeatCell {
	l.mu.RLock()
	cells := make([]HeatCell, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Change == nil || !strings.HasSuffix(e.Symbol, suffix) {
			continue
		}
		cells = append(cells, HeatCell{
			Symbol: e.Symbol,
			Label:  strings.Replace(e.Symbol, suffix, "", 1),
			Change: *e.Change,
			Bucket: Classify(e.Change),
		})
	}
	l.mu.RUnlock()

	sort.Slice(cells, func(i, j int) bool { return cells[i].Symbol < cells[j].Symbol })
	return cells
}
