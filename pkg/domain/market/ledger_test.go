package market_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
)

func TestApplyTick_FirstObservationHasNoChange(t *testing.T) {
	l := market.NewPriceLedger()

	e := l.ApplyTick(market.Tick{Symbol: "BTC/USD", Price: 100, Timestamp: 1})

	assert.Nil(t, e.Change)
	got, ok := l.Entry("BTC/USD")
	require.True(t, ok)
	assert.Equal(t, 100.0, got.Price)
	assert.Nil(t, got.Change)
}

func TestApplyTick_SecondObservationChange(t *testing.T) {
	testCases := []struct {
		name   string
		p1, p2 float64
	}{
		{name: "rise", p1: 100, p2: 110},
		{name: "fall", p1: 64000.5, p2: 63990.25},
		{name: "flat", p1: 2.5, p2: 2.5},
		{name: "fractional", p1: 0.3, p2: 0.1},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			l := market.NewPriceLedger()
			l.ApplyTick(market.Tick{Symbol: "ETH/USD", Price: tt.p1, Timestamp: 1})
			e := l.ApplyTick(market.Tick{Symbol: "ETH/USD", Price: tt.p2, Timestamp: 2})

			require.NotNil(t, e.Change)
			assert.Equal(t, (tt.p2-tt.p1)/tt.p1*100, *e.Change)
		})
	}
}

func TestApplyTick_ZeroPreviousPriceYieldsUndefinedChange(t *testing.T) {
	l := market.NewPriceLedger()
	l.ApplyTick(market.Tick{Symbol: "X/USD", Price: 0, Timestamp: 1})

	e := l.ApplyTick(market.Tick{Symbol: "X/USD", Price: 5, Timestamp: 2})

	assert.Nil(t, e.Change)
}

func TestApplyTick_DoesNotTouchOtherSymbols(t *testing.T) {
	l := market.NewPriceLedger()
	l.ApplyTick(market.Tick{Symbol: "BTC/USD", Price: 100, Timestamp: 1})
	before, _ := l.Entry("BTC/USD")

	l.ApplyTick(market.Tick{Symbol: "ETH/USD", Price: 10, Timestamp: 2})
	l.ApplyTick(market.Tick{Symbol: "ETH/USD", Price: 11, Timestamp: 3})

	after, _ := l.Entry("BTC/USD")
	assert.Equal(t, before, after)
}

func TestLedger_OneEntryPerSymbolEqualToLatestTick(t *testing.T) {
	l := market.NewPriceLedger()
	symbols := []string{"BTC/USD", "ETH/USD", "SOL/USD", "BTC/EUR"}
	latest := make(map[string]market.Tick)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		tick := market.Tick{
			Symbol:    symbols[rng.Intn(len(symbols))],
			Price:     1 + rng.Float64()*1000,
			Timestamp: int64(i),
		}
		l.ApplyTick(tick)
		latest[tick.Symbol] = tick
	}

	snap := l.Snapshot()
	assert.Len(t, snap, len(latest))
	for sym, tick := range latest {
		e, ok := snap[sym]
		require.True(t, ok, sym)
		assert.Equal(t, tick.Price, e.Price)
		assert.Equal(t, tick.Timestamp, e.Timestamp)
	}
}

func TestLedger_SnapshotIsACopy(t *testing.T) {
	l := market.NewPriceLedger()
	l.ApplyTick(market.Tick{Symbol: "BTC/USD", Price: 1, Timestamp: 1})

	snap := l.Snapshot()
	delete(snap, "BTC/USD")

	assert.Equal(t, 1, l.Len())
}

func TestLedger_TableFiltersAndSortsByPriceDesc(t *testing.T) {
	l := market.NewPriceLedger()
	l.ApplyTick(market.Tick{Symbol: "ETH/USD", Price: 3000, Timestamp: 1})
	l.ApplyTick(market.Tick{Symbol: "BTC/USD", Price: 60000, Timestamp: 1})
	l.ApplyTick(market.Tick{Symbol: "BTC/EUR", Price: 55000, Timestamp: 1})
	l.ApplyTick(market.Tick{Symbol: "DOGE/USD", Price: 0.1, Timestamp: 1})
	l.ApplyTick(market.Tick{Symbol: "ADA/USD", Price: 3000, Timestamp: 1})

	rows := l.Table("/USD")

	var got []string
	for _, r := range rows {
		got = append(got, r.Symbol)
	}
	assert.Equal(t, []string{"BTC/USD", "ADA/USD", "ETH/USD", "DOGE/USD"}, got)
}

func TestLedger_HeatmapExcludesUndefinedChange(t *testing.T) {
	l := market.NewPriceLedger()
	l.ApplyTick(market.Tick{Symbol: "BTC/USD", Price: 100, Timestamp: 1})
	l.ApplyTick(market.Tick{Symbol: "ETH/USD", Price: 100, Timestamp: 1})
	l.ApplyTick(market.Tick{Symbol: "ETH/USD", Price: 99.95, Timestamp: 2})
	l.ApplyTick(market.Tick{Symbol: "ETH/EUR", Price: 100, Timestamp: 1})
	l.ApplyTick(market.Tick{Symbol: "ETH/EUR", Price: 120, Timestamp: 2})

	cells := l.Heatmap("/USD")

	require.Len(t, cells, 1)
	assert.Equal(t, "ETH/USD", cells[0].Symbol)
	assert.Equal(t, "ETH", cells[0].Label)
	assert.Equal(t, market.BucketWeakNegative, cells[0].Bucket)
}

func TestLedger_EndToEndScenario(t *testing.T) {
	l := market.NewPriceLedger()
	assert.Equal(t, 0, l.Len())

	l.ApplyTick(market.Tick{Symbol: "BTC/USD", Price: 100, Timestamp: 1000})
	e, _ := l.Entry("BTC/USD")
	assert.Equal(t, 1, l.Len())
	assert.Nil(t, e.Change)

	e = l.ApplyTick(market.Tick{Symbol: "BTC/USD", Price: 110, Timestamp: 2000})
	require.NotNil(t, e.Change)
	assert.Equal(t, 10.0, *e.Change)

	cells := l.Heatmap("/USD")
	require.Len(t, cells, 1)
	assert.Equal(t, market.BucketStrongPositive, cells[0].Bucket)
}
