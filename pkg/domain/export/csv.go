// Package export はチャート履歴をファイルとして書き出します
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
)

const (
	ColumnTime  = "Zaman"
	ColumnPrice = "Fiyat"

	fileSuffix = "_chart_data.csv"
)

// WriteCSV はヘッダ行と、履歴の1点につき1行を書き出します
func WriteCSV(w io.Writer, points []market.HistoryPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnTime, ColumnPrice}); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for _, p := range points {
		row := []string{p.Label, FormatPrice(p.Price)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv row %q: %w", p.Label, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatPrice は価格を最短の10進表記にします
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).String()
}

// FileName は "BTC/USD" → "BTC_USD_chart_data.csv" のようなファイル名を返します
func FileName(symbol string) string {
	return strings.Replace(symbol, "/", "_", 1) + fileSuffix
}
