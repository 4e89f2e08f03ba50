package feed

// PricePayload は価格チャネルの JSON です
type PricePayload struct {
	Symbol    string   `json:"symbol"`
	Price     *float64 `json:"price"`
	Timestamp int64    `json:"timestamp"` // epoch millis
}

// AlertPayload はアラートチャネルの JSON です。上流(ストリーム処理側)のキーは大文字です。
// encoding/json は大文字小文字を区別しないので小文字キーも受け付けます
type AlertPayload struct {
	Symbol             *string  `json:"SYMBOL"`
	LatestPrice        *float64 `json:"LATESTPRICE"`
	PercentageIncrease *float64 `json:"PERCENTAGEINCREASE"`
	Timestamp          *int64   `json:"TIMESTAMP"`
}
