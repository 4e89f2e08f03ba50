package market

// Bucket はヒートマップの色分け区分です
type Bucket string

const (
	BucketStrongPositive Bucket = "strong-positive"
	BucketWeakPositive   Bucket = "weak-positive"
	BucketNeutral        Bucket = "neutral"
	BucketWeakNegative   Bucket = "weak-negative"
	BucketStrongNegative Bucket = "strong-negative"
)

const bucketThreshold = 0.1

// Classify は変化率(%)から区分を決めます。nil は neutral です
func Classify(change *float64) Bucket {
	if change == nil {
		return BucketNeutral
	}
	c := *change
	switch {
	case c > bucketThreshold:
		return BucketStrongPositive
	case c > 0:
		return BucketWeakPositive
	case c < -bucketThreshold:
		return BucketStrongNegative
	case c < 0:
		return BucketWeakNegative
	default:
		return BucketNeutral
	}
}

// HeatCell はヒートマップの1マスです
type HeatCell struct {
	Symbol string
	Label  string
	Change float64
	Bucket Bucket
}
