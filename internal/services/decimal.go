package services

import "github.com/cockroachdb/apd/v3"

// round2 rounds to two decimal places with banker's rounding, matching the
// DECIMAL(10,2) warehouse columns the values land in.
func round2(v float64) float64 {
	var d apd.Decimal
	if _, err := d.SetFloat64(v); err != nil {
		return v
	}

	ctx := apd.BaseContext.WithPrecision(34)
	var q apd.Decimal
	if _, err := ctx.Quantize(&q, &d, -2); err != nil {
		return v
	}

	f, err := q.Float64()
	if err != nil {
		return v
	}
	return f
}
