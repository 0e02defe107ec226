package storage

import (
	"database/sql"
	"math"
)

// sqlite has no NaN; undefined metrics are stored as NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

type nullFloat struct{ sql.NullFloat64 }

func (n nullFloat) value() float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}
