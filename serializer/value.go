package serializer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Value is one classified result-set value. The set of implementations is closed.
type Value interface {
	kind() string
}

// Decimal is a fixed-point number.
type Decimal struct {
	decimal.Decimal
}

// Date is a calendar date; only the year, month and day of Time are used.
type Date struct {
	time.Time
}

// TimeOfDay is a clock reading or, for MySQL TIME columns, a signed interval
// whose hours may exceed 23.
type TimeOfDay struct {
	Negative bool
	Hours    int
	Minutes  int
	Seconds  int
}

// DateTime is a date with a clock time.
type DateTime struct {
	time.Time
}

// Bytes is a raw byte sequence expected to hold UTF-8 text.
type Bytes []byte

// Scalar wraps values that are already JSON-native: nil, bool, string and the numeric types.
type Scalar struct {
	V any
}

func (Decimal) kind() string   { return "decimal" }
func (Date) kind() string      { return "date" }
func (TimeOfDay) kind() string { return "time" }
func (DateTime) kind() string  { return "datetime" }
func (Bytes) kind() string     { return "bytes" }
func (Scalar) kind() string    { return "scalar" }

// Kind reports the classification of v, or "" for a nil Value.
func Kind(v Value) string {
	if v == nil {
		return ""
	}
	return v.kind()
}

// NewTimeOfDay builds a TimeOfDay from a duration.
func NewTimeOfDay(d time.Duration) TimeOfDay {
	t := TimeOfDay{}
	if d < 0 {
		t.Negative = true
		d = -d
	}
	total := int(d / time.Second)
	t.Hours = total / 3600
	t.Minutes = total % 3600 / 60
	t.Seconds = total % 60
	return t
}

func (t TimeOfDay) String() string {
	sign := ""
	if t.Negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d-%02d-%02d", sign, t.Hours, t.Minutes, t.Seconds)
}
