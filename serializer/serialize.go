package serializer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15-04-05"
)

// Serialize renders v as a transport-safe scalar. It is a pure function.
func Serialize(v Value) (any, error) {
	switch val := v.(type) {
	case Decimal:
		return val.InexactFloat64(), nil
	case Date:
		return val.Format(dateLayout), nil
	case TimeOfDay:
		return val.String(), nil
	case DateTime:
		return val.Format(dateTimeLayout), nil
	case Bytes:
		if !utf8.Valid(val) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedSerializationType, ErrInvalidText)
		}
		return string(val), nil
	case Scalar:
		return val.V, nil
	default:
		return nil, &UnsupportedTypeError{GoType: fmt.Sprintf("%T", v)}
	}
}

// SerializeNative classifies a plain Go value with FromNative and serializes it.
func SerializeNative(raw any) (any, error) {
	v, err := FromNative(raw)
	if err != nil {
		return nil, err
	}
	return Serialize(v)
}

// FromNative classifies a Go value without column metadata.
// time.Time is treated as a DateTime and time.Duration as a TimeOfDay.
func FromNative(raw any) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return Scalar{}, nil
	case Value:
		return val, nil
	case bool, string, float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return Scalar{V: val}, nil
	case []byte:
		return Bytes(val), nil
	case decimal.Decimal:
		return Decimal{val}, nil
	case time.Time:
		return DateTime{val}, nil
	case time.Duration:
		return NewTimeOfDay(val), nil
	default:
		return nil, &UnsupportedTypeError{GoType: fmt.Sprintf("%T", raw)}
	}
}

// FromColumn classifies raw using the column's database type name as reported by
// database/sql (for example "DECIMAL", "DATE", "TIME", "DATETIME", "VARCHAR").
// Unknown column types fall back to FromNative.
func FromColumn(dbType string, raw any) (Value, error) {
	if raw == nil {
		return Scalar{}, nil
	}

	dbType = strings.ToUpper(dbType)
	switch dbType {
	case "DECIMAL", "NUMERIC", "NEWDECIMAL":
		return decimalFrom(dbType, raw)
	case "DATE":
		return dateFrom(dbType, raw)
	case "TIME":
		return timeOfDayFrom(dbType, raw)
	case "DATETIME", "TIMESTAMP":
		return dateTimeFrom(dbType, raw)
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR",
		"UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED INT", "UNSIGNED BIGINT":
		return integerFrom(raw)
	case "FLOAT", "DOUBLE", "REAL":
		return floatFrom(raw)
	default:
		return FromNative(raw)
	}
}

// Row serializes one scanned row into a column name -> value mapping.
// columns, dbTypes and raw must have the same length.
func Row(columns, dbTypes []string, raw []any) (map[string]any, error) {
	if len(columns) != len(raw) || len(dbTypes) != len(raw) {
		return nil, fmt.Errorf("serializer: row has %d values for %d columns", len(raw), len(columns))
	}

	row := make(map[string]any, len(columns))
	for i, name := range columns {
		v, err := FromColumn(dbTypes[i], raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		out, err := Serialize(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		row[name] = out
	}
	return row, nil
}

// integerFrom parses integers sent as text by the MySQL text protocol.
func integerFrom(raw any) (Value, error) {
	text, ok := raw.([]byte)
	if !ok {
		return FromNative(raw)
	}
	if n, err := strconv.ParseInt(string(text), 10, 64); err == nil {
		return Scalar{V: n}, nil
	}
	n, err := strconv.ParseUint(string(text), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("serializer: parse integer %q: %w", text, err)
	}
	return Scalar{V: n}, nil
}

func floatFrom(raw any) (Value, error) {
	text, ok := raw.([]byte)
	if !ok {
		return FromNative(raw)
	}
	f, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return nil, fmt.Errorf("serializer: parse float %q: %w", text, err)
	}
	return Scalar{V: f}, nil
}

func decimalFrom(dbType string, raw any) (Value, error) {
	switch val := raw.(type) {
	case []byte:
		d, err := decimal.NewFromString(string(val))
		if err != nil {
			return nil, fmt.Errorf("serializer: parse decimal %q: %w", val, err)
		}
		return Decimal{d}, nil
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return nil, fmt.Errorf("serializer: parse decimal %q: %w", val, err)
		}
		return Decimal{d}, nil
	case float64:
		return Decimal{decimal.NewFromFloat(val)}, nil
	case int64:
		return Decimal{decimal.NewFromInt(val)}, nil
	case decimal.Decimal:
		return Decimal{val}, nil
	default:
		return nil, &UnsupportedTypeError{GoType: fmt.Sprintf("%T", raw), DBType: dbType}
	}
}

func dateFrom(dbType string, raw any) (Value, error) {
	switch val := raw.(type) {
	case time.Time:
		return Date{val}, nil
	case []byte:
		return parseDate(string(val))
	case string:
		return parseDate(val)
	default:
		return nil, &UnsupportedTypeError{GoType: fmt.Sprintf("%T", raw), DBType: dbType}
	}
}

func parseDate(s string) (Value, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("serializer: parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func dateTimeFrom(dbType string, raw any) (Value, error) {
	switch val := raw.(type) {
	case time.Time:
		return DateTime{val}, nil
	case []byte:
		return parseDateTime(string(val))
	case string:
		return parseDateTime(val)
	default:
		return nil, &UnsupportedTypeError{GoType: fmt.Sprintf("%T", raw), DBType: dbType}
	}
}

func parseDateTime(s string) (Value, error) {
	for _, layout := range []string{"2006-01-02 15:04:05.999999999", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateTime{t}, nil
		}
	}
	return nil, fmt.Errorf("serializer: parse datetime %q", s)
}

func timeOfDayFrom(dbType string, raw any) (Value, error) {
	switch val := raw.(type) {
	case time.Time:
		return TimeOfDay{Hours: val.Hour(), Minutes: val.Minute(), Seconds: val.Second()}, nil
	case time.Duration:
		return NewTimeOfDay(val), nil
	case []byte:
		return parseTimeOfDay(string(val))
	case string:
		return parseTimeOfDay(val)
	default:
		return nil, &UnsupportedTypeError{GoType: fmt.Sprintf("%T", raw), DBType: dbType}
	}
}

// parseTimeOfDay reads MySQL TIME text: [-]H+:MM:SS[.ffffff].
func parseTimeOfDay(s string) (Value, error) {
	t := TimeOfDay{}
	text := s
	if strings.HasPrefix(text, "-") {
		t.Negative = true
		text = text[1:]
	}
	if i := strings.IndexByte(text, '.'); i >= 0 {
		text = text[:i]
	}

	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("serializer: parse time %q", s)
	}
	fields := [3]*int{&t.Hours, &t.Minutes, &t.Seconds}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("serializer: parse time %q", s)
		}
		*fields[i] = n
	}
	if t.Minutes > 59 || t.Seconds > 59 {
		return nil, fmt.Errorf("serializer: parse time %q", s)
	}
	return t, nil
}
