// Package serializer converts values read from a shard into transport-safe scalars.
//
// Driver values are first classified into a closed set of kinds, the Value sum
// type, and then rendered by Serialize:
//
//	Decimal    -> float64
//	Date       -> "YYYY-MM-DD"
//	TimeOfDay  -> "HH-MM-SS"
//	DateTime   -> "YYYY-MM-DD HH-MM-SS"
//	Bytes      -> UTF-8 string
//	Scalar     -> unchanged (int64, float64, string, bool, nil)
//
// Value is sealed: only this package can add kinds, and Serialize switches over
// all of them. A Go value that cannot be classified fails with an
// *UnsupportedTypeError, which matches ErrUnsupportedSerializationType.
//
// Classification needs the column's database type for values the driver returns
// as raw text (DECIMAL and TIME arrive as []byte from MySQL), so rows are
// normally converted with Row, which takes the column metadata alongside the
// scanned values.
package serializer
