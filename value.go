/*
Package dynamodol – external key and value shapes.
*/
package dynamodol

// Item is a flat attribute map, the remote engine's native item shape.
type Item map[string]any

// Key is an external mapping key: a partition value plus, for composite
// schemas, a sort value. Construct with NewKey or NewCompositeKey; the key
// shape must match the reader's key schema exactly.
type Key struct {
	partition any
	sort      any
	composite bool
}

// NewKey builds a scalar key for a single-field key schema.
func NewKey(partition any) Key {
	return Key{partition: partition}
}

// NewCompositeKey builds a (partition, sort) key for a composite key schema.
func NewCompositeKey(partition, sort any) Key {
	return Key{partition: partition, sort: sort, composite: true}
}

// Partition returns the partition key value.
func (k Key) Partition() any { return k.partition }

// Sort returns the sort key value and whether the key is composite.
func (k Key) Sort() (any, bool) { return k.sort, k.composite }

// ValueKind selects the external value shape.
type ValueKind int

const (
	// KindScalar is a single bare value (one data field).
	KindScalar ValueKind = iota
	// KindTuple is an ordered sequence zipped against the data fields.
	KindTuple
	// KindRecord is an attribute map stored attribute-for-attribute.
	KindRecord
)

// Value is an external record in one of the three shapes. The shape is chosen
// by the caller at construction, never inferred per call.
type Value struct {
	kind   ValueKind
	scalar any
	tuple  []any
	record Item
}

// ScalarValue wraps a single bare value.
func ScalarValue(v any) Value {
	return Value{kind: KindScalar, scalar: v}
}

// TupleValue wraps an ordered sequence of values.
func TupleValue(vs ...any) Value {
	return Value{kind: KindTuple, tuple: vs}
}

// RecordValue wraps an attribute map. On write the map is stored
// attribute-for-attribute, bypassing the configured data fields.
func RecordValue(item Item) Value {
	return Value{kind: KindRecord, record: item}
}

// Kind returns the value's shape.
func (v Value) Kind() ValueKind { return v.kind }

// Scalar returns the bare value of a KindScalar Value.
func (v Value) Scalar() any { return v.scalar }

// Tuple returns the ordered values of a KindTuple Value.
func (v Value) Tuple() []any { return v.tuple }

// Record returns the attribute map of a KindRecord Value.
func (v Value) Record() Item { return v.record }

// Interface unwraps the value to its natural Go shape: the bare scalar, an
// []any tuple, or an Item map.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindTuple:
		return v.tuple
	default:
		return v.record
	}
}
