/*
Package dynamodol – record codec.

Converts between external (key, value) pairs and the flat attribute maps the
table stores, in the shape fixed by the schema descriptor.
*/
package dynamodol

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// keyToAttributes zips the key fields with the external key, positionally.
// The key shape must match the schema arity exactly: a scalar key under a
// composite schema, or a composite key under a single-field schema, is a
// KeySchemaMismatchError.
func (s *schema) keyToAttributes(k Key) (Item, error) {
	sortVal, composite := k.Sort()
	if s.hasSortKey() && !composite {
		return nil, NewError(
			fmt.Sprintf("schema has sort key %q: keys must be composite (partition, sort) pairs", s.sortKey()),
			WithCode(ErrKeySchema))
	}
	if !s.hasSortKey() && composite {
		return nil, NewError(
			"schema has no sort key: keys must be scalar partition values",
			WithCode(ErrKeySchema))
	}
	item := Item{s.partitionKey(): k.Partition()}
	if composite {
		item[s.sortKey()] = sortVal
	}
	return item, nil
}

// attributesToKey is the inverse of keyToAttributes, producing a scalar or
// composite key depending on schema arity.
func (s *schema) attributesToKey(item Item) Key {
	if s.hasSortKey() {
		return NewCompositeKey(item[s.partitionKey()], item[s.sortKey()])
	}
	return NewKey(item[s.partitionKey()])
}

// valueToAttributes converts an external value into stored attributes.
// Record values pass through attribute-for-attribute (caller-supplied field
// names win on merge). Scalar and tuple values zip positionally against the
// data fields: extra values beyond the configured fields are dropped, and a
// shorter tuple leaves the trailing fields unset.
func (s *schema) valueToAttributes(v Value) (Item, error) {
	if v.Kind() == KindRecord {
		item := make(Item, len(v.Record()))
		for name, val := range v.Record() {
			item[name] = val
		}
		return item, nil
	}
	if s.mode() == modeRecord {
		return nil, NewError(
			"no data fields configured: values must be records",
			WithCode(ErrValidation))
	}
	vals := v.Tuple()
	if v.Kind() == KindScalar {
		vals = []any{v.Scalar()}
	}
	item := Item{}
	for i, field := range s.dataFields {
		if i >= len(vals) {
			break
		}
		item[field] = vals[i]
	}
	return item, nil
}

// attributesToRecord shapes a stored item into the external value form:
// an attribute map (record mode, optionally excluding the key fields), the
// single unwrapped value (scalar mode), or an ordered tuple (tuple mode).
func (s *schema) attributesToRecord(item Item) Value {
	switch s.mode() {
	case modeScalar:
		return ScalarValue(item[s.dataFields[0]])
	case modeTuple:
		vals := make([]any, len(s.dataFields))
		for i, field := range s.dataFields {
			vals[i] = item[field]
		}
		return TupleValue(vals...)
	default:
		rec := make(Item, len(item))
		for name, val := range item {
			if s.excludeKeys && s.isKeyField(name) {
				continue
			}
			rec[name] = val
		}
		return RecordValue(rec)
	}
}

// marshalItem converts a Go Item to a DynamoDB AttributeValue map.
func marshalItem(item Item) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(map[string]any(item))
}

// unmarshalItem converts a DynamoDB AttributeValue map to a Go Item.
func unmarshalItem(av map[string]types.AttributeValue) (Item, error) {
	var item Item
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, err
	}
	return item, nil
}
