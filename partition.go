/*
Package dynamodol – partition and prefix sub-mappings.

Fix the partition key (and optionally a sort-key prefix) so that one
partition of a composite-key table reads and writes like a mapping of its
own, keyed by sort value alone.
*/
package dynamodol

import (
	"context"
	"fmt"
)

// PartitionReader is a QueryReader restricted to a single partition of a
// composite-key table. Its Get takes the sort key value alone.
type PartitionReader struct {
	*QueryReader
	partition any
}

// NewPartitionReader builds a reader over one partition. The schema must
// have a composite (partition, sort) key. filter may add attribute
// conditions; any partition-key entry in it is overridden.
func NewPartitionReader(client DynamoClient, cfg Config, partition any, filter Filter) (*PartitionReader, error) {
	r, err := NewReader(client, cfg)
	if err != nil {
		return nil, err
	}
	if !r.schema.hasSortKey() {
		return nil, NewError(
			"partition reader requires a composite (partition, sort) key schema",
			WithCode(ErrConfiguration))
	}
	q, err := newQueryReader(r, withPartitionEntry(filter, r.schema, partition))
	if err != nil {
		return nil, err
	}
	return &PartitionReader{QueryReader: q, partition: partition}, nil
}

// Partition returns the fixed partition value.
func (p *PartitionReader) Partition() any { return p.partition }

// Get fetches the record stored under the fixed partition and the given
// sort key value, bypassing the generic key path.
func (p *PartitionReader) Get(ctx context.Context, sortKey any) (Value, error) {
	return p.getByAttributes(ctx, Item{
		p.schema.partitionKey(): p.partition,
		p.schema.sortKey():      sortKey,
	})
}

// Has reports whether an item exists under the given sort key value.
func (p *PartitionReader) Has(ctx context.Context, sortKey any) (bool, error) {
	_, err := p.Get(ctx, sortKey)
	if IsNoSuchKey(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PrefixReader is a PartitionReader additionally restricted to sort keys
// beginning with a fixed prefix. Its Get takes the key suffix; the stored
// sort key is prefix + suffix.
type PrefixReader struct {
	*PartitionReader
	prefix string
}

// NewPrefixReader builds a reader over the sub-mapping of one partition
// whose sort keys begin with prefix.
func NewPrefixReader(client DynamoClient, cfg Config, partition any, prefix string, filter Filter) (*PrefixReader, error) {
	r, err := NewReader(client, cfg)
	if err != nil {
		return nil, err
	}
	if !r.schema.hasSortKey() {
		return nil, NewError(
			"prefix reader requires a composite (partition, sort) key schema",
			WithCode(ErrConfiguration))
	}
	merged := withPartitionEntry(filter, r.schema, partition)
	merged[r.schema.sortKey()] = map[string]any{"$begins_with": prefix}
	q, err := newQueryReader(r, merged)
	if err != nil {
		return nil, err
	}
	return &PrefixReader{
		PartitionReader: &PartitionReader{QueryReader: q, partition: partition},
		prefix:          prefix,
	}, nil
}

// Prefix returns the fixed sort-key prefix.
func (p *PrefixReader) Prefix() string { return p.prefix }

// Get fetches the record stored under the fixed partition and the sort key
// prefix + suffix.
func (p *PrefixReader) Get(ctx context.Context, suffix string) (Value, error) {
	return p.PartitionReader.Get(ctx, p.prefix+suffix)
}

// Has reports whether an item exists under prefix + suffix.
func (p *PrefixReader) Has(ctx context.Context, suffix string) (bool, error) {
	return p.PartitionReader.Has(ctx, p.prefix+suffix)
}

// PartitionPersister is a PartitionReader that can also write and delete,
// composing the partition key on every write.
type PartitionPersister struct {
	*PartitionReader
}

// NewPartitionPersister builds a persister over one partition.
func NewPartitionPersister(client DynamoClient, cfg Config, partition any, filter Filter) (*PartitionPersister, error) {
	r, err := NewPartitionReader(client, cfg, partition, filter)
	if err != nil {
		return nil, err
	}
	return &PartitionPersister{PartitionReader: r}, nil
}

// Put stores value under the fixed partition and the given sort key value.
func (p *PartitionPersister) Put(ctx context.Context, sortKey any, value Value) error {
	valAttrs, err := p.schema.valueToAttributes(value)
	if err != nil {
		return err
	}
	item := make(Item, len(valAttrs)+2)
	item[p.schema.partitionKey()] = p.partition
	item[p.schema.sortKey()] = sortKey
	for name, v := range valAttrs {
		if p.schema.isKeyField(name) {
			continue
		}
		item[name] = v
	}
	return p.putAttributes(ctx, item)
}

// Delete removes the item under the fixed partition and the given sort key
// value. Returns a NoSuchKeyError when no item existed.
func (p *PartitionPersister) Delete(ctx context.Context, sortKey any) error {
	return p.deleteByAttributes(ctx, Item{
		p.schema.partitionKey(): p.partition,
		p.schema.sortKey():      sortKey,
	})
}

// withPartitionEntry copies filter and pins the partition-key entry to an
// equality on partition.
func withPartitionEntry(filter Filter, s *schema, partition any) Filter {
	merged := make(Filter, len(filter)+1)
	for name, v := range filter {
		merged[name] = v
	}
	merged[s.partitionKey()] = partition
	return merged
}

// String renders the fixed partition for logs.
func (p *PartitionReader) String() string {
	return fmt.Sprintf("PartitionReader(%s=%v)", p.schema.partitionKey(), p.partition)
}
