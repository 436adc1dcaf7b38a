/*
Package dynamodol – read-write mapping.
*/
package dynamodol

import "context"

// Persister is a Reader that can also write and delete items.
//
// Put is a whole-item upsert with no check-and-set; concurrent persisters
// sharing a table rely on the engine's item-level atomicity only.
type Persister struct {
	*Reader
}

// NewPersister builds a Persister over client with the given configuration.
func NewPersister(client DynamoClient, cfg Config) (*Persister, error) {
	r, err := NewReader(client, cfg)
	if err != nil {
		return nil, err
	}
	return &Persister{Reader: r}, nil
}

// Put stores value under key, overwriting any existing item. The stored item
// is the key attributes merged with the encoded value attributes;
// caller-supplied field names win on collision.
func (p *Persister) Put(ctx context.Context, key Key, value Value) error {
	keyAttrs, err := p.schema.keyToAttributes(key)
	if err != nil {
		return err
	}
	valAttrs, err := p.schema.valueToAttributes(value)
	if err != nil {
		return err
	}
	item := make(Item, len(keyAttrs)+len(valAttrs))
	for name, v := range keyAttrs {
		item[name] = v
	}
	for name, v := range valAttrs {
		item[name] = v
	}
	return p.putAttributes(ctx, item)
}

// Delete removes the item stored under key. Returns a NoSuchKeyError when
// no item existed.
func (p *Persister) Delete(ctx context.Context, key Key) error {
	keyAttrs, err := p.schema.keyToAttributes(key)
	if err != nil {
		return err
	}
	return p.deleteByAttributes(ctx, keyAttrs)
}
