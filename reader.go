/*
Package dynamodol – base reader.
*/
package dynamodol

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Reader exposes a DynamoDB table as a read-only key-value mapping.
//
// Keys and Count enumerate via an unconditioned full-table scan: O(table
// size) per call, unsuitable for large tables. Items come back in whatever
// order the scan returns them.
type Reader struct {
	client DynamoClient
	schema *schema
	log    Logger

	// table handle, resolved lazily at most once per instance
	tableReady bool
}

// NewReader builds a Reader over client with the given configuration.
func NewReader(client DynamoClient, cfg Config) (*Reader, error) {
	cfg.normalize()
	s, err := newSchema(cfg)
	if err != nil {
		return nil, err
	}
	return &Reader{client: client, schema: s, log: cfg.Logger}, nil
}

// TableName returns the remote table name.
func (r *Reader) TableName() string { return r.schema.tableName }

// Get fetches the record stored under key, shaped according to the
// configured data fields. Returns a NoSuchKeyError when no item exists.
func (r *Reader) Get(ctx context.Context, key Key) (Value, error) {
	keyAttrs, err := r.schema.keyToAttributes(key)
	if err != nil {
		return Value{}, err
	}
	return r.getByAttributes(ctx, keyAttrs)
}

// Has reports whether an item exists under key.
func (r *Reader) Has(ctx context.Context, key Key) (bool, error) {
	_, err := r.Get(ctx, key)
	if IsNoSuchKey(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// getByAttributes fetches and shapes the item stored under the given
// already-composed key attributes.
func (r *Reader) getByAttributes(ctx context.Context, keyAttrs Item) (Value, error) {
	if err := r.resolveTable(ctx); err != nil {
		return Value{}, err
	}
	av, err := marshalItem(keyAttrs)
	if err != nil {
		return Value{}, err
	}
	input := &ddb.GetItemInput{
		TableName: aws.String(r.schema.tableName),
		Key:       av,
	}
	if pe, names := r.projectionExpr(r.schema.projection); pe != "" {
		input.ProjectionExpression = aws.String(pe)
		input.ExpressionAttributeNames = names
	}
	r.log.Trace(fmt.Sprintf("dynamodol get %q", r.schema.tableName), map[string]any{"key": keyAttrs})

	out, err := r.client.GetItem(ctx, input)
	if err != nil {
		if tableMissing(err) {
			return Value{}, noSuchKey(keyAttrs, err)
		}
		return Value{}, classifyFault("get from "+r.schema.tableName, err)
	}
	if out.Item == nil {
		return Value{}, noSuchKey(keyAttrs, nil)
	}
	item, err := unmarshalItem(out.Item)
	if err != nil {
		return Value{}, err
	}
	return r.schema.attributesToRecord(item), nil
}

// Keys enumerates every key in the table via a single logical full scan,
// collapsing pagination. There is no ordering guarantee.
func (r *Reader) Keys(ctx context.Context) ([]Key, error) {
	if err := r.resolveTable(ctx); err != nil {
		return nil, err
	}
	pe, names := r.projectionExpr(r.schema.keyFields)
	input := &ddb.ScanInput{
		TableName:                aws.String(r.schema.tableName),
		ProjectionExpression:     aws.String(pe),
		ExpressionAttributeNames: names,
	}
	r.log.Trace(fmt.Sprintf("dynamodol scan %q", r.schema.tableName), nil)

	var keys []Key
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, classifyFault("scan of "+r.schema.tableName, err)
		}
		for _, av := range out.Items {
			item, err := unmarshalItem(av)
			if err != nil {
				return nil, err
			}
			keys = append(keys, r.schema.attributesToKey(item))
		}
		if out.LastEvaluatedKey == nil {
			return keys, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// ReverseKeys materializes the full key enumeration and reverses it. Same
// scan cost as Keys plus the materialization.
func (r *Reader) ReverseKeys(ctx context.Context) ([]Key, error) {
	keys, err := r.Keys(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys, nil
}

// Count returns the number of items in the table via a count-only scan.
// Same cost profile as Keys.
func (r *Reader) Count(ctx context.Context) (int, error) {
	if err := r.resolveTable(ctx); err != nil {
		return 0, err
	}
	input := &ddb.ScanInput{
		TableName: aws.String(r.schema.tableName),
		Select:    types.SelectCount,
	}
	count := 0
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return 0, classifyFault("count scan of "+r.schema.tableName, err)
		}
		count += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return count, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// projectionExpr renders fields as a projection expression with substituted
// attribute names. Returns "" when fields is empty.
func (r *Reader) projectionExpr(fields []string) (string, map[string]string) {
	if len(fields) == 0 {
		return "", nil
	}
	names := make(map[string]string, len(fields))
	toks := make([]string, len(fields))
	for i, f := range fields {
		tok := fmt.Sprintf("#p%d", i)
		names[tok] = f
		toks[i] = tok
	}
	return strings.Join(toks, ", "), names
}

// putAttributes issues a whole-item upsert.
func (r *Reader) putAttributes(ctx context.Context, item Item) error {
	if err := r.resolveTable(ctx); err != nil {
		return err
	}
	av, err := marshalItem(item)
	if err != nil {
		return err
	}
	r.log.Trace(fmt.Sprintf("dynamodol put %q", r.schema.tableName), map[string]any{"item": item})
	if _, err := r.client.PutItem(ctx, &ddb.PutItemInput{
		TableName: aws.String(r.schema.tableName),
		Item:      av,
	}); err != nil {
		return classifyFault("put to "+r.schema.tableName, err)
	}
	return nil
}

// deleteByAttributes deletes by already-composed key attributes, reporting a
// NoSuchKeyError when the table held no item under that key. The old item
// image is requested so that absence is detectable.
func (r *Reader) deleteByAttributes(ctx context.Context, keyAttrs Item) error {
	if err := r.resolveTable(ctx); err != nil {
		return err
	}
	av, err := marshalItem(keyAttrs)
	if err != nil {
		return err
	}
	r.log.Trace(fmt.Sprintf("dynamodol delete %q", r.schema.tableName), map[string]any{"key": keyAttrs})
	out, err := r.client.DeleteItem(ctx, &ddb.DeleteItemInput{
		TableName:    aws.String(r.schema.tableName),
		Key:          av,
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		if tableMissing(err) {
			return noSuchKey(keyAttrs, err)
		}
		return classifyFault("delete from "+r.schema.tableName, err)
	}
	if len(out.Attributes) == 0 {
		return noSuchKey(keyAttrs, nil)
	}
	return nil
}

func noSuchKey(keyAttrs Item, cause error) error {
	opts := []func(*Error){WithCode(ErrNoSuchKey)}
	if cause != nil {
		opts = append(opts, WithCause(cause))
	}
	return NewError(fmt.Sprintf("key not found: %v", keyAttrs), opts...)
}
