/*
Package dynamodol – filtered reader backed by range queries.
*/
package dynamodol

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// QueryReader is a Reader whose Keys and Count are restricted by a filter
// specification, executed as a range query instead of a full scan. The
// filter is translated once at construction; malformed filters and filters
// without a partition-key equality entry fail fast there.
type QueryReader struct {
	*Reader
	conds *ConditionPair
}

// NewQueryReader builds a QueryReader over client with the given
// configuration and filter.
func NewQueryReader(client DynamoClient, cfg Config, filter Filter) (*QueryReader, error) {
	r, err := NewReader(client, cfg)
	if err != nil {
		return nil, err
	}
	return newQueryReader(r, filter)
}

func newQueryReader(r *Reader, filter Filter) (*QueryReader, error) {
	conds, err := translate(filter, r.schema)
	if err != nil {
		return nil, err
	}
	if !conds.HasKeyCondition() {
		return nil, NewError(
			fmt.Sprintf("filter must constrain the partition key %q with an equality entry", r.schema.partitionKey()),
			WithCode(ErrConfiguration))
	}
	r.log.Trace("dynamodol filter translated", map[string]any{
		"keyCondition": conds.KeyConditionExpression(),
		"filter":       conds.FilterExpression(),
	})
	return &QueryReader{Reader: r, conds: conds}, nil
}

// Conditions returns the translated condition pair.
func (q *QueryReader) Conditions() *ConditionPair { return q.conds }

// Keys enumerates the keys of every item matching the filter.
func (q *QueryReader) Keys(ctx context.Context) ([]Key, error) {
	if err := q.resolveTable(ctx); err != nil {
		return nil, err
	}
	input, err := q.queryInput(false)
	if err != nil {
		return nil, err
	}
	var keys []Key
	for {
		out, err := q.client.Query(ctx, input)
		if err != nil {
			return nil, classifyFault("query of "+q.schema.tableName, err)
		}
		for _, av := range out.Items {
			item, err := unmarshalItem(av)
			if err != nil {
				return nil, err
			}
			keys = append(keys, q.schema.attributesToKey(item))
		}
		if out.LastEvaluatedKey == nil {
			return keys, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// ReverseKeys materializes the filtered enumeration and reverses it.
func (q *QueryReader) ReverseKeys(ctx context.Context) ([]Key, error) {
	keys, err := q.Keys(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys, nil
}

// Count returns the number of items matching the filter via a count-only
// range query.
func (q *QueryReader) Count(ctx context.Context) (int, error) {
	if err := q.resolveTable(ctx); err != nil {
		return 0, err
	}
	input, err := q.queryInput(true)
	if err != nil {
		return 0, err
	}
	count := 0
	for {
		out, err := q.client.Query(ctx, input)
		if err != nil {
			return 0, classifyFault("count query of "+q.schema.tableName, err)
		}
		count += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return count, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// queryInput renders the condition pair into a QueryInput. Non-count queries
// project only the key fields; the filter expression is evaluated by the
// engine before projection, so it may reference unprojected attributes.
func (q *QueryReader) queryInput(count bool) (*ddb.QueryInput, error) {
	values, err := q.conds.Values()
	if err != nil {
		return nil, err
	}
	// the pair's name map is shared with the projection tokens
	names := make(map[string]string, len(q.conds.Names())+len(q.schema.keyFields))
	for tok, name := range q.conds.Names() {
		names[tok] = name
	}
	input := &ddb.QueryInput{
		TableName:                 aws.String(q.schema.tableName),
		KeyConditionExpression:    aws.String(q.conds.KeyConditionExpression()),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	if q.conds.HasFilter() {
		input.FilterExpression = aws.String(q.conds.FilterExpression())
	}
	if count {
		input.Select = types.SelectCount
		return input, nil
	}
	pe, projNames := q.projectionExpr(q.schema.keyFields)
	for tok, name := range projNames {
		names[tok] = name
	}
	input.ProjectionExpression = aws.String(pe)
	return input, nil
}
