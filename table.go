/*
Package dynamodol – table handle resolution.

First use of a reader or persister creates the remote table if it does not
exist, then attaches to it. Resolution is memoized per instance.
*/
package dynamodol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const (
	// defaultReadCapacity / defaultWriteCapacity are the fixed provisioned
	// throughput used when the table is created on first use.
	defaultReadCapacity  = 5
	defaultWriteCapacity = 5

	// tableWaitTimeout bounds the wait for a freshly created table to
	// become active.
	tableWaitTimeout = 2 * time.Minute
)

// resolveTable attempts table creation with the schema's key layout; when
// creation fails because the table already exists, it attaches to the
// existing table by name. Blocks until a freshly created table is usable.
// Resolved at most once per instance; concurrent first-use from multiple
// goroutines may issue redundant create attempts, which the already-exists
// fallback absorbs.
func (r *Reader) resolveTable(ctx context.Context) error {
	if r.tableReady {
		return nil
	}

	input := &ddb.CreateTableInput{
		TableName: aws.String(r.schema.tableName),
		KeySchema: []types.KeySchemaElement{{
			AttributeName: aws.String(r.schema.partitionKey()),
			KeyType:       types.KeyTypeHash,
		}},
		AttributeDefinitions: []types.AttributeDefinition{{
			AttributeName: aws.String(r.schema.partitionKey()),
			AttributeType: types.ScalarAttributeTypeS,
		}},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(defaultReadCapacity),
			WriteCapacityUnits: aws.Int64(defaultWriteCapacity),
		},
	}
	if sk := r.schema.sortKey(); sk != "" {
		input.KeySchema = append(input.KeySchema, types.KeySchemaElement{
			AttributeName: aws.String(sk),
			KeyType:       types.KeyTypeRange,
		})
		input.AttributeDefinitions = append(input.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(sk),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	_, err := r.client.CreateTable(ctx, input)
	switch {
	case err == nil:
		r.log.Info(fmt.Sprintf("created table %q, waiting for it to become active", r.schema.tableName), nil)
		waiter := ddb.NewTableExistsWaiter(r.client, func(o *ddb.TableExistsWaiterOptions) {
			o.MinDelay = time.Second
		})
		if err := waiter.Wait(ctx,
			&ddb.DescribeTableInput{TableName: aws.String(r.schema.tableName)},
			tableWaitTimeout); err != nil {
			return classifyFault("waiting for table "+r.schema.tableName, err)
		}
	case tableAlreadyExists(err):
		r.log.Trace(fmt.Sprintf("attaching to existing table %q", r.schema.tableName), nil)
	default:
		return classifyFault("creating table "+r.schema.tableName, err)
	}

	r.tableReady = true
	return nil
}

func tableAlreadyExists(err error) bool {
	var inUse *types.ResourceInUseException
	return errors.As(err, &inUse)
}

func tableMissing(err error) bool {
	var nf *types.ResourceNotFoundException
	return errors.As(err, &nf)
}

// classifyFault wraps an unclassified remote fault, surfacing the API error
// code and fault origin when the underlying error carries them.
func classifyFault(op string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return NewError(fmt.Sprintf("%s failed: %s", op, ae.ErrorMessage()),
			WithCode(ErrRuntime),
			WithContext(map[string]any{
				"errorCode": ae.ErrorCode(),
				"fault":     ae.ErrorFault().String(),
			}),
			WithCause(err))
	}
	return NewError(op+" failed", WithCode(ErrRuntime), WithCause(err))
}
