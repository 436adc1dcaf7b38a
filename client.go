/*
Package dynamodol – DynamoDB client interface and bootstrap.
*/
package dynamodol

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// LocalEndpoint is the default endpoint when no region is configured,
// pointing at a local DynamoDB instance.
const LocalEndpoint = "http://localhost:8000"

// DynamoClient is the remote storage capability consumed by readers and
// persisters. It is satisfied by the real AWS DynamoDB client and by test
// doubles.
type DynamoClient interface {
	GetItem(ctx context.Context, params *ddb.GetItemInput, optFns ...func(*ddb.Options)) (*ddb.GetItemOutput, error)
	PutItem(ctx context.Context, params *ddb.PutItemInput, optFns ...func(*ddb.Options)) (*ddb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *ddb.DeleteItemInput, optFns ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error)
	Query(ctx context.Context, params *ddb.QueryInput, optFns ...func(*ddb.Options)) (*ddb.QueryOutput, error)
	Scan(ctx context.Context, params *ddb.ScanInput, optFns ...func(*ddb.Options)) (*ddb.ScanOutput, error)
	CreateTable(ctx context.Context, params *ddb.CreateTableInput, optFns ...func(*ddb.Options)) (*ddb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *ddb.DescribeTableInput, optFns ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error)
}

// ClientConfig configures NewClient. The zero value targets a local DynamoDB
// on LocalEndpoint with the ambient credential chain.
type ClientConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Region selects an AWS region. When empty, EndpointURL (or
	// LocalEndpoint) is used instead.
	Region string

	// EndpointURL overrides the service endpoint, e.g. for DynamoDB Local.
	EndpointURL string
}

// NewClient builds a DynamoDB client from the given configuration, layered
// over the ambient AWS credential/config chain.
func NewClient(ctx context.Context, cfg ClientConfig) (*ddb.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	} else if cfg.EndpointURL == "" {
		cfg.EndpointURL = LocalEndpoint
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, NewError("failed to load AWS configuration",
			WithCode(ErrConfiguration), WithCause(err))
	}
	var clientOpts []func(*ddb.Options)
	if cfg.EndpointURL != "" {
		endpoint := cfg.EndpointURL
		clientOpts = append(clientOpts, func(o *ddb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return ddb.NewFromConfig(awsCfg, clientOpts...), nil
}
