/*
Package dynamodol provides a dict-like mapping over a DynamoDB table with a
partition key and an optional sort key.

A Reader exposes Get, Has, Keys and Count over the full table; a Persister
adds Put and Delete. QueryReader restricts the view with a MongoDB-style
filter translated into DynamoDB key conditions and filter expressions, and
PartitionReader / PrefixReader fix the partition key (and a sort-key prefix)
so that a single partition reads like a mapping of its own.

Values come in three shapes, chosen by the Config's DataFields:

  - record mode (DataFields == []string{}): the value is the item's full
    attribute map
  - scalar mode (one data field): the value is that field's content
  - tuple mode (several data fields): the value is the fields zipped in
    order

Filters use the operator vocabulary $begins_with, $between, $gt, $gte, $lt,
$lte on key fields, plus $contains, $ne, $exists, $not_exists, $is_in and
$size on non-key attributes. A primitive filter value means equality. The
partition key only accepts equality.

Typical use:

	client, err := dynamodol.NewClient(ctx, dynamodol.ClientConfig{
		EndpointURL: dynamodol.LocalEndpoint,
	})
	if err != nil {
		return err
	}
	store, err := dynamodol.NewPersister(client, dynamodol.Config{
		TableName: "events",
		KeyFields: []string{"stream", "ts"},
	})
	if err != nil {
		return err
	}
	err = store.Put(ctx, dynamodol.NewCompositeKey("orders", "2026-01-01"),
		dynamodol.ScalarValue("created"))
*/
package dynamodol
