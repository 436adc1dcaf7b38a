package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/i2mint/dynamodol-go"
)

// Store manages Events in a DynamoDB table partitioned by stream name and
// ordered by event ID.
type Store struct {
	client dynamodol.DynamoClient
	cfg    dynamodol.Config
	store  *dynamodol.Persister
}

// NewStore returns a Store backed by the given client. The table name is
// suffixed with env ("dev" when empty).
func NewStore(client dynamodol.DynamoClient, env string) (*Store, error) {
	if env == "" {
		env = "dev"
	}
	cfg := dynamodol.Config{
		TableName:  "events_" + env,
		KeyFields:  []string{"stream", "id"},
		DataFields: []string{},
	}
	p, err := dynamodol.NewPersister(client, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, cfg: cfg, store: p}, nil
}

// Write persists the Event, keyed by (Stream, ID).
func (s *Store) Write(ctx context.Context, e Event) error {
	if problems := e.Validate(); len(problems) > 0 {
		return fmt.Errorf("invalid event: %s", strings.Join(problems, "; "))
	}
	return s.store.Put(ctx,
		dynamodol.NewCompositeKey(e.Stream, e.ID),
		dynamodol.RecordValue(dynamodol.Item{
			"at":      e.At.Format("2006-01-02T15:04:05.000Z"),
			"kind":    e.Kind,
			"payload": e.Payload,
		}))
}

// Read fetches one Event by stream and ID.
func (s *Store) Read(ctx context.Context, stream, id string) (Event, error) {
	v, err := s.store.Get(ctx, dynamodol.NewCompositeKey(stream, id))
	if err != nil {
		return Event{}, err
	}
	return fromRecord(stream, id, v.Record()), nil
}

// Delete removes one Event by stream and ID.
func (s *Store) Delete(ctx context.Context, stream, id string) error {
	return s.store.Delete(ctx, dynamodol.NewCompositeKey(stream, id))
}

// StreamIDs lists the IDs of all Events in one stream, in sort-key order.
func (s *Store) StreamIDs(ctx context.Context, stream string) ([]string, error) {
	r, err := dynamodol.NewPartitionReader(s.client, s.cfg, stream, nil)
	if err != nil {
		return nil, err
	}
	keys, err := r.Keys(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if sk, ok := k.Sort(); ok {
			ids = append(ids, fmt.Sprint(sk))
		}
	}
	return ids, nil
}

// DayIDs lists the IDs of all Events in one stream written on the given
// ISO-8601 day, using the time-prefixed ID layout of NewEvent.
func (s *Store) DayIDs(ctx context.Context, stream, day string) ([]string, error) {
	r, err := dynamodol.NewPrefixReader(s.client, s.cfg, stream, day, nil)
	if err != nil {
		return nil, err
	}
	keys, err := r.Keys(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if sk, ok := k.Sort(); ok {
			ids = append(ids, fmt.Sprint(sk))
		}
	}
	return ids, nil
}

// fromRecord rebuilds an Event from a stored record.
func fromRecord(stream, id string, rec dynamodol.Item) Event {
	e := Event{ID: id, Stream: stream}
	if kind, ok := rec["kind"].(string); ok {
		e.Kind = kind
	}
	if at, ok := rec["at"].(string); ok {
		e.At, _ = time.Parse("2006-01-02T15:04:05.000Z", at)
	}
	if payload, ok := rec["payload"].(map[string]any); ok {
		e.Payload = payload
	}
	return e
}
