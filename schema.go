/*
Package dynamodol – configuration and key schema descriptor.
*/
package dynamodol

import (
	"fmt"
	"strings"
)

const (
	// DefaultTableName is used when Config.TableName is empty.
	DefaultTableName = "dynamodol"

	// DefaultKeyField is the single key field used when Config.KeyFields is nil.
	DefaultKeyField = "key"

	// DefaultDataField is the single data field used when Config.DataFields is nil.
	DefaultDataField = "data"
)

// Config describes how a DynamoDB table is mapped onto a key-value store.
type Config struct {
	// TableName is the remote table name. Default: "dynamodol".
	TableName string

	// KeyFields holds the partition key name and, optionally, the sort key
	// name. One entry maps scalar external keys; two entries map composite
	// (partition, sort) keys. Default: ["key"].
	KeyFields []string

	// DataFields lists the stored value attributes, in order. An empty
	// (non-nil) slice selects record mode: values are attribute maps. One
	// entry selects scalar mode; two or more select tuple mode.
	// Default when nil: ["data"].
	DataFields []string

	// ExcludeKeysOnRead strips the key attributes from record-mode reads.
	// Default: true. Set to a non-nil pointer to override.
	ExcludeKeysOnRead *bool

	// Projection restricts the attributes fetched by Get and Keys. Entries
	// may themselves be comma-joined field lists; they are split during
	// normalization.
	Projection []string

	// Logger receives operation logs. Nil selects the default logger
	// (info and error only); Verbose selects a logger that also emits trace.
	Logger  Logger
	Verbose bool
}

// normalize applies defaults. It does not validate; that is newSchema's job.
func (c *Config) normalize() {
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if c.KeyFields == nil {
		c.KeyFields = []string{DefaultKeyField}
	}
	if c.DataFields == nil {
		c.DataFields = []string{DefaultDataField}
	}
	if len(c.Projection) > 0 {
		var fields []string
		for _, p := range c.Projection {
			for _, f := range strings.Split(p, ",") {
				if f = strings.TrimSpace(f); f != "" {
					fields = append(fields, f)
				}
			}
		}
		c.Projection = fields
	}
	if c.Logger == nil {
		if c.Verbose {
			c.Logger = verboseLogger{}
		} else {
			c.Logger = defaultLogger{}
		}
	}
}

// valueMode is the external record shape, fixed by DataFields arity.
type valueMode int

const (
	modeRecord valueMode = iota // no data fields: values are attribute maps
	modeScalar                  // one data field: values are bare scalars
	modeTuple                   // two or more: values are fixed-width tuples
)

// schema is the immutable descriptor derived from a normalized Config.
type schema struct {
	tableName   string
	keyFields   []string
	dataFields  []string
	excludeKeys bool
	projection  []string
}

// newSchema validates cfg (already normalized) and derives the descriptor.
func newSchema(cfg Config) (*schema, error) {
	if len(cfg.KeyFields) == 0 || len(cfg.KeyFields) > 2 {
		return nil, NewError(
			fmt.Sprintf("keyFields must contain one or two field names, got %d", len(cfg.KeyFields)),
			WithCode(ErrConfiguration))
	}
	for i, k := range cfg.KeyFields {
		if k == "" {
			return nil, NewError(
				fmt.Sprintf("key field %d is empty", i),
				WithCode(ErrConfiguration))
		}
	}
	if len(cfg.KeyFields) == 2 && cfg.KeyFields[0] == cfg.KeyFields[1] {
		return nil, NewError(
			fmt.Sprintf("partition and sort key share the name %q", cfg.KeyFields[0]),
			WithCode(ErrConfiguration))
	}
	for _, d := range cfg.DataFields {
		for _, k := range cfg.KeyFields {
			if d == k {
				return nil, NewError(
					fmt.Sprintf("field %q is both a key field and a data field", d),
					WithCode(ErrConfiguration))
			}
		}
	}
	excludeKeys := true
	if cfg.ExcludeKeysOnRead != nil {
		excludeKeys = *cfg.ExcludeKeysOnRead
	}
	return &schema{
		tableName:   cfg.TableName,
		keyFields:   append([]string(nil), cfg.KeyFields...),
		dataFields:  append([]string(nil), cfg.DataFields...),
		excludeKeys: excludeKeys,
		projection:  append([]string(nil), cfg.Projection...),
	}, nil
}

func (s *schema) partitionKey() string { return s.keyFields[0] }

// sortKey returns the sort key name, or "" when the table uses a single key.
func (s *schema) sortKey() string {
	if len(s.keyFields) < 2 {
		return ""
	}
	return s.keyFields[1]
}

func (s *schema) hasSortKey() bool { return len(s.keyFields) == 2 }

func (s *schema) mode() valueMode {
	switch len(s.dataFields) {
	case 0:
		return modeRecord
	case 1:
		return modeScalar
	default:
		return modeTuple
	}
}

func (s *schema) isKeyField(name string) bool {
	for _, k := range s.keyFields {
		if k == name {
			return true
		}
	}
	return false
}
