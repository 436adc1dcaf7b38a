/*
Package dynamodol – filter condition translation.

Converts a MongoDB-style nested filter map into a DynamoDB key-condition
expression and filter expression, with `#_N` / `:_N` expression attribute
name and value substitution.
*/
package dynamodol

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Filter is a mapping from attribute name to either a scalar (implicit
// equality) or a single-entry {"$operator": operand} mapping. Conjunction
// across attributes is implicit AND; there is no nested boolean algebra.
type Filter map[string]any

// Operator is a filter condition operator tag, without the leading sigil.
type Operator string

const (
	OpEq         Operator = "eq"
	OpBeginsWith Operator = "begins_with"
	OpBetween    Operator = "between"
	OpGT         Operator = "gt"
	OpGTE        Operator = "gte"
	OpLT         Operator = "lt"
	OpLTE        Operator = "lte"
	OpContains   Operator = "contains"
	OpNE         Operator = "ne"
	OpExists     Operator = "exists"
	OpNotExists  Operator = "not_exists"
	OpIsIn       Operator = "is_in"
	OpSize       Operator = "size"
)

// validKeyOperators are the operators allowed on the sort key. Equality is
// additionally allowed via the scalar shortcut. The partition key accepts
// only the scalar shortcut.
var validKeyOperators = map[Operator]bool{
	OpBeginsWith: true, OpBetween: true,
	OpGT: true, OpGTE: true, OpLT: true, OpLTE: true,
}

// validAttrOperators are the operators allowed on non-key attributes.
var validAttrOperators = map[Operator]bool{
	OpBeginsWith: true, OpBetween: true,
	OpGT: true, OpGTE: true, OpLT: true, OpLTE: true,
	OpContains: true, OpNE: true, OpExists: true,
	OpNotExists: true, OpIsIn: true, OpSize: true,
}

// validSizeOperators are the operators allowed one level inside $size.
var validSizeOperators = map[Operator]bool{
	OpGT: true, OpGTE: true, OpLT: true, OpLTE: true,
	OpBetween: true, OpIsIn: true,
}

// condContext names where a condition appears, for operator validation.
type condContext string

const (
	ctxPartitionKey condContext = "partition key"
	ctxSortKey      condContext = "sort key"
	ctxAttribute    condContext = "attribute"
	ctxSize         condContext = "size"
)

func (c condContext) operators() map[Operator]bool {
	switch c {
	case ctxSortKey:
		return validKeyOperators
	case ctxAttribute:
		return validAttrOperators
	case ctxSize:
		return validSizeOperators
	default:
		// equality only, via the scalar shortcut
		return nil
	}
}

// ConditionPair holds a key-condition expression and an attribute-condition
// (filter) expression, each independently optional, together with their
// shared expression attribute name/value substitutions.
type ConditionPair struct {
	keyTerms    []string
	filterTerms []string

	names    map[string]string // "#_N" → attribute name
	namesIdx map[string]int    // attribute name → N (dedup)
	values   Item              // ":_N" → value
	nindex   int
	vindex   int
}

func newConditionPair() *ConditionPair {
	return &ConditionPair{
		names:    map[string]string{},
		namesIdx: map[string]int{},
		values:   Item{},
	}
}

// HasKeyCondition reports whether a partition-key equality was derived.
// A range query is illegal without one.
func (p *ConditionPair) HasKeyCondition() bool { return len(p.keyTerms) > 0 }

// HasFilter reports whether any attribute conditions were derived.
func (p *ConditionPair) HasFilter() bool { return len(p.filterTerms) > 0 }

// KeyConditionExpression renders the key condition, or "" when absent.
func (p *ConditionPair) KeyConditionExpression() string {
	return strings.Join(p.keyTerms, " and ")
}

// FilterExpression renders the attribute condition, or "" when absent.
func (p *ConditionPair) FilterExpression() string {
	if len(p.filterTerms) == 1 {
		return p.filterTerms[0]
	}
	parts := make([]string, len(p.filterTerms))
	for i, t := range p.filterTerms {
		parts[i] = "(" + t + ")"
	}
	return strings.Join(parts, " and ")
}

// Names returns the expression attribute name substitutions.
func (p *ConditionPair) Names() map[string]string { return p.names }

// Values marshals the expression attribute value substitutions.
func (p *ConditionPair) Values() (map[string]types.AttributeValue, error) {
	if len(p.values) == 0 {
		return nil, nil
	}
	return marshalItem(p.values)
}

func (p *ConditionPair) addName(name string) string {
	if idx, ok := p.namesIdx[name]; ok {
		return fmt.Sprintf("#_%d", idx)
	}
	idx := p.nindex
	p.nindex++
	tok := fmt.Sprintf("#_%d", idx)
	p.names[tok] = name
	p.namesIdx[name] = idx
	return tok
}

func (p *ConditionPair) addValue(v any) string {
	tok := fmt.Sprintf(":_%d", p.vindex)
	p.vindex++
	p.values[tok] = v
	return tok
}

// translate partitions the filter entries into the partition-key entry, the
// sort-key entry, and the remaining attribute entries, and folds each group
// into the pair left to right. Remaining attributes are processed in sorted
// name order so that a filter always translates to the same pair. It never
// issues a remote call; malformed filters fail fast with no partial result.
func translate(filter Filter, s *schema) (*ConditionPair, error) {
	p := newConditionPair()
	if len(filter) == 0 {
		return p, nil
	}

	if v, ok := filter[s.partitionKey()]; ok {
		term, err := p.translateEntry(s.partitionKey(), v, ctxPartitionKey)
		if err != nil {
			return nil, err
		}
		p.keyTerms = append(p.keyTerms, term)

		if sk := s.sortKey(); sk != "" {
			if sv, ok := filter[sk]; ok {
				term, err := p.translateEntry(sk, sv, ctxSortKey)
				if err != nil {
					return nil, err
				}
				p.keyTerms = append(p.keyTerms, term)
			}
		}
	}

	var rest []string
	for name := range filter {
		if s.isKeyField(name) {
			continue
		}
		rest = append(rest, name)
	}
	sort.Strings(rest)
	for _, name := range rest {
		term, err := p.translateEntry(name, filter[name], ctxAttribute)
		if err != nil {
			return nil, err
		}
		p.filterTerms = append(p.filterTerms, term)
	}
	return p, nil
}

// translateEntry applies the single-value-or-operator-dict rule: a primitive
// is an equality condition; otherwise the value must be a one-entry
// {"$operator": operand} mapping whose operator is valid in this context.
func (p *ConditionPair) translateEntry(field string, value any, cc condContext) (string, error) {
	if isPrimitive(value) {
		return p.applyOperator(p.addName(field), OpEq, value)
	}

	op, operand, err := splitOperator(value)
	if err != nil {
		return "", NewError(
			fmt.Sprintf("filter value for %q must be a primitive or a single {\"$operator\": operand} mapping", field),
			WithCode(ErrValidation), WithCause(err))
	}
	if !cc.operators()[op] {
		return "", NewError(
			fmt.Sprintf("operator $%s is not valid for %s conditions", op, cc),
			WithCode(ErrInvalidOperator))
	}

	target := p.addName(field)
	switch op {
	case OpExists:
		if operand == false {
			return fmt.Sprintf("attribute_not_exists(%s)", target), nil
		}
		return fmt.Sprintf("attribute_exists(%s)", target), nil
	case OpNotExists:
		return fmt.Sprintf("attribute_not_exists(%s)", target), nil
	case OpSize:
		return p.translateSize(field, target, operand)
	}
	return p.applyOperator(target, op, operand)
}

// translateSize builds a condition on size(field). An integral operand is an
// equality against that size; otherwise the operand must itself be a
// one-entry {sizeOperator: sizeValue} mapping, one level deep only.
func (p *ConditionPair) translateSize(field, target string, operand any) (string, error) {
	sized := fmt.Sprintf("size(%s)", target)
	if isNumber(operand) {
		return fmt.Sprintf("%s = %s", sized, p.addValue(operand)), nil
	}
	szOp, szVal, err := splitOperator(operand)
	if err != nil {
		return "", NewError(
			fmt.Sprintf("size operand for %q must be an integer or a single {\"$operator\": value} mapping", field),
			WithCode(ErrValidation), WithCause(err))
	}
	if !validSizeOperators[szOp] {
		return "", NewError(
			fmt.Sprintf("operator $%s is not valid for size conditions", szOp),
			WithCode(ErrInvalidOperator))
	}
	return p.applyOperator(sized, szOp, szVal)
}

// applyOperator renders a single-argument (or, for between/is_in, sequence)
// condition. Dispatch is over a closed operator set; exists/not_exists/size
// are handled by translateEntry before reaching here.
func (p *ConditionPair) applyOperator(target string, op Operator, operand any) (string, error) {
	switch op {
	case OpEq:
		return fmt.Sprintf("%s = %s", target, p.addValue(operand)), nil
	case OpNE:
		return fmt.Sprintf("%s <> %s", target, p.addValue(operand)), nil
	case OpGT:
		return fmt.Sprintf("%s > %s", target, p.addValue(operand)), nil
	case OpGTE:
		return fmt.Sprintf("%s >= %s", target, p.addValue(operand)), nil
	case OpLT:
		return fmt.Sprintf("%s < %s", target, p.addValue(operand)), nil
	case OpLTE:
		return fmt.Sprintf("%s <= %s", target, p.addValue(operand)), nil
	case OpBeginsWith:
		return fmt.Sprintf("begins_with(%s, %s)", target, p.addValue(operand)), nil
	case OpContains:
		return fmt.Sprintf("contains(%s, %s)", target, p.addValue(operand)), nil
	case OpBetween:
		bounds, ok := toSlice(operand)
		if !ok || len(bounds) != 2 {
			return "", NewError(
				fmt.Sprintf("values for the $between operator must be sequences of length 2 (received %v)", operand),
				WithCode(ErrValidation))
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", target, p.addValue(bounds[0]), p.addValue(bounds[1])), nil
	case OpIsIn:
		members, ok := toSlice(operand)
		if !ok || len(members) == 0 {
			return "", NewError(
				fmt.Sprintf("values for the $is_in operator must be non-empty sequences (received %v)", operand),
				WithCode(ErrValidation))
		}
		toks := make([]string, len(members))
		for i, m := range members {
			toks[i] = p.addValue(m)
		}
		return fmt.Sprintf("%s IN (%s)", target, strings.Join(toks, ", ")), nil
	}
	return "", NewError(
		fmt.Sprintf("operator $%s has no condition builder", op),
		WithCode(ErrInvalidOperator))
}

// splitOperator pulls the single {"$operator": operand} entry out of value,
// strips the sigil, and normalizes the MongoDB alias $in → $is_in.
func splitOperator(value any) (Operator, any, error) {
	var entries map[string]any
	switch m := value.(type) {
	case map[string]any:
		entries = m
	case Filter:
		entries = m
	case Item:
		entries = m
	default:
		return "", nil, fmt.Errorf("unsupported filter value type %T", value)
	}
	if len(entries) != 1 {
		return "", nil, fmt.Errorf("expected exactly one operator entry, got %d", len(entries))
	}
	for raw, operand := range entries {
		op := Operator(strings.TrimPrefix(raw, "$"))
		if op == "in" {
			op = OpIsIn
		}
		return op, operand, nil
	}
	return "", nil, fmt.Errorf("empty operator mapping")
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// toSlice normalizes any slice or array operand to []any.
func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
