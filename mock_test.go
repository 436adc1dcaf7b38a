/*
Package dynamodol – shared test infrastructure.

memClient is a thread-safe in-memory DynamoDB substitute with a simplified
expression evaluator. It learns each table's key layout from CreateTable, so
tests exercise the same first-use table resolution as production code.
*/
package dynamodol

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type mockTable struct {
	partitionKey string
	sortKey      string // "" for single-key tables
	items        map[string]map[string]types.AttributeValue
}

func (t *mockTable) itemKey(item map[string]types.AttributeValue) string {
	k := avStr(item[t.partitionKey])
	if t.sortKey != "" {
		k += "||" + avStr(item[t.sortKey])
	}
	return k
}

// memClient is a thread-safe in-memory DynamoDB substitute.
type memClient struct {
	mu     sync.RWMutex
	tables map[string]*mockTable

	// createCalls counts CreateTable attempts, including rejected ones.
	createCalls int
}

func newMemClient() *memClient {
	return &memClient{tables: map[string]*mockTable{}}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (m *memClient) CreateTable(_ context.Context, p *ddb.CreateTableInput, _ ...func(*ddb.Options)) (*ddb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	name := deref(p.TableName)
	if m.tables[name] != nil {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists: " + name)}
	}
	t := &mockTable{items: map[string]map[string]types.AttributeValue{}}
	for _, kse := range p.KeySchema {
		switch kse.KeyType {
		case types.KeyTypeHash:
			t.partitionKey = deref(kse.AttributeName)
		case types.KeyTypeRange:
			t.sortKey = deref(kse.AttributeName)
		}
	}
	m.tables[name] = t
	return &ddb.CreateTableOutput{}, nil
}

func (m *memClient) DescribeTable(_ context.Context, p *ddb.DescribeTableInput, _ ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name := deref(p.TableName)
	if m.tables[name] == nil {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Table not found: " + name)}
	}
	return &ddb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   aws.String(name),
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (m *memClient) tbl(name string) (*mockTable, error) {
	t := m.tables[name]
	if t == nil {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Table not found: " + name)}
	}
	return t, nil
}

func (m *memClient) PutItem(_ context.Context, p *ddb.PutItemInput, _ ...func(*ddb.Options)) (*ddb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.tbl(deref(p.TableName))
	if err != nil {
		return nil, err
	}
	t.items[t.itemKey(p.Item)] = p.Item
	return &ddb.PutItemOutput{}, nil
}

func (m *memClient) GetItem(_ context.Context, p *ddb.GetItemInput, _ ...func(*ddb.Options)) (*ddb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.tbl(deref(p.TableName))
	if err != nil {
		return nil, err
	}
	item := t.items[t.itemKey(p.Key)]
	if item == nil {
		return &ddb.GetItemOutput{}, nil
	}
	return &ddb.GetItemOutput{
		Item: applyProjection(item, p.ProjectionExpression, p.ExpressionAttributeNames),
	}, nil
}

func (m *memClient) DeleteItem(_ context.Context, p *ddb.DeleteItemInput, _ ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.tbl(deref(p.TableName))
	if err != nil {
		return nil, err
	}
	k := t.itemKey(p.Key)
	prior := t.items[k]
	delete(t.items, k)
	out := &ddb.DeleteItemOutput{}
	if p.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = prior
	}
	return out, nil
}

func (m *memClient) Scan(_ context.Context, p *ddb.ScanInput, _ ...func(*ddb.Options)) (*ddb.ScanOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.tbl(deref(p.TableName))
	if err != nil {
		return nil, err
	}
	matched := t.sorted(func(item map[string]types.AttributeValue) bool {
		return evalExpr(item, deref(p.FilterExpression), p.ExpressionAttributeNames, p.ExpressionAttributeValues)
	})
	out := &ddb.ScanOutput{Count: int32(len(matched)), ScannedCount: int32(len(t.items))}
	if p.Select == types.SelectCount {
		return out, nil
	}
	for _, item := range matched {
		out.Items = append(out.Items, applyProjection(item, p.ProjectionExpression, p.ExpressionAttributeNames))
	}
	return out, nil
}

func (m *memClient) Query(_ context.Context, p *ddb.QueryInput, _ ...func(*ddb.Options)) (*ddb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.tbl(deref(p.TableName))
	if err != nil {
		return nil, err
	}
	matched := t.sorted(func(item map[string]types.AttributeValue) bool {
		return evalExpr(item, deref(p.KeyConditionExpression), p.ExpressionAttributeNames, p.ExpressionAttributeValues) &&
			evalExpr(item, deref(p.FilterExpression), p.ExpressionAttributeNames, p.ExpressionAttributeValues)
	})
	out := &ddb.QueryOutput{Count: int32(len(matched)), ScannedCount: int32(len(t.items))}
	if p.Select == types.SelectCount {
		return out, nil
	}
	for _, item := range matched {
		out.Items = append(out.Items, applyProjection(item, p.ProjectionExpression, p.ExpressionAttributeNames))
	}
	return out, nil
}

// sorted returns the matching items in key order, the order a range query
// over a string sort key would produce.
func (t *mockTable) sorted(match func(map[string]types.AttributeValue) bool) []map[string]types.AttributeValue {
	keys := make([]string, 0, len(t.items))
	for k, item := range t.items {
		if match(item) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]map[string]types.AttributeValue, len(keys))
	for i, k := range keys {
		out[i] = t.items[k]
	}
	return out
}

func (m *memClient) size(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t := m.tables[table]; t != nil {
		return len(t.items)
	}
	return 0
}

// ─── expression evaluation ───────────────────────────────────────────────────

func avStr(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return strconv.FormatBool(v.Value)
	}
	return ""
}

// avCompare orders two attribute values: numerically when both are numbers,
// lexically otherwise.
func avCompare(a, b types.AttributeValue) int {
	an, aok := a.(*types.AttributeValueMemberN)
	bn, bok := b.(*types.AttributeValueMemberN)
	if aok && bok {
		af, _ := strconv.ParseFloat(an.Value, 64)
		bf, _ := strconv.ParseFloat(bn.Value, 64)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(avStr(a), avStr(b))
}

// avSize mirrors the engine's size() function.
func avSize(av types.AttributeValue) int {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return len(v.Value)
	case *types.AttributeValueMemberB:
		return len(v.Value)
	case *types.AttributeValueMemberL:
		return len(v.Value)
	case *types.AttributeValueMemberM:
		return len(v.Value)
	case *types.AttributeValueMemberSS:
		return len(v.Value)
	case *types.AttributeValueMemberNS:
		return len(v.Value)
	case *types.AttributeValueMemberBS:
		return len(v.Value)
	}
	return 0
}

// evalExpr evaluates a condition expression against an item. Supports the
// expression shapes this package emits: comparisons, begins_with, contains,
// attribute_exists / attribute_not_exists, size(...), BETWEEN, IN, lowercase
// " and " conjunction, and parenthesised terms. BETWEEN's uppercase AND never
// collides with the lowercase conjunction, so splitting is case-sensitive.
func evalExpr(
	item map[string]types.AttributeValue,
	expr string,
	names map[string]string,
	vals map[string]types.AttributeValue,
) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}

	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		inner := expr[1 : len(expr)-1]
		if balanced(inner) {
			return evalExpr(item, inner, names, vals)
		}
	}

	if parts := splitTopLevel(expr, " and "); len(parts) > 1 {
		for _, p := range parts {
			if !evalExpr(item, p, names, vals) {
				return false
			}
		}
		return true
	}

	resolveName := func(tok string) string {
		tok = strings.TrimSpace(tok)
		if v, ok := names[tok]; ok {
			return v
		}
		return tok
	}
	// operand resolves an expression operand to an attribute value: a size()
	// call, a #name token, or a :value token.
	operand := func(tok string) (types.AttributeValue, bool) {
		tok = strings.TrimSpace(tok)
		if strings.HasPrefix(tok, "size(") && strings.HasSuffix(tok, ")") {
			attr := resolveName(tok[len("size(") : len(tok)-1])
			av, ok := item[attr]
			if !ok {
				return nil, false
			}
			return &types.AttributeValueMemberN{Value: strconv.Itoa(avSize(av))}, true
		}
		if strings.HasPrefix(tok, ":") {
			av, ok := vals[tok]
			return av, ok
		}
		av, ok := item[resolveName(tok)]
		return av, ok
	}

	if strings.HasPrefix(expr, "attribute_not_exists(") {
		attr := resolveName(strings.TrimSuffix(strings.TrimPrefix(expr, "attribute_not_exists("), ")"))
		_, exists := item[attr]
		return !exists
	}
	if strings.HasPrefix(expr, "attribute_exists(") {
		attr := resolveName(strings.TrimSuffix(strings.TrimPrefix(expr, "attribute_exists("), ")"))
		_, exists := item[attr]
		return exists
	}
	if strings.HasPrefix(expr, "begins_with(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(expr, "begins_with("), ")")
		if comma := strings.LastIndex(inner, ","); comma >= 0 {
			lhs, _ := operand(inner[:comma])
			rhs, _ := operand(inner[comma+1:])
			return lhs != nil && strings.HasPrefix(avStr(lhs), avStr(rhs))
		}
	}
	if strings.HasPrefix(expr, "contains(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(expr, "contains("), ")")
		if comma := strings.LastIndex(inner, ","); comma >= 0 {
			lhs, _ := operand(inner[:comma])
			rhs, _ := operand(inner[comma+1:])
			return lhs != nil && containsValue(lhs, rhs)
		}
	}

	if idx := strings.Index(expr, " BETWEEN "); idx >= 0 {
		lhs, ok := operand(expr[:idx])
		if !ok {
			return false
		}
		bounds := strings.SplitN(expr[idx+len(" BETWEEN "):], " AND ", 2)
		if len(bounds) != 2 {
			return false
		}
		lo, _ := operand(bounds[0])
		hi, _ := operand(bounds[1])
		return avCompare(lhs, lo) >= 0 && avCompare(lhs, hi) <= 0
	}
	if idx := strings.Index(expr, " IN ("); idx >= 0 {
		lhs, ok := operand(expr[:idx])
		if !ok {
			return false
		}
		members := strings.TrimSuffix(expr[idx+len(" IN ("):], ")")
		for _, tok := range strings.Split(members, ",") {
			if rhs, ok := operand(tok); ok && avCompare(lhs, rhs) == 0 {
				return true
			}
		}
		return false
	}

	for _, op := range []string{"<>", "<=", ">=", "<", ">", "="} {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		lhs, lok := operand(expr[:idx])
		rhs, _ := operand(expr[idx+len(op):])
		if !lok {
			return false
		}
		cmp := avCompare(lhs, rhs)
		switch op {
		case "=":
			return cmp == 0
		case "<>":
			return cmp != 0
		case "<":
			return cmp < 0
		case "<=":
			return cmp <= 0
		case ">":
			return cmp > 0
		case ">=":
			return cmp >= 0
		}
	}

	return true // unknown expression, pass through
}

// containsValue mirrors the engine's contains(): substring for strings,
// membership for lists and sets.
func containsValue(haystack, needle types.AttributeValue) bool {
	switch h := haystack.(type) {
	case *types.AttributeValueMemberS:
		return strings.Contains(h.Value, avStr(needle))
	case *types.AttributeValueMemberL:
		for _, member := range h.Value {
			if avCompare(member, needle) == 0 {
				return true
			}
		}
	case *types.AttributeValueMemberSS:
		for _, member := range h.Value {
			if member == avStr(needle) {
				return true
			}
		}
	case *types.AttributeValueMemberNS:
		for _, member := range h.Value {
			if member == avStr(needle) {
				return true
			}
		}
	}
	return false
}

func balanced(s string) bool {
	depth := 0
	for _, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// splitTopLevel splits expr on sep only at depth 0, case-sensitively.
func splitTopLevel(expr, sep string) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(expr[i:], sep) {
			parts = append(parts, strings.TrimSpace(expr[last:i]))
			last = i + len(sep)
			i += len(sep) - 1
		}
	}
	parts = append(parts, strings.TrimSpace(expr[last:]))
	return parts
}

// applyProjection narrows an item to the attributes named by a projection
// expression, resolving #-tokens through names.
func applyProjection(
	item map[string]types.AttributeValue,
	pe *string,
	names map[string]string,
) map[string]types.AttributeValue {
	if pe == nil || *pe == "" {
		return item
	}
	out := map[string]types.AttributeValue{}
	for _, tok := range strings.Split(*pe, ",") {
		tok = strings.TrimSpace(tok)
		attr := tok
		if v, ok := names[tok]; ok {
			attr = v
		}
		if av, ok := item[attr]; ok {
			out[attr] = av
		}
	}
	return out
}

func bg() context.Context { return context.Background() }
