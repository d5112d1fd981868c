package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridflow/gridval/pkg/types"
)

func TestRequired(t *testing.T) {
	rule := Required("Name")

	assert.False(t, rule.Cell(nil))
	assert.False(t, rule.Cell(""))
	assert.False(t, rule.Cell("   "))
	assert.True(t, rule.Cell("Ada"))
	assert.True(t, rule.Cell(0), "non-string zero values count as present")
	assert.Equal(t, "Name is required", rule.ErrorMessage)
	assert.Equal(t, ScopeSingleCell, rule.Scope)
}

func TestRegexp(t *testing.T) {
	rule, err := Regexp("Email", `^[^@\s]+@[^@\s]+$`, "invalid email")
	require.NoError(t, err)

	assert.True(t, rule.Cell("ada@example.com"))
	assert.False(t, rule.Cell("not-an-email"))
	assert.False(t, rule.Cell(42), "non-string values fail")
}

func TestRegexpInvalidPattern(t *testing.T) {
	_, err := Regexp("Email", `(`, "msg")
	assert.Error(t, err, "an invalid pattern surfaces at construction time")
}

func TestRange(t *testing.T) {
	rule := Range("Age", 0, 120, "age out of range")

	assert.True(t, rule.Cell(0))
	assert.True(t, rule.Cell(120))
	assert.True(t, rule.Cell(64.5))
	assert.True(t, rule.Cell(json.Number("42")))
	assert.False(t, rule.Cell(-1))
	assert.False(t, rule.Cell(121))
	assert.False(t, rule.Cell("42"), "non-numeric values fail")
}

func TestOneOf(t *testing.T) {
	rule := OneOf("Status", []interface{}{"open", "closed"}, "unknown status")

	assert.True(t, rule.Cell("open"))
	assert.False(t, rule.Cell("pending"))
	assert.False(t, rule.Cell(nil))
}

func TestSchema(t *testing.T) {
	schema := json.RawMessage(`{"type": "object", "required": ["id"]}`)
	rule, err := Schema("Payload", schema, "payload malformed")
	require.NoError(t, err)

	assert.True(t, rule.Cell(map[string]interface{}{"id": 1}))
	assert.False(t, rule.Cell(map[string]interface{}{"name": "x"}))
}

func TestSchemaInvalidSchema(t *testing.T) {
	_, err := Schema("Payload", json.RawMessage(`{"type": 12}`), "msg")
	assert.Error(t, err)
}

func TestOptionsSetHeaderFields(t *testing.T) {
	rule := Required("Name",
		WithName("name-required"),
		WithSeverity(types.SeverityCritical),
		WithPriority(5))

	assert.Equal(t, "name-required", rule.Name)
	assert.Equal(t, types.SeverityCritical, rule.Severity)
	assert.Equal(t, 5, rule.Priority)
}

func TestConditionalInheritsInnerHeader(t *testing.T) {
	inner := NewSingleCell("Age", func(interface{}) bool { return true }, "inner message",
		WithSeverity(types.SeverityWarning))
	rule := NewConditional("Age", func(map[string]interface{}) bool { return true }, inner)

	assert.Equal(t, "inner message", rule.ErrorMessage)
	assert.Equal(t, types.SeverityWarning, rule.Severity)
	assert.Equal(t, ScopeConditional, rule.Scope)
}
