package rules

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Required creates a single-cell rule that fails on nil values and on
// strings containing only whitespace.
func Required(columnName string, opts ...Option) Rule {
	predicate := func(value interface{}) bool {
		if value == nil {
			return false
		}
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return true
	}
	message := fmt.Sprintf("%s is required", columnName)
	return NewSingleCell(columnName, predicate, message, opts...)
}

// Regexp creates a single-cell rule that matches string values against the
// given pattern. Non-string values fail. The pattern is compiled eagerly so
// an invalid pattern surfaces at construction time.
func Regexp(columnName, pattern, errorMessage string, opts ...Option) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid pattern for column %s: %w", columnName, err)
	}
	predicate := func(value interface{}) bool {
		s, ok := value.(string)
		return ok && re.MatchString(s)
	}
	return NewSingleCell(columnName, predicate, errorMessage, opts...), nil
}

// Range creates a single-cell rule that checks a numeric value against the
// inclusive bounds [min, max]. Non-numeric values fail.
func Range(columnName string, min, max float64, errorMessage string, opts ...Option) Rule {
	predicate := func(value interface{}) bool {
		n, ok := toFloat(value)
		return ok && n >= min && n <= max
	}
	return NewSingleCell(columnName, predicate, errorMessage, opts...)
}

// OneOf creates a single-cell rule that checks membership in a fixed set of
// allowed values.
func OneOf(columnName string, allowed []interface{}, errorMessage string, opts ...Option) Rule {
	predicate := func(value interface{}) bool {
		for _, a := range allowed {
			if reflect.DeepEqual(value, a) {
				return true
			}
		}
		return false
	}
	return NewSingleCell(columnName, predicate, errorMessage, opts...)
}

// Schema creates a single-cell rule that validates the cell value against a
// JSON schema. The schema is compiled eagerly.
func Schema(columnName string, schema json.RawMessage, errorMessage string, opts ...Option) (Rule, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return Rule{}, fmt.Errorf("invalid schema for column %s: %w", columnName, err)
	}
	predicate := func(value interface{}) bool {
		result, err := compiled.Validate(gojsonschema.NewGoLoader(value))
		return err == nil && result.Valid()
	}
	return NewSingleCell(columnName, predicate, errorMessage, opts...), nil
}

// toFloat coerces the numeric types a grid cell can plausibly hold
func toFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
