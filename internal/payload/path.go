// Package payload extracts fields from decoded backend JSON using JMESPath expressions.
package payload

import (
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// Path is a validated JMESPath expression.
type Path struct {
	expr string
}

// Compile validates expr and returns a Path. An empty expression is rejected.
func Compile(expr string) (Path, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Path{}, fmt.Errorf("empty payload path")
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return Path{}, fmt.Errorf("compile payload path %q: %w", expr, err)
	}
	return Path{expr: expr}, nil
}

// MustCompile is like Compile but panics on an invalid expression.
// Use only for compile-time constants.
func MustCompile(expr string) Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return p.expr }

// Search evaluates the path against data. A null result reports false.
func (p Path) Search(data any) (any, bool) {
	if p.expr == "" || data == nil {
		return nil, false
	}
	v, err := jmespath.Search(p.expr, data)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// Text evaluates the path and renders scalar results as a string.
// Empty strings, objects and arrays report false.
func (p Path) Text(data any) (string, bool) {
	v, ok := p.Search(data)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return formatNumber(t), true
	case json.Number:
		return t.String(), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

// Decode unmarshals raw JSON into the generic shape JMESPath expects.
func Decode(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
