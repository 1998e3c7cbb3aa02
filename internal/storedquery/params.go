// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package storedquery

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cosq/cli/internal/cosmos"
)

// ParamType is the declared type of a stored query parameter.
type ParamType string

// Parameter types accepted in stored query front matter.
const (
	TypeString ParamType = "string"
	TypeNumber ParamType = "number"
	TypeBool   ParamType = "bool"
)

// ParamDef is a parameter definition within a stored query. Definitions are
// created at parse time and never mutated afterwards.
type ParamDef struct {
	// Name is used as @name in SQL and must be unique within a query.
	Name string `yaml:"name"`
	// Type is one of string, number, bool.
	Type ParamType `yaml:"type"`
	// Description is shown when listing queries.
	Description string `yaml:"description,omitempty"`
	// Default value, used when no value is provided.
	Default any `yaml:"default,omitempty"`
	// Choices is a closed set of allowed values.
	Choices []any `yaml:"choices,omitempty"`
	// Required overrides the default/choices inference when set.
	Required *bool `yaml:"required,omitempty"`
	// Min/Max bound number-typed values.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
	// Pattern is a regular expression string-typed values must fully match.
	Pattern string `yaml:"pattern,omitempty"`
}

// TypeMismatchError reports a value whose dynamic type does not match the
// parameter's declared type, or a raw string that cannot be parsed into it.
type TypeMismatchError struct {
	Name     string
	Expected string
	Value    string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("parameter %q: expected %s, got '%s'", e.Name, e.Expected, e.Value)
}

// BelowMinError reports a number under the parameter's minimum.
type BelowMinError struct {
	Name  string
	Value float64
	Min   float64
}

func (e *BelowMinError) Error() string {
	return fmt.Sprintf("parameter %q: value %v is below minimum %v", e.Name, e.Value, e.Min)
}

// AboveMaxError reports a number over the parameter's maximum.
type AboveMaxError struct {
	Name  string
	Value float64
	Max   float64
}

func (e *AboveMaxError) Error() string {
	return fmt.Sprintf("parameter %q: value %v exceeds maximum %v", e.Name, e.Value, e.Max)
}

// InvalidChoiceError reports a value outside the parameter's choices set.
type InvalidChoiceError struct {
	Name    string
	Value   string
	Choices string
}

func (e *InvalidChoiceError) Error() string {
	return fmt.Sprintf("parameter %q: '%s' is not one of the allowed values: %s", e.Name, e.Value, e.Choices)
}

// PatternMismatchError reports a string that does not match the parameter's pattern.
type PatternMismatchError struct {
	Name    string
	Value   string
	Pattern string
}

func (e *PatternMismatchError) Error() string {
	return fmt.Sprintf("parameter %q: value '%s' does not match pattern '%s'", e.Name, e.Value, e.Pattern)
}

// MissingParamError reports a required parameter with no value from any source.
type MissingParamError struct {
	Name string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("parameter %q is required", e.Name)
}

// IsRequired reports whether the parameter must be supplied. An explicit
// required flag wins; otherwise a parameter is required exactly when it has
// neither a default nor a choices set.
func (p *ParamDef) IsRequired() bool {
	if p.Required != nil {
		return *p.Required
	}
	return p.Default == nil && p.Choices == nil
}

// Validate checks a resolved value against the parameter's constraints, in a
// fixed order: type, numeric range, choices membership, string pattern. The
// first failing check is reported.
func (p *ParamDef) Validate(value any) error {
	switch p.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			return &TypeMismatchError{Name: p.Name, Expected: "string", Value: displayValue(value)}
		}
	case TypeNumber:
		if _, ok := asFloat(value); !ok {
			return &TypeMismatchError{Name: p.Name, Expected: "number", Value: displayValue(value)}
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return &TypeMismatchError{Name: p.Name, Expected: "bool", Value: displayValue(value)}
		}
	default:
		return fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type)
	}

	if num, ok := asFloat(value); ok {
		if p.Min != nil && num < *p.Min {
			return &BelowMinError{Name: p.Name, Value: num, Min: *p.Min}
		}
		if p.Max != nil && num > *p.Max {
			return &AboveMaxError{Name: p.Name, Value: num, Max: *p.Max}
		}
	}

	if p.Choices != nil {
		found := false
		for _, choice := range p.Choices {
			if valuesEqual(choice, value) {
				found = true
				break
			}
		}
		if !found {
			rendered := make([]string, 0, len(p.Choices))
			for _, choice := range p.Choices {
				rendered = append(rendered, displayValue(choice))
			}
			return &InvalidChoiceError{
				Name:    p.Name,
				Value:   displayValue(value),
				Choices: strings.Join(rendered, ", "),
			}
		}
	}

	if p.Pattern != "" {
		if s, ok := value.(string); ok {
			re, err := regexp.Compile(`\A(?:` + p.Pattern + `)\z`)
			if err != nil {
				return &PatternMismatchError{Name: p.Name, Value: s, Pattern: p.Pattern}
			}
			if !re.MatchString(s) {
				return &PatternMismatchError{Name: p.Name, Value: s, Pattern: p.Pattern}
			}
		}
	}

	return nil
}

// ParseValue converts a raw string into a typed value for the given type.
// Numbers parse as integers first so whole values stay integral end to end;
// booleans accept the case-insensitive literals true/1/yes and false/0/no.
func ParseValue(name string, paramType ParamType, raw string) (any, error) {
	switch paramType {
	case TypeString:
		return raw, nil
	case TypeNumber:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
		return nil, &TypeMismatchError{Name: name, Expected: "number", Value: raw}
	case TypeBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		default:
			return nil, &TypeMismatchError{Name: name, Expected: "bool (true/false)", Value: raw}
		}
	default:
		return nil, fmt.Errorf("parameter %q: unknown type %q", name, paramType)
	}
}

// ResolveParams resolves declared parameters against provided raw values.
// Source precedence per parameter: provided string (parsed) > default >
// sole element of a single-item choices set > MissingParamError if required >
// skipped. Every resolved value is validated exactly once before insertion.
func ResolveParams(params []ParamDef, provided map[string]string) (map[string]any, error) {
	resolved := make(map[string]any, len(params))

	for i := range params {
		p := &params[i]
		var value any

		switch {
		case hasKey(provided, p.Name):
			parsed, err := ParseValue(p.Name, p.Type, provided[p.Name])
			if err != nil {
				return nil, err
			}
			value = parsed
		case p.Default != nil:
			value = p.Default
		case len(p.Choices) == 1:
			value = p.Choices[0]
		case p.IsRequired():
			return nil, &MissingParamError{Name: p.Name}
		default:
			continue
		}

		if err := p.Validate(value); err != nil {
			return nil, err
		}
		resolved[p.Name] = value
	}

	return resolved, nil
}

// BuildQueryParams converts resolved values into the wire-level parameter
// array, sorted by name so the request body is deterministic.
func BuildQueryParams(resolved map[string]any) []cosmos.QueryParam {
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]cosmos.QueryParam, 0, len(names))
	for _, name := range names {
		params = append(params, cosmos.QueryParam{Name: "@" + name, Value: resolved[name]})
	}
	return params
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

// asFloat normalizes the numeric representations produced by YAML decoding
// (int, float64) and ParseValue (int64, float64).
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// asInt reports the value as an integer when it is integrally typed.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// valuesEqual compares a choices entry with a resolved value. Integer and
// floating values compare as distinct kinds, so 30 matches 30 but not 30.5.
func valuesEqual(a, b any) bool {
	if ia, ok := asInt(a); ok {
		ib, ok := asInt(b)
		return ok && ia == ib
	}
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

// displayValue renders a value for error messages: strings verbatim,
// everything else in its literal form.
func displayValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
