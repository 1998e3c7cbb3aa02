// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package storedquery

import (
	"errors"
	"strings"
	"testing"
)

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestIsRequired(t *testing.T) {
	tests := []struct {
		name  string
		param ParamDef
		want  bool
	}{
		{
			name:  "no default no choices",
			param: ParamDef{Name: "id", Type: TypeString},
			want:  true,
		},
		{
			name:  "default present",
			param: ParamDef{Name: "days", Type: TypeNumber, Default: 30},
			want:  false,
		},
		{
			name:  "choices present",
			param: ParamDef{Name: "status", Type: TypeString, Choices: []any{"a", "b"}},
			want:  false,
		},
		{
			name:  "explicit required true with default",
			param: ParamDef{Name: "days", Type: TypeNumber, Default: 30, Required: boolPtr(true)},
			want:  true,
		},
		{
			name:  "explicit required false without default",
			param: ParamDef{Name: "id", Type: TypeString, Required: boolPtr(false)},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.param.IsRequired(); got != tt.want {
				t.Errorf("IsRequired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	p := ParamDef{Name: "days", Type: TypeNumber}
	err := p.Validate("abc")

	var tmErr *TypeMismatchError
	if !errors.As(err, &tmErr) {
		t.Fatalf("Validate() error = %v, want *TypeMismatchError", err)
	}
	if tmErr.Expected != "number" {
		t.Errorf("expected = %q, want %q", tmErr.Expected, "number")
	}
	if tmErr.Value != "abc" {
		t.Errorf("value = %q, want %q", tmErr.Value, "abc")
	}
}

func TestValidateRange(t *testing.T) {
	p := ParamDef{Name: "limit", Type: TypeNumber, Min: floatPtr(1), Max: floatPtr(1000)}

	if err := p.Validate(int64(500)); err != nil {
		t.Errorf("Validate(500) error: %v", err)
	}

	var maxErr *AboveMaxError
	if err := p.Validate(int64(5000)); !errors.As(err, &maxErr) {
		t.Fatalf("Validate(5000) error = %v, want *AboveMaxError", err)
	}
	if maxErr.Max != 1000.0 || maxErr.Value != 5000.0 {
		t.Errorf("AboveMaxError = %+v, want max=1000.0 value=5000.0", maxErr)
	}

	var minErr *BelowMinError
	if err := p.Validate(int64(0)); !errors.As(err, &minErr) {
		t.Fatalf("Validate(0) error = %v, want *BelowMinError", err)
	}
	if minErr.Min != 1.0 || minErr.Value != 0.0 {
		t.Errorf("BelowMinError = %+v", minErr)
	}
}

func TestValidateChoices(t *testing.T) {
	p := ParamDef{Name: "status", Type: TypeString, Choices: []any{"pending", "shipped", "delivered"}}

	if err := p.Validate("shipped"); err != nil {
		t.Errorf("Validate(shipped) error: %v", err)
	}

	var choiceErr *InvalidChoiceError
	if err := p.Validate("bogus"); !errors.As(err, &choiceErr) {
		t.Fatalf("Validate(bogus) error = %v, want *InvalidChoiceError", err)
	}
	if choiceErr.Choices != "pending, shipped, delivered" {
		t.Errorf("choices rendering = %q", choiceErr.Choices)
	}
}

func TestValidateNumericChoicesExactValue(t *testing.T) {
	p := ParamDef{Name: "limit", Type: TypeNumber, Choices: []any{10, 50, 100}}

	if err := p.Validate(int64(50)); err != nil {
		t.Errorf("Validate(50) error: %v", err)
	}
	if err := p.Validate(50.5); err == nil {
		t.Error("Validate(50.5) expected InvalidChoiceError")
	}
}

func TestValidatePattern(t *testing.T) {
	p := ParamDef{Name: "email", Type: TypeString, Pattern: `[^@]+@[^@]+`}

	if err := p.Validate("user@example.com"); err != nil {
		t.Errorf("Validate(user@example.com) error: %v", err)
	}

	var patErr *PatternMismatchError
	if err := p.Validate("not-an-email"); !errors.As(err, &patErr) {
		t.Fatalf("Validate(not-an-email) error = %v, want *PatternMismatchError", err)
	}
}

func TestValidatePatternIsFullMatch(t *testing.T) {
	p := ParamDef{Name: "code", Type: TypeString, Pattern: `[a-z]{3}`}
	if err := p.Validate("abc"); err != nil {
		t.Errorf("Validate(abc) error: %v", err)
	}
	// A substring match is not enough.
	if err := p.Validate("abcdef"); err == nil {
		t.Error("Validate(abcdef) expected PatternMismatchError")
	}
}

func TestValidateReportsFirstFailureOnly(t *testing.T) {
	// Value fails both the range check and the choices check; the range
	// check comes first in the fixed order.
	p := ParamDef{Name: "limit", Type: TypeNumber, Max: floatPtr(10), Choices: []any{1, 5, 10}}
	err := p.Validate(int64(99))

	var maxErr *AboveMaxError
	if !errors.As(err, &maxErr) {
		t.Errorf("Validate() error = %v, want *AboveMaxError first", err)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name      string
		paramType ParamType
		raw       string
		want      any
		wantErr   bool
	}{
		{name: "string passthrough", paramType: TypeString, raw: "30", want: "30"},
		{name: "integer", paramType: TypeNumber, raw: "7", want: int64(7)},
		{name: "negative integer", paramType: TypeNumber, raw: "-3", want: int64(-3)},
		{name: "float", paramType: TypeNumber, raw: "2.5", want: 2.5},
		{name: "not a number", paramType: TypeNumber, raw: "seven", wantErr: true},
		{name: "bool true", paramType: TypeBool, raw: "true", want: true},
		{name: "bool yes", paramType: TypeBool, raw: "YES", want: true},
		{name: "bool 1", paramType: TypeBool, raw: "1", want: true},
		{name: "bool false", paramType: TypeBool, raw: "false", want: false},
		{name: "bool no", paramType: TypeBool, raw: "no", want: false},
		{name: "bool 0", paramType: TypeBool, raw: "0", want: false},
		{name: "bool invalid", paramType: TypeBool, raw: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue("p", tt.paramType, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseValue(%q) expected error, got %v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseValue(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseValue(%q) = %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestResolveParamsPrecedence(t *testing.T) {
	params := []ParamDef{
		{Name: "days", Type: TypeNumber, Default: 30},
		{Name: "status", Type: TypeString, Choices: []any{"pending"}},
		{Name: "verbose", Type: TypeBool, Required: boolPtr(false)},
	}

	// No provided values: default and sole choice kick in, optional skipped.
	resolved, err := ResolveParams(params, nil)
	if err != nil {
		t.Fatalf("ResolveParams() error: %v", err)
	}
	if got := resolved["days"]; got != 30 {
		t.Errorf("days = %v (%T), want typed 30", got, got)
	}
	if got := resolved["status"]; got != "pending" {
		t.Errorf("status = %v, want sole choice", got)
	}
	if _, ok := resolved["verbose"]; ok {
		t.Error("optional parameter without source should be skipped")
	}

	// Provided raw strings win over defaults and are parsed to typed values.
	resolved, err = ResolveParams(params, map[string]string{"days": "7", "verbose": "yes"})
	if err != nil {
		t.Fatalf("ResolveParams() error: %v", err)
	}
	if got := resolved["days"]; got != int64(7) {
		t.Errorf("days = %v (%T), want int64(7)", got, got)
	}
	if got := resolved["verbose"]; got != true {
		t.Errorf("verbose = %v, want true", got)
	}
}

func TestResolveParamsMissingRequired(t *testing.T) {
	params := []ParamDef{{Name: "id", Type: TypeString}}

	_, err := ResolveParams(params, nil)
	var missErr *MissingParamError
	if !errors.As(err, &missErr) {
		t.Fatalf("ResolveParams() error = %v, want *MissingParamError", err)
	}
	if missErr.Name != "id" {
		t.Errorf("missing param name = %q", missErr.Name)
	}
}

func TestResolveParamsValidatesProvided(t *testing.T) {
	params := []ParamDef{{Name: "limit", Type: TypeNumber, Min: floatPtr(1), Max: floatPtr(1000)}}

	_, err := ResolveParams(params, map[string]string{"limit": "5000"})
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("ResolveParams() error = %v, want above-max failure", err)
	}
}

func TestResolveParamsValidatesDefault(t *testing.T) {
	// A default still goes through validation.
	params := []ParamDef{{Name: "status", Type: TypeString, Default: "archived", Choices: []any{"pending", "shipped"}}}

	_, err := ResolveParams(params, nil)
	var choiceErr *InvalidChoiceError
	if !errors.As(err, &choiceErr) {
		t.Errorf("ResolveParams() error = %v, want *InvalidChoiceError", err)
	}
}

func TestBuildQueryParams(t *testing.T) {
	resolved := map[string]any{
		"status": "active",
		"days":   int64(7),
	}
	params := BuildQueryParams(resolved)
	if len(params) != 2 {
		t.Fatalf("len = %d, want 2", len(params))
	}
	// Sorted by name for a deterministic request body.
	if params[0].Name != "@days" || params[0].Value != int64(7) {
		t.Errorf("params[0] = %+v", params[0])
	}
	if params[1].Name != "@status" || params[1].Value != "active" {
		t.Errorf("params[1] = %+v", params[1])
	}
}
