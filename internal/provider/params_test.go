package provider

import (
	"testing"
)

func testSpecs() map[string]Constraint {
	return map[string]Constraint{
		"temperature": {Kind: Range, Min: 0.0, Max: 2.0},
		"top_k":       {Kind: MinOnly, Min: 0},
		"effort":      {Kind: Categorical, Allowed: []string{"low", "medium", "high"}},
		"style":       {Kind: Categorical, Allowed: []string{"plain"}, Default: "plain"},
	}
}

func TestParamSetValidation(t *testing.T) {
	tests := []struct {
		name   string
		param  string
		value  any
		wantOK bool
	}{
		{"range in bounds", "temperature", 0.7, true},
		{"range at min", "temperature", 0.0, true},
		{"range at max", "temperature", 2.0, true},
		{"range below min", "temperature", -0.1, false},
		{"range above max", "temperature", 2.1, false},
		{"range int accepted", "temperature", 1, true},
		{"min_only at min", "top_k", 0, true},
		{"min_only above min", "top_k", 40, true},
		{"min_only below min", "top_k", -1, false},
		{"min_only no upper bound", "top_k", 1_000_000, true},
		{"categorical member", "effort", "high", true},
		{"categorical non-member", "effort", "maximum", false},
		{"categorical wrong type", "effort", 3, false},
		{"unknown parameter", "penalty", 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParamSet(testSpecs())
			if got := p.Set(tt.param, tt.value); got != tt.wantOK {
				t.Errorf("Set(%q, %v) = %v, want %v", tt.param, tt.value, got, tt.wantOK)
			}
		})
	}
}

func TestParamSetRejectionLeavesStateUnchanged(t *testing.T) {
	p := NewParamSet(testSpecs())
	if !p.Set("temperature", 0.5) {
		t.Fatal("Set(temperature, 0.5) rejected")
	}
	if p.Set("temperature", 3.0) {
		t.Fatal("Set(temperature, 3.0) accepted")
	}
	if got := p.Get("temperature"); got != 0.5 {
		t.Errorf("temperature = %v after rejected set, want 0.5", got)
	}
}

func TestParamSetNilResetsToDefault(t *testing.T) {
	p := NewParamSet(testSpecs())

	p.Set("temperature", 1.5)
	if !p.Set("temperature", nil) {
		t.Fatal("Set(temperature, nil) rejected")
	}
	if got := p.Get("temperature"); got != nil {
		t.Errorf("temperature = %v after nil set, want nil", got)
	}

	p.Set("style", nil)
	if got := p.Get("style"); got != "plain" {
		t.Errorf("style = %v after nil set, want declared default", got)
	}
}

func TestParamSetResetAllAndRequestValues(t *testing.T) {
	p := NewParamSet(testSpecs())
	p.Set("temperature", 1.2)
	p.Set("top_k", 40)
	p.Set("effort", "low")

	p.ResetAll()

	vals := p.RequestValues()
	if len(vals) != 1 {
		t.Fatalf("RequestValues after reset = %v, want only declared defaults", vals)
	}
	if vals["style"] != "plain" {
		t.Errorf("style = %v, want plain", vals["style"])
	}
}

func TestParamSetRequestValuesOmitsUnset(t *testing.T) {
	p := NewParamSet(openAIParamSpecs())
	p.Set("temperature", 0.9)

	vals := p.RequestValues()
	if len(vals) != 1 {
		t.Fatalf("RequestValues = %v, want single entry", vals)
	}
	if _, ok := vals["max_tokens"]; ok {
		t.Error("unset max_tokens leaked into request values")
	}
}
