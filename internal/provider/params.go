package provider

// ConstraintKind determines how a parameter value is validated.
type ConstraintKind string

const (
	// Range requires a numeric value within [Min, Max].
	Range ConstraintKind = "range"
	// MinOnly requires a numeric value >= Min.
	MinOnly ConstraintKind = "min_only"
	// Categorical requires string membership in Allowed.
	Categorical ConstraintKind = "categorical"
)

// Constraint is the static validation record for one generation parameter.
// The constraint table is data, not code: adding a parameter to a provider
// is a table change.
type Constraint struct {
	Kind    ConstraintKind `json:"kind"`
	Min     float64        `json:"min"`
	Max     float64        `json:"max"`
	Allowed []string       `json:"allowed,omitempty"`
	// Default is applied on reset. A nil default means "omit from request".
	Default any `json:"default,omitempty"`
}

// ParamSet holds a provider's generation parameters, each validated against
// its declared constraint. A stored value is always either nil (not sent)
// or within its constraint.
type ParamSet struct {
	specs  map[string]Constraint
	values map[string]any
}

// NewParamSet creates a parameter set with every parameter at its default.
func NewParamSet(specs map[string]Constraint) *ParamSet {
	p := &ParamSet{
		specs:  specs,
		values: make(map[string]any, len(specs)),
	}
	p.ResetAll()
	return p
}

// Set validates and stores a parameter value. A nil value resets the
// parameter to its default. Returns false, leaving state unchanged, when
// the name is unknown or the value violates its constraint.
func (p *ParamSet) Set(name string, value any) bool {
	spec, ok := p.specs[name]
	if !ok {
		return false
	}

	if value == nil {
		p.values[name] = spec.Default
		return true
	}

	switch spec.Kind {
	case Categorical:
		s, ok := value.(string)
		if !ok {
			return false
		}
		for _, allowed := range spec.Allowed {
			if s == allowed {
				p.values[name] = s
				return true
			}
		}
		return false

	case Range:
		f, ok := toFloat(value)
		if !ok || f < spec.Min || f > spec.Max {
			return false
		}
		p.values[name] = value
		return true

	case MinOnly:
		f, ok := toFloat(value)
		if !ok || f < spec.Min {
			return false
		}
		p.values[name] = value
		return true
	}

	return false
}

// Get returns the current value of a parameter, nil when unset.
func (p *ParamSet) Get(name string) any {
	return p.values[name]
}

// Specs returns the constraint table.
func (p *ParamSet) Specs() map[string]Constraint {
	return p.specs
}

// ResetAll sets every parameter to its declared default.
func (p *ParamSet) ResetAll() {
	for name, spec := range p.specs {
		p.values[name] = spec.Default
	}
}

// RequestValues returns the parameters to merge into an outbound request:
// only those whose current value is not nil, keyed by provider-native name.
func (p *ParamSet) RequestValues() map[string]any {
	out := make(map[string]any)
	for name, value := range p.values {
		if value != nil {
			out[name] = value
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// floatValue reads a numeric request value, 0 when absent.
func floatValue(vals map[string]any, name string) (float64, bool) {
	v, ok := vals[name]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// intValue reads an integer request value, 0 when absent.
func intValue(vals map[string]any, name string) (int, bool) {
	f, ok := floatValue(vals, name)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// stringValue reads a string request value, "" when absent.
func stringValue(vals map[string]any, name string) (string, bool) {
	v, ok := vals[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
