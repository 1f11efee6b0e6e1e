package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validation phases.
const (
	PhaseStructural = "structural"
	PhaseSemantic   = "semantic"
	PhaseDomain     = "domain"
)

// Severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation finding with location context.
type ValidationError struct {
	Phase    string `json:"phase"`
	Path     string `json:"path"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    error  `json:"-"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// ValidationErrors is the error-severity subset of a validation run.
type ValidationErrors []*ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (ve ValidationErrors) Unwrap() []error {
	errs := make([]error, len(ve))
	for i, e := range ve {
		errs[i] = e
	}
	return errs
}

// Rule is a boolean expr-lang expression evaluated against a decoded snapshot.
// The environment exposes NumSliders, SliderVals, NumPoints, Points and Total.
type Rule struct {
	Name     string `yaml:"name"     json:"name"`
	Expr     string `yaml:"expr"     json:"expr"`
	Severity string `yaml:"severity" json:"severity"`
}

// Validate runs the 3-phase validation pipeline on a persisted document.
// Phase 1: Structural (JSON decode)
// Phase 2: Semantic (JSON Schema validation of the raw document)
// Phase 3: Domain (Go rules plus caller expression rules)
// The snapshot is nil only when the structural phase fails.
func Validate(data []byte, rules []Rule) (*Snapshot, []*ValidationError) {
	s, err := Unmarshal(data)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    PhaseStructural,
			Message:  err.Error(),
			Severity: SeverityError,
		}}
	}

	s.Normalize()

	var all []*ValidationError
	all = append(all, validateSemantic(data)...)
	all = append(all, ValidateDomain(s)...)
	all = append(all, EvalRules(s, rules)...)
	if len(all) > 0 {
		return s, all
	}
	return s, nil
}

// validateSemantic validates the raw document against the generated JSON Schema.
func validateSemantic(data []byte) []*ValidationError {
	fail := func(format string, err error) []*ValidationError {
		return []*ValidationError{{
			Phase:    PhaseSemantic,
			Message:  fmt.Sprintf(format, err),
			Severity: SeverityError,
		}}
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return fail("generate schema: %v", err)
	}
	schemaDoc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fail("unmarshal schema: %v", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("snapshot-v0.json", schemaDoc); err != nil {
		return fail("add schema resource: %v", err)
	}
	sch, err := c.Compile("snapshot-v0.json")
	if err != nil {
		return fail("compile schema: %v", err)
	}

	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fail("unmarshal document: %v", err)
	}
	emptyNullLists(doc)

	if err := sch.Validate(doc); err != nil {
		var ve *sjsonschema.ValidationError
		if !errors.As(err, &ve) {
			return fail("%v", err)
		}
		var errs []*ValidationError
		for _, cause := range flattenValidationErrors(ve) {
			errs = append(errs, &ValidationError{
				Phase:    PhaseSemantic,
				Path:     strings.Join(cause.InstanceLocation, "/"),
				Message:  fmt.Sprintf("%v", cause.ErrorKind),
				Severity: SeverityError,
			})
		}
		return errs
	}
	return nil
}

// emptyNullLists treats a null list as empty. Writers fed by an unconnected
// input emit null for that list.
func emptyNullLists(doc any) {
	m, ok := doc.(map[string]any)
	if !ok {
		return
	}
	for _, key := range []string{"NumSliders", "SliderVals", "Points"} {
		if v, present := m[key]; present && v == nil {
			m[key] = []any{}
		}
	}
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateDomain applies the built-in domain rules to a decoded snapshot.
func ValidateDomain(s *Snapshot) []*ValidationError {
	var errs []*ValidationError

	for i, size := range s.BankSizes {
		if size < 0 {
			errs = append(errs, &ValidationError{
				Phase:    PhaseDomain,
				Path:     fmt.Sprintf("NumSliders[%d]", i),
				Message:  fmt.Sprintf("bank size %d is negative", size),
				Severity: SeverityError,
			})
		}
	}

	total := s.Total()
	switch {
	case total > 0 && len(s.SliderValues) == 0:
		errs = append(errs, &ValidationError{
			Phase:    PhaseDomain,
			Path:     "SliderVals",
			Message:  fmt.Sprintf("no values for %d sliders", total),
			Severity: SeverityError,
			Cause:    ErrMalformedSnapshot,
		})
	case len(s.SliderValues) < total:
		errs = append(errs, &ValidationError{
			Phase:    PhaseDomain,
			Path:     "SliderVals",
			Message:  fmt.Sprintf("%d values for %d sliders; the last value is repeated", len(s.SliderValues), total),
			Severity: SeverityWarning,
		})
	case len(s.SliderValues) > total:
		errs = append(errs, &ValidationError{
			Phase:    PhaseDomain,
			Path:     "SliderVals",
			Message:  fmt.Sprintf("%d values for %d sliders; extra values are ignored", len(s.SliderValues), total),
			Severity: SeverityWarning,
		})
	}

	if s.PointCount != len(s.Points) {
		errs = append(errs, &ValidationError{
			Phase:    PhaseDomain,
			Path:     "NumPoints",
			Message:  fmt.Sprintf("NumPoints is %d but %d points are stored", s.PointCount, len(s.Points)),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// CheckRange warns about slider values outside the closed interval [min, max].
func CheckRange(s *Snapshot, min, max int) []*ValidationError {
	var errs []*ValidationError
	for i, v := range s.SliderValues {
		if v < min || v > max {
			errs = append(errs, &ValidationError{
				Phase:    PhaseDomain,
				Path:     fmt.Sprintf("SliderVals[%d]", i),
				Message:  fmt.Sprintf("value %d outside range [%d, %d]", v, min, max),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// EvalRules evaluates each rule against the snapshot. A rule that does not
// compile, errors at runtime or evaluates to false yields a finding.
func EvalRules(s *Snapshot, rules []Rule) []*ValidationError {
	if len(rules) == 0 {
		return nil
	}
	env := ruleEnv(s)
	var errs []*ValidationError
	for i, r := range rules {
		path := fmt.Sprintf("rules[%d]", i)
		if r.Name != "" {
			path = "rules." + r.Name
		}
		severity := r.Severity
		if severity == "" {
			severity = SeverityError
		}

		program, err := expr.Compile(r.Expr, expr.Env(env), expr.AsBool())
		if err != nil {
			errs = append(errs, &ValidationError{
				Phase:    PhaseDomain,
				Path:     path,
				Message:  fmt.Sprintf("compile rule: %v", err),
				Severity: SeverityError,
			})
			continue
		}
		out, err := expr.Run(program, env)
		if err != nil {
			errs = append(errs, &ValidationError{
				Phase:    PhaseDomain,
				Path:     path,
				Message:  fmt.Sprintf("evaluate rule: %v", err),
				Severity: SeverityError,
			})
			continue
		}
		if ok, _ := out.(bool); !ok {
			errs = append(errs, &ValidationError{
				Phase:    PhaseDomain,
				Path:     path,
				Message:  fmt.Sprintf("rule failed: %s", r.Expr),
				Severity: severity,
			})
		}
	}
	return errs
}

func ruleEnv(s *Snapshot) map[string]any {
	return map[string]any{
		"NumSliders": s.BankSizes,
		"SliderVals": s.SliderValues,
		"NumPoints":  s.PointCount,
		"Points":     s.Points,
		"Total":      s.Total(),
	}
}

// Errors returns the error-severity findings, or nil when there are none.
func Errors(findings []*ValidationError) ValidationErrors {
	var out ValidationErrors
	for _, f := range findings {
		if f.Severity != SeverityWarning {
			out = append(out, f)
		}
	}
	return out
}

// Warnings returns the warning-severity findings.
func Warnings(findings []*ValidationError) []*ValidationError {
	var out []*ValidationError
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			out = append(out, f)
		}
	}
	return out
}
