package forms

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/timzifer/pharmadesk/config"
)

// Form names used as validation keys.
const (
	Login           = "login"
	RegisterDetails = "register_details"
	RegisterStore   = "register_store"
)

// Rule is a boolean expression over the form fields. The field is invalid
// when the expression does not evaluate to true.
type Rule struct {
	Field      string
	Expression string
	Message    string
}

// DefaultRules returns the built-in rule sets.
func DefaultRules() map[string][]Rule {
	return map[string][]Rule{
		Login: {
			{Field: "email", Expression: `trim(email) != ""`, Message: "البريد الإلكتروني مطلوب"},
			{Field: "email", Expression: `trim(email) matches "^[^@ ]+@[^@ ]+[.][^@ ]+$"`, Message: "البريد الإلكتروني غير صالح"},
			{Field: "password", Expression: `runes(password) >= 8`, Message: "كلمة المرور يجب أن تتكون من 8 محارف على الأقل"},
		},
		RegisterDetails: {
			{Field: "name", Expression: `runes(trim(name)) >= 3`, Message: "الاسم مطلوب"},
			{Field: "location", Expression: `trim(location) != ""`, Message: "العنوان مطلوب"},
			{Field: "phoneNumber", Expression: `trim(phoneNumber) matches "^09[0-9]{8}$"`, Message: "رقم الهاتف غير صالح"},
		},
		RegisterStore: {
			{Field: "name", Expression: `runes(trim(name)) >= 3`, Message: "اسم المستودع مطلوب"},
			{Field: "location", Expression: `trim(location) != ""`, Message: "العنوان مطلوب"},
		},
	}
}

// ValidationError lists the first failing message per field.
type ValidationError struct {
	Form   string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return fmt.Sprintf("%s: %s", e.Form, strings.Join(parts, "; "))
}

// runesFunction exposes runes(s), the character count of s. The builtin len
// counts bytes, which undercounts Arabic input.
var runesFunction = expr.Function("runes", func(params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("runes: want 1 argument, got %d", len(params))
	}
	s, _ := params[0].(string)
	return utf8.RuneCountInString(s), nil
})

type compiledRule struct {
	Rule
	program *vm.Program
}

// Validator evaluates compiled rule sets.
type Validator struct {
	forms map[string][]compiledRule
}

// New compiles the default rules merged with overrides. Override rules
// replace every default rule of the same field; rules for other fields are
// appended.
func New(overrides map[string][]config.RuleConfig) (*Validator, error) {
	sets := DefaultRules()
	for form, rules := range overrides {
		sets[form] = merge(sets[form], rules)
	}
	v := &Validator{forms: make(map[string][]compiledRule, len(sets))}
	for form, rules := range sets {
		compiled := make([]compiledRule, 0, len(rules))
		for idx, rule := range rules {
			program, err := expr.Compile(rule.Expression, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables(), runesFunction, expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("form %s rule %d (%s): compile: %w", form, idx, rule.Field, err)
			}
			compiled = append(compiled, compiledRule{Rule: rule, program: program})
		}
		v.forms[form] = compiled
	}
	return v, nil
}

func merge(defaults []Rule, overrides []config.RuleConfig) []Rule {
	replaced := make(map[string]struct{}, len(overrides))
	for _, o := range overrides {
		replaced[strings.TrimSpace(o.Field)] = struct{}{}
	}
	out := make([]Rule, 0, len(defaults)+len(overrides))
	for _, rule := range defaults {
		if _, ok := replaced[rule.Field]; !ok {
			out = append(out, rule)
		}
	}
	for _, o := range overrides {
		message := o.Message
		if message == "" {
			message = "قيمة غير صالحة"
		}
		out = append(out, Rule{Field: strings.TrimSpace(o.Field), Expression: o.Expression, Message: message})
	}
	return out
}

// Validate checks values against the rules of form. Forms without rules
// always pass. An expression that fails at runtime marks its field invalid.
func (v *Validator) Validate(form string, values map[string]any) error {
	rules := v.forms[form]
	if len(rules) == 0 {
		return nil
	}
	env := make(map[string]interface{}, len(values))
	for k, val := range values {
		env[k] = val
	}
	var failed map[string]string
	for _, rule := range rules {
		if _, done := failed[rule.Field]; done {
			continue
		}
		out, err := expr.Run(rule.program, env)
		if ok, _ := out.(bool); err == nil && ok {
			continue
		}
		if failed == nil {
			failed = make(map[string]string)
		}
		failed[rule.Field] = rule.Message
	}
	if failed != nil {
		return &ValidationError{Form: form, Fields: failed}
	}
	return nil
}

// Fields lists the fields that have rules for form.
func (v *Validator) Fields(form string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, rule := range v.forms[form] {
		if _, ok := seen[rule.Field]; ok {
			continue
		}
		seen[rule.Field] = struct{}{}
		out = append(out, rule.Field)
	}
	return out
}
