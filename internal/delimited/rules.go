package delimited

import "strings"

// Rule is a row-level validation check. Rules run in the order given in
// Options.Rules and every failure is reported.
type Rule interface {
	Check(rec Record) []RowError
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(rec Record) []RowError

// Check calls f(rec).
func (f RuleFunc) Check(rec Record) []RowError { return f(rec) }

// Required fails when field is empty after trimming.
// message is the text after the "Row N: " prefix.
func Required(field, message string) Rule {
	return RuleFunc(func(rec Record) []RowError {
		if strings.TrimSpace(rec.Get(field)) == "" {
			return []RowError{rowErrorf(rec.Line, field, "%s", message)}
		}
		return nil
	})
}

// Email fails when field is empty or does not contain "@".
func Email(field, message string) Rule {
	return RuleFunc(func(rec Record) []RowError {
		v := strings.TrimSpace(rec.Get(field))
		if v == "" || !strings.Contains(v, "@") {
			return []RowError{rowErrorf(rec.Line, field, "%s", message)}
		}
		return nil
	})
}
