// Package delimited parses header-first delimited text (CSV-like) into
// validated records.
//
// Parsing is a pure function of its input: ParseTable receives the whole
// text already read into memory and holds no state between calls, so
// concurrent calls need no coordination.
//
// Failures come in two tiers. Whole-table problems (no data rows, missing
// required columns) are returned as a *StructuralError and nothing else is
// produced. Per-row problems are collected as RowError values in
// Result.Errors; a failing row is left out of Result.Records but every
// other row is still parsed, so all problems can be fixed in one pass.
package delimited

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// Options controls a ParseTable call.
type Options struct {
	// Delimiter separates fields. Zero means DefaultDelimiter.
	Delimiter rune

	// RequiredColumns must all appear in the header.
	RequiredColumns []string

	// ListFields are split into list values instead of kept as scalars.
	ListFields []string

	// Rules run against every record, in order.
	Rules []Rule
}

// Record is one data row keyed by header names.
type Record struct {
	// Line is the 1-based position of the row among the non-blank lines
	// of the input; the header is line 1.
	Line int

	fields []string
	values []Value
}

// Fields returns the header names in column order.
func (r Record) Fields() []string {
	return slices.Clone(r.fields)
}

// Value returns the value for field and whether the field exists.
func (r Record) Value(field string) (Value, bool) {
	if i := slices.Index(r.fields, field); i >= 0 {
		return r.values[i], true
	}
	return Value{}, false
}

// Get returns the string form of field, or "" when absent.
func (r Record) Get(field string) string {
	v, ok := r.Value(field)
	if !ok {
		return ""
	}
	return v.String()
}

// Items returns the list items of field. Absent fields yield an empty list.
func (r Record) Items(field string) []string {
	v, ok := r.Value(field)
	if !ok {
		return []string{}
	}
	return v.Items()
}

// MarshalJSON encodes the record as an object in header order with a
// trailing "rowNumber" member.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.fields {
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := r.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		buf.WriteByte(',')
	}
	buf.WriteString(`"rowNumber":`)
	lineJSON, _ := json.Marshal(r.Line)
	buf.Write(lineJSON)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the outcome of a successful (non-structural) parse.
type Result struct {
	Header    []string
	Records   []Record
	Errors    []RowError
	TotalRows int // data rows seen, valid or not
}

// Valid reports whether no row failed validation.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// ParseTable parses raw into records.
//
// Blank lines are ignored. The first remaining line is the header. Rows
// shorter than the header are padded with empty values. Empty cells past
// the header width (trailing delimiters) are dropped; any other extra
// cell makes the row a row error because it usually comes from an
// unquoted delimiter inside a list field.
//
// Rules run against the scalar form of every cell, before list fields are
// split.
func ParseTable(raw string, opts Options) (*Result, error) {
	lines := nonBlankLines(raw)
	if len(lines) < 2 {
		return nil, NewStructuralError(ErrNoDataRows)
	}

	header := TokenizeLine(lines[0], opts.Delimiter)
	if missing := missingColumns(header, opts.RequiredColumns); len(missing) > 0 {
		return nil, &StructuralError{Reason: ErrMissingColumns, Missing: missing}
	}

	isList := make([]bool, len(header))
	noLists := make([]bool, len(header))
	for i, name := range header {
		isList[i] = slices.Contains(opts.ListFields, name)
	}

	result := &Result{
		Header:  header,
		Records: []Record{},
		Errors:  []RowError{},
	}

	for i, line := range lines[1:] {
		lineNo := i + 2
		result.TotalRows++

		raws := trimEmptyExtras(splitRaw(line, opts.Delimiter), len(header))

		var rowErrs []RowError
		if len(raws) > len(header) {
			rowErrs = append(rowErrs, rowErrorf(lineNo, "",
				"expected %d columns, got %d (quote values that contain %q)",
				len(header), len(raws), delimiterOrDefault(opts.Delimiter)))
		}

		// Rules see every cell as a scalar; list splitting comes after.
		scalars := buildRecord(lineNo, header, noLists, raws)
		for _, rule := range opts.Rules {
			rowErrs = append(rowErrs, rule.Check(scalars)...)
		}

		if len(rowErrs) > 0 {
			result.Errors = append(result.Errors, rowErrs...)
			continue
		}
		result.Records = append(result.Records, buildRecord(lineNo, header, isList, raws))
	}

	return result, nil
}

// buildRecord zips raw tokens against the header. Each value's kind is
// chosen here and not changed afterwards.
func buildRecord(line int, header []string, isList []bool, raws []string) Record {
	rec := Record{
		Line:   line,
		fields: slices.Clone(header),
		values: make([]Value, len(header)),
	}
	for i := range header {
		var tok string
		if i < len(raws) {
			tok = raws[i]
		}
		if isList[i] {
			rec.values[i] = List(splitList(tok))
		} else {
			rec.values[i] = Scalar(unwrapQuotes(tok))
		}
	}
	return rec
}

// trimEmptyExtras drops empty tokens beyond width from the end of raws.
func trimEmptyExtras(raws []string, width int) []string {
	for len(raws) > width && strings.TrimSpace(unwrapQuotes(raws[len(raws)-1])) == "" {
		raws = raws[:len(raws)-1]
	}
	return raws
}

func nonBlankLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func missingColumns(header, required []string) []string {
	var missing []string
	for _, name := range required {
		if !slices.Contains(header, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func delimiterOrDefault(d rune) rune {
	if d == 0 {
		return DefaultDelimiter
	}
	return d
}
