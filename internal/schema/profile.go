// Package schema describes importable entities as YAML profiles.
//
// A profile lists the header columns in template order, which of them must
// be present, which hold lists, and the row rules applied to every record.
// The built-in engineers profile is embedded; other profiles can be loaded
// from disk.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/JonMunkholm/staffimport/internal/delimited"
	"gopkg.in/yaml.v3"
)

//go:embed engineers.yaml
var engineersYAML []byte

// RuleKind names a built-in row rule.
type RuleKind string

const (
	RuleRequired RuleKind = "required"
	RuleEmail    RuleKind = "email"
)

// Column is one header column.
type Column struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"` // must appear in the header
	List     bool   `yaml:"list"`     // value is a list of strings
}

// RuleSpec is a row rule as written in YAML.
type RuleSpec struct {
	Field   string   `yaml:"field"`
	Kind    RuleKind `yaml:"kind"`
	Message string   `yaml:"message"`
}

// Profile describes one importable entity.
type Profile struct {
	Key      string     `yaml:"key"`
	Label    string     `yaml:"label"`
	FileName string     `yaml:"file_name"`
	Columns  []Column   `yaml:"columns"`
	Rules    []RuleSpec `yaml:"rules"`
	Samples  [][]string `yaml:"samples"`
}

// Default returns the built-in engineers profile.
func Default() *Profile {
	p, err := Parse(engineersYAML)
	if err != nil {
		panic(fmt.Sprintf("schema: embedded engineers profile: %v", err))
	}
	return p
}

// Load reads and validates a profile from r.
func Load(r io.Reader) (*Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data)
}

// LoadFile reads and validates a profile from path.
func LoadFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Parse decodes and validates YAML profile data.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every rule and sample refers to declared columns.
func (p *Profile) Validate() error {
	var errs []error

	if p.Key == "" {
		errs = append(errs, errors.New("key is required"))
	}
	if len(p.Columns) == 0 {
		errs = append(errs, errors.New("at least one column is required"))
	}

	names := p.ColumnNames()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			errs = append(errs, errors.New("column name is empty"))
			continue
		}
		if seen[n] {
			errs = append(errs, fmt.Errorf("duplicate column %q", n))
		}
		seen[n] = true
	}

	for i, r := range p.Rules {
		if !seen[r.Field] {
			errs = append(errs, fmt.Errorf("rule %d: unknown column %q", i, r.Field))
		}
		switch r.Kind {
		case RuleRequired, RuleEmail:
		default:
			errs = append(errs, fmt.Errorf("rule %d: unknown kind %q", i, r.Kind))
		}
		if r.Message == "" {
			errs = append(errs, fmt.Errorf("rule %d: message is required", i))
		}
	}

	for i, s := range p.Samples {
		if len(s) != len(names) {
			errs = append(errs, fmt.Errorf("sample %d: has %d cells, want %d", i, len(s), len(names)))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid profile %q: %w", p.Key, errors.Join(errs...))
	}
	return nil
}

// ColumnNames returns the header names in template order.
func (p *Profile) ColumnNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// RequiredColumns returns the names of columns that must be in the header.
func (p *Profile) RequiredColumns() []string {
	var out []string
	for _, c := range p.Columns {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}

// ListFields returns the names of list-valued columns.
func (p *Profile) ListFields() []string {
	var out []string
	for _, c := range p.Columns {
		if c.List {
			out = append(out, c.Name)
		}
	}
	return out
}

// IsList reports whether column holds a list.
func (p *Profile) IsList(column string) bool {
	return slices.Contains(p.ListFields(), column)
}

// Options builds parser options for this profile.
func (p *Profile) Options() delimited.Options {
	rules := make([]delimited.Rule, 0, len(p.Rules))
	for _, r := range p.Rules {
		switch r.Kind {
		case RuleEmail:
			rules = append(rules, delimited.Email(r.Field, r.Message))
		default:
			rules = append(rules, delimited.Required(r.Field, r.Message))
		}
	}
	return delimited.Options{
		Delimiter:       delimited.DefaultDelimiter,
		RequiredColumns: p.RequiredColumns(),
		ListFields:      p.ListFields(),
		Rules:           rules,
	}
}

// Template renders a header line followed by the sample rows. Cells that
// contain a comma or quote are wrapped in quotes so the output parses back
// with the profile's own options.
func (p *Profile) Template() string {
	var b strings.Builder
	b.WriteString(strings.Join(p.ColumnNames(), ","))
	b.WriteByte('\n')
	for _, row := range p.Samples {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = QuoteCell(c)
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// QuoteCell wraps c in quotes when it contains a comma or quote.
func QuoteCell(c string) string {
	if strings.ContainsAny(c, `,"`) {
		return `"` + c + `"`
	}
	return c
}
