package delimited

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engineerOptions() Options {
	return Options{
		RequiredColumns: []string{"name", "email", "project_name", "planner", "skills", "engineer_status", "phase"},
		ListFields:      []string{"skills", "phase"},
		Rules: []Rule{
			Required("name", "name is required"),
			Email("email", "a valid email is required"),
			Required("project_name", "project name is required"),
			Required("planner", "planner is required"),
		},
	}
}

func TestParseTable_EndToEnd(t *testing.T) {
	raw := `name,email,project_name,planner,skills,engineer_status,phase
Taro,taro@example.com,SiteA,Sato,"React,AWS",assigned,"design,dev"
,bad-email,SiteB,Yamada,Python,waiting,dev
`
	res, err := ParseTable(raw, engineerOptions())
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, 2, rec.Line)
	assert.Equal(t, "Taro", rec.Get("name"))
	assert.Equal(t, "taro@example.com", rec.Get("email"))
	assert.Equal(t, "SiteA", rec.Get("project_name"))
	assert.Equal(t, "Sato", rec.Get("planner"))
	assert.Equal(t, []string{"React", "AWS"}, rec.Items("skills"))
	assert.Equal(t, "assigned", rec.Get("engineer_status"))
	assert.Equal(t, []string{"design", "dev"}, rec.Items("phase"))

	require.Len(t, res.Errors, 2)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Contains(t, res.Errors[0].Message, "name")
	assert.Equal(t, 3, res.Errors[1].Line)
	assert.Contains(t, res.Errors[1].Message, "email")
	assert.Equal(t, 2, res.TotalRows)
	assert.False(t, res.Valid())
}

func TestParseTable_RecordJSON(t *testing.T) {
	raw := "name,email,project_name,planner,skills,engineer_status,phase\n" +
		`Taro,taro@example.com,SiteA,Sato,"React,AWS",assigned,"design,dev"`
	res, err := ParseTable(raw, engineerOptions())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	data, err := json.Marshal(res.Records[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "Taro",
		"email": "taro@example.com",
		"project_name": "SiteA",
		"planner": "Sato",
		"skills": ["React", "AWS"],
		"engineer_status": "assigned",
		"phase": ["design", "dev"],
		"rowNumber": 2
	}`, string(data))
}

func TestParseTable_NoDataRows(t *testing.T) {
	for _, raw := range []string{"", "\n\n  \n", "name,email\n", "name,email\n   \n"} {
		_, err := ParseTable(raw, Options{})
		require.Error(t, err, "input %q", raw)
		assert.True(t, IsStructural(err))
		assert.True(t, errors.Is(err, ErrNoDataRows))
	}
}

func TestParseTable_MissingRequiredColumns(t *testing.T) {
	raw := "name,email\nTaro,taro@example.com\n"
	res, err := ParseTable(raw, Options{RequiredColumns: []string{"name", "email", "project"}})
	assert.Nil(t, res)

	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"project"}, se.Missing)
	assert.True(t, errors.Is(err, ErrMissingColumns))
	assert.Contains(t, err.Error(), "project")
}

func TestParseTable_RowPadding(t *testing.T) {
	raw := "a,b,c\n1\n"
	res, err := ParseTable(raw, Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "1", rec.Get("a"))
	v, ok := rec.Value("b")
	require.True(t, ok)
	assert.Equal(t, "", v.String())
	assert.Equal(t, "", rec.Get("c"))
	assert.Equal(t, []string{"a", "b", "c"}, rec.Fields())
}

func TestParseTable_AccumulatesRowErrors(t *testing.T) {
	raw := strings.Join([]string{
		"name,email",
		"A,a@example.com",
		",b@example.com", // line 3
		"C,c@example.com",
		"D,no-at-sign", // line 5
		"E,e@example.com",
	}, "\n")
	opts := Options{Rules: []Rule{
		Required("name", "name is required"),
		Email("email", "a valid email is required"),
	}}

	res, err := ParseTable(raw, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalRows)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Equal(t, "Row 3: name is required", res.Errors[0].Message)
	assert.Equal(t, "name", res.Errors[0].Field)
	assert.Equal(t, 5, res.Errors[1].Line)
	assert.Equal(t, "Row 5: a valid email is required", res.Errors[1].Message)
	require.Len(t, res.Records, 3)
	assert.Equal(t, []int{2, 4, 6}, []int{res.Records[0].Line, res.Records[1].Line, res.Records[2].Line})
}

func TestParseTable_RulesRunInOrderForEachRow(t *testing.T) {
	raw := "name,email,project_name,planner,skills,engineer_status,phase\n,,,,,,\n"
	res, err := ParseTable(raw, engineerOptions())
	require.NoError(t, err)
	require.Len(t, res.Errors, 4)
	assert.Equal(t, "Row 2: name is required", res.Errors[0].Message)
	assert.Equal(t, "Row 2: a valid email is required", res.Errors[1].Message)
	assert.Equal(t, "Row 2: project name is required", res.Errors[2].Message)
	assert.Equal(t, "Row 2: planner is required", res.Errors[3].Message)
	assert.Empty(t, res.Records)
}

func TestParseTable_ListFieldSplitPolicy(t *testing.T) {
	tests := []struct {
		name  string
		cell  string
		items []string
	}{
		{"quoted comma list", `"React,Node.js"`, []string{"React", "Node.js"}},
		{"unquoted semicolon list", "React;Node.js", []string{"React", "Node.js"}},
		{"empty", "", []string{}},
		{"pieces trimmed and empties dropped", `" React , ,Node.js "`, []string{"React", "Node.js"}},
		{"semicolon with blanks", "React; ;Go;", []string{"React", "Go"}},
		{"single unquoted", "Python", []string{"Python"}},
		{"quoted semicolons stay together", `"a;b,c"`, []string{"a;b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "name,skills\nTaro," + tt.cell + "\n"
			res, err := ParseTable(raw, Options{ListFields: []string{"skills"}})
			require.NoError(t, err)
			require.Len(t, res.Records, 1)

			v, ok := res.Records[0].Value("skills")
			require.True(t, ok)
			assert.True(t, v.IsList())
			assert.Equal(t, tt.items, v.Items())
		})
	}
}

func TestParseTable_AbsentListFieldIsEmptyList(t *testing.T) {
	res, err := ParseTable("name,skills\nTaro\n", Options{ListFields: []string{"skills"}})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	v, _ := res.Records[0].Value("skills")
	assert.True(t, v.IsList())
	assert.NotNil(t, v.Items())
	assert.Empty(t, v.Items())

	data, err := json.Marshal(res.Records[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"skills":[]`)
}

func TestParseTable_BlankLineTolerance(t *testing.T) {
	withBlank := "name,email\nA,a@example.com\n\n   \nB,b@example.com\n"
	without := "name,email\nA,a@example.com\nB,b@example.com\n"
	opts := Options{Rules: []Rule{Email("email", "a valid email is required")}}

	got, err := ParseTable(withBlank, opts)
	require.NoError(t, err)
	want, err := ParseTable(without, opts)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestParseTable_CRLF(t *testing.T) {
	res, err := ParseTable("name,email\r\nA,a@example.com\r\n", Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "a@example.com", res.Records[0].Get("email"))
}

func TestParseTable_ExtraCellsAreRowError(t *testing.T) {
	raw := "name,skills\nTaro,React,Node.js\nHanako,Go\n"
	res, err := ParseTable(raw, Options{ListFields: []string{"skills"}})
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Line)
	assert.Contains(t, res.Errors[0].Message, "expected 2 columns, got 3")
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Hanako", res.Records[0].Get("name"))
}

func TestParseTable_TrailingEmptyCellsIgnored(t *testing.T) {
	raw := "name,email\nTaro,taro@example.com,\nHanako,hanako@example.com, ,\"\"\nJiro,jiro@example.com,,x\n"
	res, err := ParseTable(raw, Options{})
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "taro@example.com", res.Records[0].Get("email"))
	assert.Equal(t, "hanako@example.com", res.Records[1].Get("email"))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Line)
	assert.Contains(t, res.Errors[0].Message, "expected 2 columns, got 4")
}

func TestParseTable_RulesSeeScalarListCells(t *testing.T) {
	var seen []bool
	spy := RuleFunc(func(rec Record) []RowError {
		v, _ := rec.Value("skills")
		seen = append(seen, v.IsList())
		return nil
	})
	opts := Options{
		ListFields: []string{"skills"},
		Rules:      []Rule{Required("skills", "skills is required"), spy},
	}

	res, err := ParseTable("name,skills\nTaro,;\nHanako,\n", opts)
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Line)
	require.Len(t, res.Records, 1)
	assert.Equal(t, []string{}, res.Records[0].Items("skills"))
	v, _ := res.Records[0].Value("skills")
	assert.True(t, v.IsList())
	assert.Equal(t, []bool{false, false}, seen)
}

func TestParseTable_QuotedHeader(t *testing.T) {
	res, err := ParseTable(`"name","email"`+"\nA,a@example.com\n", Options{RequiredColumns: []string{"name", "email"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email"}, res.Header)
}

func TestParseTable_CustomRule(t *testing.T) {
	noTaro := RuleFunc(func(rec Record) []RowError {
		if rec.Get("name") == "Taro" {
			return []RowError{{Line: rec.Line, Field: "name", Message: "no Taro"}}
		}
		return nil
	})
	res, err := ParseTable("name\nTaro\nHanako\n", Options{Rules: []Rule{noTaro}})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Hanako", res.Records[0].Get("name"))
}

func TestRecord_MissingField(t *testing.T) {
	res, err := ParseTable("a\n1\n", Options{})
	require.NoError(t, err)
	rec := res.Records[0]

	_, ok := rec.Value("nope")
	assert.False(t, ok)
	assert.Equal(t, "", rec.Get("nope"))
	assert.Equal(t, []string{}, rec.Items("nope"))
}
