package core

import (
	"context"
	"testing"

	"github.com/JonMunkholm/staffimport/internal/delimited"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"assigned":    StatusAssigned,
		" Active ":    StatusAssigned,
		"アサイン済":       StatusAssigned,
		"UPCOMING":    StatusUpcoming,
		"稼働予定":        StatusUpcoming,
		"waiting":     StatusUnassigned,
		"未アサイン":       StatusUnassigned,
		"on leave ":   "on leave",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeStatus(in), "NormalizeStatus(%q)", in)
	}
}

func TestFromRecord(t *testing.T) {
	raw := "name,email,project_name,planner,skills,engineer_status,phase\n" +
		`Taro, Taro@Example.COM ,SiteA,Sato,"Go, SQL",稼働予定,` + "\n"
	res, err := delimited.ParseTable(raw, delimited.Options{ListFields: []string{"skills", "phase"}})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	e := FromRecord(res.Records[0])
	assert.Equal(t, "Taro", e.Name)
	assert.Equal(t, "taro@example.com", e.Email)
	assert.Equal(t, "", e.Position)
	assert.Equal(t, []string{"Go", "SQL"}, e.Skills)
	assert.Equal(t, []string{}, e.Phases)
	assert.Equal(t, StatusUpcoming, e.Status)
	assert.Equal(t, 2, e.Line)
}

func TestMetaFromContext(t *testing.T) {
	meta := MetaFromContext(context.Background(), "a.csv")
	assert.Equal(t, ImportMeta{FileName: "a.csv"}, meta)

	ctx := ContextWithClient(context.Background(), "192.0.2.1", "curl/8")
	meta = MetaFromContext(ctx, "b.csv")
	assert.Equal(t, ImportMeta{FileName: "b.csv", IPAddress: "192.0.2.1", UserAgent: "curl/8"}, meta)
}
