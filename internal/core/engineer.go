package core

import (
	"strings"

	"github.com/JonMunkholm/staffimport/internal/delimited"
)

// statusAliases maps accepted status spellings (lowercase) to their
// canonical value. Labels from the legacy Japanese template are included.
var statusAliases = map[string]string{
	"assigned":   StatusAssigned,
	"active":     StatusAssigned,
	"アサイン済":      StatusAssigned,
	"upcoming":   StatusUpcoming,
	"稼働予定":       StatusUpcoming,
	"unassigned": StatusUnassigned,
	"waiting":    StatusUnassigned,
	"未アサイン":      StatusUnassigned,
}

// NormalizeStatus converts a status label to its canonical value.
// Unrecognised labels are returned trimmed but otherwise unchanged.
func NormalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if v, ok := statusAliases[strings.ToLower(s)]; ok {
		return v
	}
	return s
}

// FromRecord maps a validated record onto an Engineer.
func FromRecord(rec delimited.Record) Engineer {
	return Engineer{
		Name:        rec.Get("name"),
		Email:       strings.ToLower(rec.Get("email")),
		Position:    rec.Get("position"),
		ProjectName: rec.Get("project_name"),
		Planner:     rec.Get("planner"),
		Skills:      rec.Items("skills"),
		Status:      NormalizeStatus(rec.Get("engineer_status")),
		Phases:      rec.Items("phase"),
		Line:        rec.Line,
	}
}
