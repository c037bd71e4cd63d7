package core

import (
	"time"

	"github.com/JonMunkholm/staffimport/internal/delimited"
)

// Engineer status values after normalisation.
const (
	StatusAssigned   = "assigned"
	StatusUpcoming   = "upcoming"
	StatusUnassigned = "unassigned"
)

// Engineer is one roster entry.
type Engineer struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Position    string    `json:"position,omitempty"`
	ProjectName string    `json:"project_name"`
	Planner     string    `json:"planner"`
	Skills      []string  `json:"skills"`
	Status      string    `json:"engineer_status"`
	Phases      []string  `json:"phase"`
	BatchID     string    `json:"batch_id,omitempty"`
	Line        int       `json:"rowNumber,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// EngineerFilter narrows ListEngineers. Empty fields match everything.
type EngineerFilter struct {
	Status string // exact, after normalisation
	Skill  string // engineer has this skill (case-insensitive)
	Query  string // substring of name, email, project or planner
	Limit  int
}

// ImportMeta describes who submitted an import.
type ImportMeta struct {
	FileName  string
	IPAddress string
	UserAgent string
}

// Preview is the read-only outcome of parsing an upload.
type Preview struct {
	FileName  string               `json:"file_name"`
	Header    []string             `json:"header"`
	Engineers []Engineer           `json:"engineers"`
	Errors    []delimited.RowError `json:"errors"`
	TotalRows int                  `json:"total_rows"`
	ValidRows int                  `json:"valid_rows"`
	// CanSubmit is false while any row error remains.
	CanSubmit bool  `json:"can_submit"`
	ElapsedMs int64 `json:"elapsed_ms"`
}

// Batch is one committed import.
type Batch struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	RowCount   int       `json:"row_count"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}

// BatchResult is returned by a successful Submit.
type BatchResult struct {
	BatchID  string        `json:"batch_id"`
	FileName string        `json:"file_name"`
	Inserted int           `json:"inserted"`
	Duration time.Duration `json:"duration_ns"`
}

// RollbackResult is returned by RollbackBatch.
type RollbackResult struct {
	BatchID     string `json:"batch_id"`
	RowsDeleted int64  `json:"rows_deleted"`
}
