package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
)

// listCell writes a list as one comma-joined cell. The CSV writer quotes
// the cell when it holds more than one item, which is the quoted-list form
// the importer reads back.
type listCell []string

func (l listCell) MarshalText() ([]byte, error) {
	return []byte(strings.Join(l, ",")), nil
}

// exportRow is one exported engineer, in template column order.
type exportRow struct {
	Name        string   `csv:"name"`
	Email       string   `csv:"email"`
	Position    string   `csv:"position"`
	ProjectName string   `csv:"project_name"`
	Planner     string   `csv:"planner"`
	Skills      listCell `csv:"skills"`
	Status      string   `csv:"engineer_status"`
	Phases      listCell `csv:"phase"`
}

// WriteEngineersCSV writes engineers in the import template format.
// The header is written even when engineers is empty.
func WriteEngineersCSV(w io.Writer, engineers []Engineer) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(engineers) == 0 {
		if err := enc.EncodeHeader(exportRow{}); err != nil {
			return fmt.Errorf("encode header: %w", err)
		}
	}
	for _, e := range engineers {
		row := exportRow{
			Name:        e.Name,
			Email:       e.Email,
			Position:    e.Position,
			ProjectName: e.ProjectName,
			Planner:     e.Planner,
			Skills:      listCell(e.Skills),
			Status:      e.Status,
			Phases:      listCell(e.Phases),
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode engineer %q: %w", e.Email, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ExportEngineers writes every engineer matching f as CSV.
func (s *Service) ExportEngineers(ctx context.Context, w io.Writer, f EngineerFilter) error {
	engineers, err := s.store.ListEngineers(ctx, f)
	if err != nil {
		return fmt.Errorf("export engineers: %w", err)
	}
	return WriteEngineersCSV(w, engineers)
}
