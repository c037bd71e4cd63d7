package web

import (
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/staffimport/internal/core"
	"github.com/JonMunkholm/staffimport/internal/delimited"
	"github.com/JonMunkholm/staffimport/internal/schema"
	"github.com/JonMunkholm/staffimport/internal/web/templates"
	"github.com/a-h/templ"
)

// fileInputSelector is the file input the preview's import button re-posts.
const fileInputSelector = `input[type=file][name=file]`

// renderHTML writes c as an HTML fragment with the given status.
func renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "path", r.URL.Path, "error", err)
	}
}

func alertParams(e ErrorResponse) templates.AlertParams {
	return templates.AlertParams{
		Message: e.Message,
		Detail:  e.Detail,
		Action:  e.Action,
		Code:    e.Code,
		Errors:  rowErrorParams(e.Errors),
	}
}

// previewParams lays p out in header order. Columns the profile declares
// as lists are rendered item by item.
func previewParams(p *core.Preview, profile *schema.Profile) templates.PreviewParams {
	rows := make([]templates.PreviewRow, 0, len(p.Engineers))
	for _, e := range p.Engineers {
		cells := make([]templates.Cell, len(p.Header))
		for i, h := range p.Header {
			if profile.IsList(h) {
				cells[i] = templates.Cell{List: true, Items: engineerItems(e, h)}
			} else {
				cells[i] = templates.Cell{Text: engineerCell(e, h)}
			}
		}
		rows = append(rows, templates.PreviewRow{Line: e.Line, Cells: cells})
	}

	return templates.PreviewParams{
		FileName:  p.FileName,
		TotalRows: p.TotalRows,
		ValidRows: p.ValidRows,
		CanSubmit: p.CanSubmit,
		Header:    p.Header,
		Rows:      rows,
		Errors:    rowErrorParams(p.Errors),
		SubmitURL: "/api/import",
		FileInput: fileInputSelector,
	}
}

func rowErrorParams(errs []delimited.RowError) []templates.RowError {
	out := make([]templates.RowError, len(errs))
	for i, re := range errs {
		out[i] = templates.RowError{Line: re.Line, Message: re.Message}
	}
	return out
}

// engineerCell returns the display text of column h for e.
func engineerCell(e core.Engineer, h string) string {
	switch h {
	case "name":
		return e.Name
	case "email":
		return e.Email
	case "position":
		return e.Position
	case "project_name":
		return e.ProjectName
	case "planner":
		return e.Planner
	case "engineer_status":
		return e.Status
	default:
		return ""
	}
}

// engineerItems returns the items of list column h for e.
func engineerItems(e core.Engineer, h string) []string {
	switch h {
	case "skills":
		return e.Skills
	case "phase":
		return e.Phases
	default:
		return nil
	}
}
