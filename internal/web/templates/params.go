package templates

// RowError is one rejected row as listed in a fragment.
type RowError struct {
	Line    int
	Message string
}

// AlertParams is the content of an error alert.
type AlertParams struct {
	Message string
	Detail  string
	Action  string
	Code    string
	Errors  []RowError
}

// Cell is one preview cell. List cells render each item as a tag.
type Cell struct {
	Text  string
	List  bool
	Items []string
}

// PreviewRow is one valid row of a preview.
type PreviewRow struct {
	Line  int
	Cells []Cell
}

// PreviewParams is the content of an import preview.
type PreviewParams struct {
	FileName  string
	TotalRows int
	ValidRows int
	CanSubmit bool
	Header    []string
	Rows      []PreviewRow
	Errors    []RowError

	// SubmitURL receives the file when the import button is pressed.
	SubmitURL string

	// FileInput is the hx-include selector of the page's file input.
	FileInput string
}

// ImportResultParams is the content of the fragment shown after an import.
type ImportResultParams struct {
	BatchID  string
	FileName string
	Inserted int
}
