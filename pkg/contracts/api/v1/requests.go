// Package api contains the v1 API contract definitions for the factor
// beta transformation service.
package api

// TransformRequest carries the form fields accompanying a table upload.
type TransformRequest struct {
	// Sheet selects the workbook sheet for Excel uploads; empty means the
	// first sheet.
	Sheet string `json:"sheet" validate:"omitempty,max=128"`

	// Output format for the written result files: csv, xlsx or both.
	// Derived from the upload file name when empty.
	Format string `json:"format" validate:"omitempty,outputformat"`

	// Date tag stamped into output file names, e.g. 2023_11_15. Derived
	// from the upload file name when empty.
	DateTag string `json:"date_tag" validate:"omitempty,datetag"`

	// Save persists result files to the output directory in addition to
	// the streamed response. Defaults to true.
	Save bool `json:"save"`

	// WriteSummary asks for the run summary text report as well. Ignored
	// unless Save is set.
	WriteSummary bool `json:"write_summary"`
}

// PreviewRequest carries the form fields for a preview transformation.
// Previews never write files.
type PreviewRequest struct {
	Sheet   string `json:"sheet" validate:"omitempty,max=128"`
	DateTag string `json:"date_tag" validate:"omitempty,datetag"`

	// Rows caps how many transformed rows come back for display.
	Rows int `json:"rows" validate:"omitempty,min=1,max=500"`
}

// RunListRequest represents a request to list past runs.
type RunListRequest struct {
	Limit  int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=500"`
	Status string `json:"status" query:"status" validate:"omitempty,oneof=running completed failed"`
}
