package api

// TransformResponse summarizes a finished transformation run.
type TransformResponse struct {
	RunID                 string   `json:"run_id"`
	Status                string   `json:"status"`
	SourceFile            string   `json:"source_file"`
	DateTag               string   `json:"date_tag"`
	Format                string   `json:"format"`
	Rows                  int      `json:"rows"`
	Factors               int      `json:"factors"`
	PopulationSize        int      `json:"population_size"`
	InputUndefined        int      `json:"input_undefined"`
	StandardizedUndefined int      `json:"standardized_undefined"`
	TransformedUndefined  int      `json:"transformed_undefined"`
	DegenerateFactors     []string `json:"degenerate_factors,omitempty"`
	OutputFiles           []string `json:"output_files,omitempty"`
	DurationMS            int64    `json:"duration_ms"`
}

// PreviewResponse returns the run summary plus the leading transformed
// rows for display. Undefined cells marshal as null.
type PreviewResponse struct {
	Run          TransformResponse `json:"run"`
	SymbolHeader string            `json:"symbol_header"`
	NameHeader   string            `json:"name_header"`
	Factors      []string          `json:"factors"`
	Symbols      []string          `json:"symbols"`
	Names        []string          `json:"names"`
	Cells        [][]*float64      `json:"cells"`
	PreviewRows  int               `json:"preview_rows"`
	TotalRows    int               `json:"total_rows"`
}
