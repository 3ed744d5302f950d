package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"betascale/internal/betas"
	apierrors "betascale/internal/errors"
	"betascale/internal/exporter"
	customMiddleware "betascale/internal/middleware"
	"betascale/internal/services"
	v1 "betascale/pkg/contracts/api/v1"
)

// DefaultPreviewRows caps preview responses when the client does not ask
// for a specific row count.
const DefaultPreviewRows = 50

// TransformHandler handles table uploads: the transform endpoint streams
// the result file back, the preview endpoint returns JSON for display.
type TransformHandler struct {
	service      TransformServiceInterface
	writer       *exporter.ResultWriter
	validator    *customMiddleware.ValidationMiddleware
	defaultSheet string
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewTransformHandler creates a transform handler.
func NewTransformHandler(service TransformServiceInterface, validator *customMiddleware.ValidationMiddleware, defaultSheet string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *TransformHandler {
	return &TransformHandler{
		service:      service,
		writer:       exporter.NewResultWriter(logger),
		validator:    validator,
		defaultSheet: defaultSheet,
		logger:       logger.With(slog.String("component", "transform_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the transform routes.
func (h *TransformHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Transform)
	r.Post("/preview", h.Preview)
	return r
}

// Transform handles POST /api/transform: multipart upload in, transformed
// table out. The response body is the output file itself; the run ID and
// quality counters travel in headers.
func (h *TransformHandler) Transform(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A table upload in the 'file' field is required"))
		return
	}
	defer file.Close()

	form := v1.TransformRequest{
		Sheet:        r.FormValue("sheet"),
		Format:       r.FormValue("format"),
		DateTag:      r.FormValue("date_tag"),
		Save:         formBool(r, "save", true),
		WriteSummary: formBool(r, "write_summary", false),
	}
	if err := h.validator.ValidateStruct(&form); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if form.Sheet == "" {
		form.Sheet = h.defaultSheet
	}

	h.logger.InfoContext(r.Context(), "transform upload received",
		slog.String("request_id", reqID),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size),
		slog.String("format", form.Format),
		slog.Bool("save", form.Save),
	)

	res, err := h.service.Transform(r.Context(), services.TransformRequest{
		Source:       file,
		Filename:     header.Filename,
		Sheet:        form.Sheet,
		Format:       form.Format,
		DateTag:      form.DateTag,
		WriteOutputs: form.Save,
		WriteSummary: form.WriteSummary,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := exporter.TransformedFileName(res.DateTag, res.Format)
	writeRunHeaders(w, res)
	w.Header().Set("Content-Type", res.Format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	// Headers are on the wire once streaming starts; a failure here can
	// only be logged.
	if err := h.writer.WriteTransformed(w, res.Format, res.Result); err != nil {
		h.logger.ErrorContext(r.Context(), "failed streaming transformed table",
			slog.String("request_id", reqID),
			slog.String("run_id", res.RunID),
			slog.String("error", err.Error()),
		)
	}
}

// Preview handles POST /api/transform/preview: same upload, but the
// response is JSON carrying the run summary and the leading transformed
// rows. Nothing is written to disk.
func (h *TransformHandler) Preview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A table upload in the 'file' field is required"))
		return
	}
	defer file.Close()

	form := v1.PreviewRequest{
		Sheet:   r.FormValue("sheet"),
		DateTag: r.FormValue("date_tag"),
	}
	if raw := r.FormValue("rows"); raw != "" {
		rows, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("rows", "rows must be a valid integer"))
			return
		}
		form.Rows = rows
	}
	if err := h.validator.ValidateStruct(&form); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if form.Sheet == "" {
		form.Sheet = h.defaultSheet
	}
	if form.Rows == 0 {
		form.Rows = DefaultPreviewRows
	}

	h.logger.InfoContext(r.Context(), "preview upload received",
		slog.String("request_id", reqID),
		slog.String("file", header.Filename),
		slog.Int("rows", form.Rows),
	)

	res, err := h.service.Transform(r.Context(), services.TransformRequest{
		Source:   file,
		Filename: header.Filename,
		Sheet:    form.Sheet,
		DateTag:  form.DateTag,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	transformed := res.Result.Transformed
	cells, previewRows := previewCells(transformed, form.Rows)

	render.JSON(w, r, v1.PreviewResponse{
		Run:          runSummary(res, header.Filename),
		SymbolHeader: transformed.SymbolHeader,
		NameHeader:   transformed.NameHeader,
		Factors:      transformed.Factors,
		Symbols:      transformed.Symbols[:previewRows],
		Names:        transformed.Names[:previewRows],
		Cells:        cells,
		PreviewRows:  previewRows,
		TotalRows:    transformed.Rows(),
	})
}

// writeRunHeaders attaches the run identity and quality counters to a
// streamed response.
func writeRunHeaders(w http.ResponseWriter, res *services.RunResult) {
	report := res.Result.Report
	header := w.Header()
	header.Set("X-Run-ID", res.RunID)
	header.Set("X-Rows", strconv.Itoa(report.Rows))
	header.Set("X-Factors", strconv.Itoa(report.Factors))
	header.Set("X-Population-Size", strconv.Itoa(report.PopulationSize))
	header.Set("X-Undefined-Cells", strconv.Itoa(report.TransformedUndefined))
	if len(report.DegenerateFactors) > 0 {
		header.Set("X-Degenerate-Factors", strings.Join(report.DegenerateFactors, ","))
	}
}

// runSummary projects a run result onto the v1 response contract.
func runSummary(res *services.RunResult, sourceFile string) v1.TransformResponse {
	report := res.Result.Report
	return v1.TransformResponse{
		RunID:                 res.RunID,
		Status:                "completed",
		SourceFile:            sourceFile,
		DateTag:               res.DateTag,
		Format:                string(res.Format),
		Rows:                  report.Rows,
		Factors:               report.Factors,
		PopulationSize:        report.PopulationSize,
		InputUndefined:        report.InputUndefined,
		StandardizedUndefined: report.StandardizedUndefined,
		TransformedUndefined:  report.TransformedUndefined,
		DegenerateFactors:     report.DegenerateFactors,
		OutputFiles:           res.OutputFiles,
		DurationMS:            res.Duration.Milliseconds(),
	}
}

// previewCells converts the leading rows of a matrix for JSON transport.
// Undefined cells become null: NaN has no JSON encoding.
func previewCells(m *betas.Matrix, limit int) ([][]*float64, int) {
	n := m.Rows()
	if limit > 0 && limit < n {
		n = limit
	}

	cells := make([][]*float64, n)
	for i := 0; i < n; i++ {
		row := make([]*float64, m.FactorCount())
		for j, v := range m.Cells[i] {
			if betas.IsUndefined(v) {
				continue
			}
			value := v
			row[j] = &value
		}
		cells[i] = row
	}
	return cells, n
}

// formBool reads a boolean form field, tolerating absence and junk.
func formBool(r *http.Request, name string, fallback bool) bool {
	raw := r.FormValue(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
