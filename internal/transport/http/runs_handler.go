package http

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "betascale/internal/errors"
	customMiddleware "betascale/internal/middleware"
	"betascale/internal/runstore"
)

// DefaultRunListLimit bounds run listings when the client does not pass one.
const DefaultRunListLimit = 50

// MaxRunListLimit is the largest page a single listing returns.
const MaxRunListLimit = 500

// RunsHandler serves run history: listings, individual runs, and the
// output files a completed run produced.
type RunsHandler struct {
	service        RunServiceInterface
	queryValidator *customMiddleware.QueryParamValidator
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(service RunServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RunsHandler {
	return &RunsHandler{
		service:        service,
		queryValidator: customMiddleware.NewQueryParamValidator(logger, errorHandler),
		logger:         logger.With(slog.String("component", "runs_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the run history routes.
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/files/{filename}", h.DownloadOutput)
	return r
}

// List handles GET /api/runs. Runs come back newest first; ?status=
// narrows to one lifecycle state and ?limit= bounds the page.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryValidator.ValidateInt(w, r, "limit", 1, MaxRunListLimit, DefaultRunListLimit)
	if !ok {
		return
	}
	status, ok := h.queryValidator.ValidateEnum(w, r, "status",
		[]string{runstore.StatusRunning, runstore.StatusCompleted, runstore.StatusFailed}, "")
	if !ok {
		return
	}

	runs, err := h.service.List(r.Context(), limit, status)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Get handles GET /api/runs/{id}.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, run)
}

// DownloadOutput handles GET /api/runs/{id}/files/{filename}: it serves
// an output file that a past run recorded, by its base name.
func (h *RunsHandler) DownloadOutput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	filename := chi.URLParam(r, "filename")

	path, err := h.service.OutputFile(r.Context(), id, filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	base := filepath.Base(path)
	h.logger.InfoContext(r.Context(), "serving run output file",
		slog.String("run_id", id),
		slog.String("file", base),
	)

	// ServeFile keeps a Content-Type that is already set.
	w.Header().Set("Content-Type", contentTypeFor(base))
	w.Header().Set("Content-Disposition", `attachment; filename="`+base+`"`)
	http.ServeFile(w, r, path)
}

// contentTypeFor maps an output file name to its download content type.
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
