package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"userdir/internal/platform/metrics"
	"userdir/internal/platform/middleware"
	"userdir/internal/records/models"
	"userdir/pkg/domain"
	dErrors "userdir/pkg/domain-errors"
	"userdir/pkg/platform/httputil"
	"userdir/pkg/platform/middleware/metadata"
	"userdir/pkg/platform/middleware/requesttime"
)

const maxBodyBytes = 1 << 20

// Service defines the record operations the handler exposes.
type Service interface {
	Create(ctx context.Context, in models.NewRecord) (*models.Record, error)
	Get(ctx context.Context, id domain.RecordID) (*models.Record, error)
	Replace(ctx context.Context, id domain.RecordID, repl models.Replacement) (*models.Record, error)
	Patch(ctx context.Context, id domain.RecordID, patch models.Patch) (*models.Record, error)
	Delete(ctx context.Context, id domain.RecordID) (bool, error)
	ListByBirthDate(ctx context.Context, from, to *string) ([]*models.Record, error)
}

// Handler handles the /records endpoints.
type Handler struct {
	logger    *slog.Logger
	records   Service
	metrics   *metrics.Metrics
	validator *RequestValidator
	timeout   time.Duration
}

// New creates a records Handler. metrics may be nil.
func New(records Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		records:   records,
		metrics:   m,
		validator: NewRequestValidator(),
		timeout:   30 * time.Second,
	}
}

// Register registers the record routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/records", func(rr chi.Router) {
		rr.Use(middleware.Recovery(h.logger))
		rr.Use(middleware.RequestID)
		rr.Use(metadata.ClientMetadata)
		rr.Use(requesttime.Middleware)
		rr.Use(middleware.Logger(h.logger))
		rr.Use(middleware.Timeout(h.timeout))
		rr.Use(middleware.ContentTypeJSON)
		rr.Use(middleware.LatencyMiddleware(h.metrics))

		rr.Post("/", h.handleCreate)
		rr.Get("/range", h.handleRange)
		rr.Get("/{id}", h.handleGet)
		rr.Put("/{id}", h.handleReplace)
		rr.Patch("/{id}", h.handlePatch)
		rr.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validator.Validate(ctx, req); err != nil {
		h.fail(ctx, w, "invalid create record request", err)
		return
	}

	rec, err := h.records.Create(ctx, req.toModel())
	if err != nil {
		h.fail(ctx, w, "failed to create record", err)
		return
	}
	w.Header().Set("Location", "/records/"+rec.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	rec, err := h.records.Get(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to get record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	var req ReplaceRecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validator.Validate(ctx, req); err != nil {
		h.fail(ctx, w, "invalid replace record request", err)
		return
	}

	rec, err := h.records.Replace(ctx, id, req.toModel())
	if err != nil {
		h.fail(ctx, w, "failed to replace record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	var req PatchRecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if nulls := req.nullViolations(); len(nulls) > 0 {
		h.fail(ctx, w, "invalid patch record request",
			dErrors.WithFields(dErrors.CodeValidation, "request validation failed", nulls))
		return
	}
	if err := h.validator.Validate(ctx, req.validationView()); err != nil {
		h.fail(ctx, w, "invalid patch record request", err)
		return
	}

	rec, err := h.records.Patch(ctx, id, req.toModel())
	if err != nil {
		h.fail(ctx, w, "failed to patch record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	deleted, err := h.records.Delete(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to delete record", err)
		return
	}
	if !deleted {
		h.fail(ctx, w, "record to delete not found",
			dErrors.New(dErrors.CodeNotFound, "record "+id.String()+" not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var from, to *string
	if query.Has("startDate") {
		v := query.Get("startDate")
		from = &v
	}
	if query.Has("endDate") {
		v := query.Get("endDate")
		to = &v
	}

	records, err := h.records.ListByBirthDate(ctx, from, to)
	if err != nil {
		h.fail(ctx, w, "failed to list records by birth date", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

// decode reads a JSON body into dst. On failure it writes a bad_request
// response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.fail(r.Context(), w, "malformed request body",
			dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) recordID(w http.ResponseWriter, r *http.Request) (domain.RecordID, bool) {
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(r.Context(), w, "invalid record id", err)
		return 0, false
	}
	return id, true
}

// fail logs err at a level matching its code and writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
