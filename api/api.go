// Package api serves the datasheet engine over HTTP.
//
// Every route lives under /api/v1. Responses are JSON; failures use a
// single error envelope carrying the HTTP status, a stable failure
// kind, and a human-readable detail.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"go.jacobcolvin.com/vdsheet/datasheet"
	"go.jacobcolvin.com/vdsheet/vds"
	"go.jacobcolvin.com/vdsheet/vdsindex"
)

// maxBatchSize caps one batch request.
const maxBatchSize = 100

// Handler is the HTTP surface over a [datasheet.Engine].
type Handler struct {
	engine *datasheet.Engine
	log    *slog.Logger
	router *httprouter.Router
}

// New creates the API handler. A nil logger uses [slog.Default].
func New(engine *datasheet.Engine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		engine: engine,
		log:    log,
		router: httprouter.New(),
	}

	h.router.GET("/api/v1/health", h.health)
	h.router.GET("/api/v1/metadata", h.metadata)
	h.router.GET("/api/v1/schema", h.schema)
	h.router.GET("/api/v1/vds", h.list)
	h.router.GET("/api/v1/vds/:vds/decode", h.decode)
	h.router.GET("/api/v1/vds/:vds/validate", h.validate)
	h.router.GET("/api/v1/datasheet/:vds", h.generate)
	h.router.GET("/api/v1/datasheet/:vds/flat", h.generateFlat)
	h.router.POST("/api/v1/datasheet/batch", h.batch)

	return h
}

// ServeHTTP implements [http.Handler] with request logging.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	h.router.ServeHTTP(rec, r)

	h.log.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// errorBody is the error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Status int    `json:"status"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, kind, detail string) {
	h.writeJSON(w, status, errorBody{Error: errorDetail{
		Status: status,
		Kind:   kind,
		Detail: detail,
	}})
}

// decodeKinds maps decode sentinel errors to stable kind names.
var decodeKinds = []struct {
	err  error
	kind string
}{
	{vds.ErrUnknownPrefix, "UnknownPrefix"},
	{vds.ErrUnknownBore, "UnknownBore"},
	{vds.ErrUnknownClass, "UnknownClass"},
	{vds.ErrUnknownModifier, "UnknownModifier"},
	{vds.ErrUnknownEndConnection, "UnknownEndConnection"},
	{vds.ErrTruncatedVDS, "TruncatedVDS"},
}

func kindName(err error) string {
	for _, dk := range decodeKinds {
		if errors.Is(err, dk.err) {
			return dk.kind
		}
	}

	return "Internal"
}

// writeEngineError maps engine failures onto HTTP statuses: decode
// failures are client errors, deadline expiry is a gateway timeout,
// anything else is internal and never leaks its detail.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var derr *vds.DecodeError
	if errors.As(err, &derr) {
		h.writeError(w, http.StatusBadRequest, kindName(err), derr.Error())

		return
	}

	if errors.Is(err, datasheet.ErrTimeout) {
		h.writeError(w, http.StatusGatewayTimeout, "Timeout", "generation timed out")

		return
	}

	h.log.Error("internal error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "Internal", "internal error")
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	h.writeJSON(w, http.StatusOK, h.engine.Health())
}

func (h *Handler) metadata(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	h.writeJSON(w, http.StatusOK, h.engine.Capabilities())
}

func (h *Handler) schema(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	h.writeJSON(w, http.StatusOK, datasheet.OutputSchema(h.engine.Schema()))
}

// listResponse pages the known VDS codes.
type listResponse struct {
	Total  int      `json:"total"`
	Count  int      `json:"count"`
	Offset int      `json:"offset"`
	Codes  []string `json:"vds_numbers"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()

	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "BadQuery", "offset must be an integer")

		return
	}

	limit, err := queryInt(q.Get("limit"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "BadQuery", "limit must be an integer")

		return
	}

	codes, total := h.engine.ListVDS(vdsindex.Filter{
		ValveType: q.Get("valve_type"),
		Offset:    offset,
		Limit:     limit,
	})

	h.writeJSON(w, http.StatusOK, listResponse{
		Total:  total,
		Count:  len(codes),
		Offset: offset,
		Codes:  codes,
	})
}

func queryInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("not a non-negative integer")
	}

	return n, nil
}

// decodeResponse extends the decoded VDS with resolved names.
type decodeResponse struct {
	*vds.Decoded
	ValveType     string   `json:"valve_type"`
	ModifierNames []string `json:"modifier_names"`
}

func (h *Handler) decode(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	dec, err := h.engine.Decode(ps.ByName("vds"))
	if err != nil {
		h.writeEngineError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, decodeResponse{
		Decoded:       dec,
		ValveType:     dec.ValveType(),
		ModifierNames: dec.ModifierNames(h.engine.Rules()),
	})
}

// validateResponse reports a decode check without decoding details.
type validateResponse struct {
	VDS   string `json:"vds_no"`
	Valid bool   `json:"valid"`
	Kind  string `json:"error_kind,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *Handler) validate(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	code := ps.ByName("vds")

	err := h.engine.Validate(code)
	if err != nil {
		h.writeJSON(w, http.StatusOK, validateResponse{
			VDS:   code,
			Valid: false,
			Kind:  kindName(err),
			Error: err.Error(),
		})

		return
	}

	h.writeJSON(w, http.StatusOK, validateResponse{VDS: code, Valid: true})
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, err := h.engine.Generate(r.Context(), ps.ByName("vds"))
	if err != nil {
		h.writeEngineError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, d)
}

// flatResponse is the flat datasheet view plus minimal metadata.
type flatResponse struct {
	VDS              string               `json:"vds_no"`
	ValidationStatus string               `json:"validation_status"`
	Completion       datasheet.Completion `json:"completion"`
	Fields           map[string]string    `json:"fields"`
}

func (h *Handler) generateFlat(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, err := h.engine.Generate(r.Context(), ps.ByName("vds"))
	if err != nil {
		h.writeEngineError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, flatResponse{
		VDS:              d.Metadata.VDS,
		ValidationStatus: d.Metadata.ValidationStatus,
		Completion:       d.Metadata.Completion,
		Fields:           d.Flat(),
	})
}

// batchRequest is the batch generation body.
type batchRequest struct {
	Codes []string `json:"vds_numbers"`
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req batchRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "BadRequest", "malformed JSON body")

		return
	}

	if len(req.Codes) == 0 {
		h.writeError(w, http.StatusBadRequest, "BadRequest", "vds_numbers must not be empty")

		return
	}

	if len(req.Codes) > maxBatchSize {
		h.writeError(w, http.StatusBadRequest, "BadRequest",
			"vds_numbers exceeds the batch limit of "+strconv.Itoa(maxBatchSize))

		return
	}

	res, err := h.engine.GenerateBatch(r.Context(), req.Codes)
	if err != nil {
		h.writeEngineError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, res)
}
