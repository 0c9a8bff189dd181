// Package api implements the netdash REST API.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pobradovic08/netdash/internal/ipindex"
	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/ratelimit"
	"github.com/pobradovic08/netdash/internal/schema"
	"github.com/pobradovic08/netdash/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// apiFallback catches every /api/ path no route claims.
const apiFallback = "/api/"

var routeMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Monitor is the part of the monitoring loop the API drives.
type Monitor interface {
	Running() bool
	RunNow() error
	Status() model.MonitorStatus
	ListRules() []model.AlertRule
	UpdateRule(id string, patch model.AlertRulePatch) (model.AlertRule, error)
}

// Deps holds what the handlers need. Index, Monitor, Limiter and Metrics
// are optional.
type Deps struct {
	Store     store.Store
	Validator *schema.Validator
	Index     *ipindex.Index
	Monitor   Monitor
	Limiter   *ratelimit.Limiter
	Metrics   *Metrics
	// StoreDriver names the backend in the service health response.
	StoreDriver string
	StaticDir   string
	CORSOrigin  string
}

// APIHandler serves the REST endpoints.
type APIHandler struct {
	store       store.Store
	validator   *schema.Validator
	mux         *http.ServeMux
	index       *ipindex.Index
	monitor     Monitor
	storeDriver string
	startedAt   time.Time
}

// NewHandler builds the routed and wrapped HTTP handler.
func NewHandler(deps Deps) http.Handler {
	h := &APIHandler{
		store:       deps.Store,
		validator:   deps.Validator,
		index:       deps.Index,
		monitor:     deps.Monitor,
		storeDriver: deps.StoreDriver,
		startedAt:   time.Now(),
	}

	mux := http.NewServeMux()
	h.mux = mux
	h.register(mux)
	if deps.StaticDir != "" {
		mux.Handle("/", staticHandler(deps.StaticDir))
	}

	mw := &middleware{limiter: deps.Limiter, metrics: deps.Metrics, corsOrigin: deps.CORSOrigin}
	return mw.wrap(mux)
}

func (h *APIHandler) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/devices", h.ListDevices)
	mux.HandleFunc("GET /api/devices/lookup", h.LookupDevice)
	mux.HandleFunc("GET /api/devices/{id}", h.GetDevice)
	mux.HandleFunc("POST /api/devices", h.CreateDevice)
	mux.HandleFunc("PATCH /api/devices/{id}", h.UpdateDevice)
	mux.HandleFunc("DELETE /api/devices/{id}", h.DeleteDevice)
	mux.HandleFunc("GET /api/devices/{id}/ports", h.ListDevicePorts)

	mux.HandleFunc("GET /api/ports", h.ListPorts)
	mux.HandleFunc("GET /api/ports/{id}", h.GetPort)
	mux.HandleFunc("POST /api/ports", h.CreatePort)
	mux.HandleFunc("PATCH /api/ports/{id}", h.UpdatePort)
	mux.HandleFunc("DELETE /api/ports/{id}", h.DeletePort)

	mux.HandleFunc("GET /api/alerts", h.ListAlerts)
	mux.HandleFunc("GET /api/alerts/device/{deviceId}", h.ListDeviceAlerts)
	mux.HandleFunc("POST /api/alerts", h.CreateAlert)
	mux.HandleFunc("PATCH /api/alerts/{id}/acknowledge", h.AcknowledgeAlert)
	mux.HandleFunc("DELETE /api/alerts/{id}", h.DeleteAlert)

	mux.HandleFunc("GET /api/device-health", h.ListDeviceHealth)
	mux.HandleFunc("GET /api/device-health/{deviceId}", h.GetDeviceHealth)
	mux.HandleFunc("PUT /api/device-health/{deviceId}", h.PutDeviceHealth)

	mux.HandleFunc("GET /api/alert-rules", h.ListAlertRules)
	mux.HandleFunc("PATCH /api/alert-rules/{id}", h.UpdateAlertRule)
	mux.HandleFunc("POST /api/monitoring/run", h.RunMonitoring)
	mux.HandleFunc("GET /api/monitoring/status", h.MonitoringStatus)

	mux.HandleFunc("GET /api/dashboard", h.Dashboard)
	mux.HandleFunc("GET /api/locations", h.Locations)
	mux.HandleFunc("GET /api/topology", h.Topology)

	mux.HandleFunc("GET /api/health", h.ServiceHealth)
	mux.HandleFunc("GET /api/openapi.yaml", h.OpenAPIDocument)
	mux.HandleFunc(apiFallback, h.NotFound)
}

// NotFound answers API paths that match no route. A path that is routed for
// other methods gets 405 with an Allow header instead.
func (h *APIHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if allowed := h.allowedMethods(r); len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		model.WriteProblem(w, http.StatusMethodNotAllowed,
			"Method "+r.Method+" is not allowed on "+r.URL.Path+".")
		return
	}
	model.WriteProblem(w, http.StatusNotFound, "No API endpoint at "+r.URL.Path+".")
}

// allowedMethods lists the methods with a route for the request path.
func (h *APIHandler) allowedMethods(r *http.Request) []string {
	if h.mux == nil {
		return nil
	}
	var allowed []string
	for _, m := range routeMethods {
		alt := r.Clone(r.Context())
		alt.Method = m
		if _, pattern := h.mux.Handler(alt); pattern != "" && pattern != apiFallback && pattern != "/" {
			allowed = append(allowed, m)
		}
	}
	return allowed
}

// OpenAPIDocument serves the embedded OpenAPI document.
func (h *APIHandler) OpenAPIDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(schema.Document())
}

// decode reads and validates the request body against the named schema.
// It writes the 400 response itself and reports false on failure.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, name string, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			model.WriteProblem(w, http.StatusRequestEntityTooLarge, "Request body is too large.")
			return false
		}
		model.WriteProblem(w, http.StatusBadRequest, "Could not read request body.")
		return false
	}

	params, err := h.validator.Decode(name, body, dst)
	if errors.Is(err, schema.ErrMalformed) {
		model.WriteProblem(w, http.StatusBadRequest, "Request body must be a JSON object.")
		return false
	}
	if err != nil {
		internalError(w, r, "decode request body", err)
		return false
	}
	if len(params) > 0 {
		model.WriteProblemWithParams(w, http.StatusBadRequest, "Request body failed validation.", params)
		return false
	}
	return true
}

// internalError logs err and writes a 500 without leaking its text.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err, "method", r.Method, "path", r.URL.Path)
	model.WriteProblem(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
}

// nonNil turns a nil slice into an empty one so that it encodes as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
