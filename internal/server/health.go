package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Names of the checks reported by /readyz.
const (
	CheckCalendar = "calendar"
	CheckGmail    = "gmail"
	CheckToken    = "token"
	CheckShutdown = "shutdown"
)

// Check and overall status values.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusMissing      = "missing"
	healthStatusEnabled      = "enabled"
	healthStatusDisabled     = "disabled"
)

// TokenCheck reports whether the stored OAuth token can still be loaded.
type TokenCheck func() error

// HealthChecker serves /healthz and /readyz for `gtool serve`. Readiness
// reflects the clients held by the ServerContext and the token file.
type HealthChecker struct {
	sc        *ServerContext
	token     TokenCheck
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker. token may be nil, in which case
// the token check is omitted.
func NewHealthChecker(sc *ServerContext, token TokenCheck) *HealthChecker {
	return &HealthChecker{
		sc:        sc,
		token:     token,
		startTime: time.Now(),
	}
}

// HealthResponse is the JSON body of both endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Checks evaluates every readiness check. ready is false when the server
// cannot answer a free slot search.
func (h *HealthChecker) Checks() (checks map[string]string, ready bool) {
	checks = make(map[string]string, 4)
	ready = true

	if h.sc == nil || h.sc.Calendar() == nil {
		checks[CheckCalendar] = healthStatusMissing
		ready = false
	} else {
		checks[CheckCalendar] = healthStatusOK
	}

	switch {
	case h.sc == nil || !h.sc.Config().IsGmailEnabled():
		checks[CheckGmail] = healthStatusDisabled
	case h.sc.gmail == nil:
		// Configured but not constructed; the gmail tools would all fail.
		checks[CheckGmail] = healthStatusMissing
		ready = false
	default:
		checks[CheckGmail] = healthStatusEnabled
	}

	if h.token != nil {
		if err := h.token(); err != nil {
			checks[CheckToken] = err.Error()
			ready = false
		} else {
			checks[CheckToken] = healthStatusOK
		}
	}

	if h.sc != nil && h.sc.IsShutdown() {
		checks[CheckShutdown] = healthStatusShuttingDown
		ready = false
	} else {
		checks[CheckShutdown] = healthStatusOK
	}

	return checks, ready
}

// LivenessHandler answers /healthz. It only reports that the process runs.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		})
	})
}

// ReadinessHandler answers /readyz with the result of Checks.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, ready := h.Checks()
		if !ready {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// RegisterHealthEndpoints registers /healthz and /readyz on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
}

func writeHealth(w http.ResponseWriter, code int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
