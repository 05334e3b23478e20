// Package httpapi implements the REST surface of the job alert service.
//
// Routes:
//
//	GET    /health                          → liveness
//	GET    /jobs/recent?days=N              → active jobs seen in the last N days (default 7)
//	GET    /jobs/source/{source}            → active jobs from one source
//	GET    /jobs/stats                      → totals, recent count, counts by source
//	POST   /profiles                        → create a profile
//	GET    /profiles/{email}                → fetch a profile
//	PATCH  /profiles/{email}                → partial update
//	DELETE /profiles/{email}                → deactivate
//	GET    /profiles/{email}/matches?days=N → recent jobs the profile would be alerted about
//	POST   /cycles                          → run an alert cycle now
//	GET    /scheduler/status                → scheduler snapshot
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jobmate/jobalert-service/internal/gate"
	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
	"jobmate/jobalert-service/internal/pipeline"
	"jobmate/jobalert-service/internal/profilestore"
	"jobmate/jobalert-service/internal/scheduler"
)

const (
	serviceName       = "jobalert-service"
	defaultRecentDays = 7
	maxRecentDays     = 365
)

// ─── Dependencies ────────────────────────────────────────────────────────────

// JobReader is the read side of the job store.
type JobReader interface {
	QueryRecent(ctx context.Context, days int) ([]model.Job, error)
	QueryBySource(ctx context.Context, source string) ([]model.Job, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// Profiles is the profile store.
type Profiles interface {
	Create(ctx context.Context, p model.Profile) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	Update(ctx context.Context, email string, patch profilestore.Patch) (*model.Profile, error)
	Deactivate(ctx context.Context, email string) error
}

// Cycles triggers and reports on alert cycles.
type Cycles interface {
	RunNow(ctx context.Context) (pipeline.CycleReport, error)
	Status() scheduler.Status
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	jobs     JobReader
	profiles Profiles
	cycles   Cycles
	defaults model.ProfileDefaults
	version  string
	log      *logger.Logger
}

// NewHandler returns a configured Handler. profiles is nil when user
// profiles are disabled; the profile routes then answer 404.
func NewHandler(jobs JobReader, profiles Profiles, cycles Cycles, version string, log *logger.Logger) *Handler {
	return &Handler{
		jobs:     jobs,
		profiles: profiles,
		cycles:   cycles,
		defaults: model.BuiltinProfileDefaults(),
		version:  version,
		log:      log.With("component", "httpapi"),
	}
}

// WithProfileDefaults sets the thresholds and frequency POST /profiles
// applies to fields the request leaves out.
func (h *Handler) WithProfileDefaults(d model.ProfileDefaults) *Handler {
	h.defaults = d
	return h
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/jobs/", h.handleJobs)
	mux.HandleFunc("/profiles", h.handleProfiles)
	mux.HandleFunc("/profiles/", h.handleProfile)
	mux.HandleFunc("/cycles", h.handleCycles)
	mux.HandleFunc("/scheduler/status", h.handleSchedulerStatus)
}

// ─── Route dispatch ──────────────────────────────────────────────────────────

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": h.version,
	})
}

// handleJobs handles GET /jobs/recent, /jobs/stats and /jobs/source/{source}
func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[1] == "recent":
		h.recentJobs(w, r)
	case len(parts) == 2 && parts[1] == "stats":
		h.jobStats(w, r)
	case len(parts) == 3 && parts[1] == "source":
		source, err := url.PathUnescape(parts[2])
		if err != nil || strings.TrimSpace(source) == "" {
			jsonError(w, "invalid source", http.StatusBadRequest)
			return
		}
		h.jobsBySource(w, r, source)
	default:
		jsonError(w, "not found", http.StatusNotFound)
	}
}

// handleProfiles handles POST /profiles
func (h *Handler) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		jsonError(w, "user profiles are disabled", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.createProfile(w, r)
}

// handleProfile handles /profiles/{email} and /profiles/{email}/matches
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		jsonError(w, "user profiles are disabled", http.StatusNotFound)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	email, err := url.PathUnescape(parts[1])
	if err != nil || email == "" {
		jsonError(w, "invalid email", http.StatusBadRequest)
		return
	}

	if len(parts) == 3 {
		if parts[2] != "matches" {
			jsonError(w, fmt.Sprintf("unknown action %q", parts[2]), http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.profileMatches(w, r, email)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r, email)
	case http.MethodPatch:
		h.updateProfile(w, r, email)
	case http.MethodDelete:
		h.deactivateProfile(w, r, email)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCycles handles POST /cycles. The cycle outlives a client that
// disconnects: jobs stored before a cancellation would otherwise never be
// notified.
func (h *Handler) handleCycles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rep, err := h.cycles.RunNow(context.WithoutCancel(r.Context()))
	if errors.Is(err, scheduler.ErrCycleRunning) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.log.Error("manual cycle failed", "error", err)
		jsonError(w, "cycle failed", http.StatusInternalServerError)
		return
	}
	jsonOK(w, rep)
}

// handleSchedulerStatus handles GET /scheduler/status
func (h *Handler) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonOK(w, h.cycles.Status())
}

// ─── Individual handlers ─────────────────────────────────────────────────────

func (h *Handler) recentJobs(w http.ResponseWriter, r *http.Request) {
	days, err := daysParam(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jobs, err := h.jobs.QueryRecent(r.Context(), days)
	if err != nil {
		h.storeError(w, "recentJobs", err)
		return
	}
	jsonOK(w, jobList(jobs))
}

func (h *Handler) jobsBySource(w http.ResponseWriter, r *http.Request, source string) {
	jobs, err := h.jobs.QueryBySource(r.Context(), source)
	if err != nil {
		h.storeError(w, "jobsBySource", err)
		return
	}
	jsonOK(w, jobList(jobs))
}

func (h *Handler) jobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.Stats(r.Context())
	if err != nil {
		h.storeError(w, "jobStats", err)
		return
	}
	jsonOK(w, stats)
}

// createRequest is a profile patch plus the email that keys it.
type createRequest struct {
	Email string `json:"email"`
	profilestore.Patch
}

func (h *Handler) createProfile(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	p := model.NewProfileWith(body.Email, "", h.defaults)
	body.Patch.Apply(&p)

	created, err := h.profiles.Create(r.Context(), p)
	if err != nil {
		h.storeError(w, "createProfile", err)
		return
	}
	jsonStatus(w, http.StatusCreated, created)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request, email string) {
	p, err := h.profiles.GetByEmail(r.Context(), email)
	if err != nil {
		h.storeError(w, "getProfile", err)
		return
	}
	jsonOK(w, p)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, email string) {
	var patch profilestore.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	p, err := h.profiles.Update(r.Context(), email, patch)
	if err != nil {
		h.storeError(w, "updateProfile", err)
		return
	}
	jsonOK(w, p)
}

func (h *Handler) deactivateProfile(w http.ResponseWriter, r *http.Request, email string) {
	if err := h.profiles.Deactivate(r.Context(), email); err != nil {
		h.storeError(w, "deactivateProfile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) profileMatches(w http.ResponseWriter, r *http.Request, email string) {
	days, err := daysParam(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := h.profiles.GetByEmail(r.Context(), email)
	if err != nil {
		h.storeError(w, "profileMatches", err)
		return
	}
	jobs, err := h.jobs.QueryRecent(r.Context(), days)
	if err != nil {
		h.storeError(w, "profileMatches", err)
		return
	}
	jsonOK(w, jobList(gate.FilterForProfile(p, jobs)))
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type jobsResponse struct {
	Count int         `json:"count"`
	Jobs  []model.Job `json:"jobs"`
}

func jobList(jobs []model.Job) jobsResponse {
	if jobs == nil {
		jobs = []model.Job{}
	}
	return jobsResponse{Count: len(jobs), Jobs: jobs}
}

func daysParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultRecentDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxRecentDays {
		return 0, fmt.Errorf("days must be an integer between 1 and %d", maxRecentDays)
	}
	return days, nil
}

// storeError maps store errors to HTTP status codes.
func (h *Handler) storeError(w http.ResponseWriter, op string, err error) {
	var vErr *profilestore.ValidationError
	switch {
	case errors.As(err, &vErr):
		jsonError(w, vErr.Msg, http.StatusBadRequest)
	case errors.Is(err, profilestore.ErrNotFound):
		jsonError(w, "profile not found", http.StatusNotFound)
	case errors.Is(err, profilestore.ErrDuplicate):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		h.log.Error(op+" failed", "error", err)
		jsonError(w, "database error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, v)
}

func jsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
