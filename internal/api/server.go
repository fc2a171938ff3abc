// ABOUTME: HTTP/JSON boundary for the privacy-settings service
// ABOUTME: chi router with JWT-authenticated /v1 routes plus health and metrics

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdguard/pdguard/internal/authz"
	"github.com/pdguard/pdguard/internal/service"
	"github.com/pdguard/pdguard/internal/settings"
	"github.com/pdguard/pdguard/internal/store"
)

// Server exposes the manager service over HTTP.
type Server struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewRouter builds the API router. /healthz and /metrics are open; every
// /v1 route requires a valid bearer token.
func NewRouter(svc *service.Service, verifier authz.TokenVerifier, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger.With("component", "api")}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/version", s.handleVersion)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(verifier))

		r.Get("/v1/settings", s.handleGetAll)
		r.Post("/v1/settings/query", s.handleGetMany)
		r.Post("/v1/settings/batch", s.handleSaveMany)
		r.Post("/v1/settings/delete", s.handleDeleteMany)
		r.Delete("/v1/settings", s.handleDeleteAll)
		r.Get("/v1/settings/uid/{uid}", s.handleGetByUID)
		r.Get("/v1/settings/{package}", s.handleGet)
		r.Put("/v1/settings/{package}", s.handleSave)
		r.Delete("/v1/settings/{package}", s.handleDelete)

		r.Get("/v1/decisions/{package}/{category}", s.handleDecide)
		r.Post("/v1/notifications", s.handleNotify)
		r.Post("/v1/purge", s.handlePurge)

		r.Get("/v1/flags/enabled", s.handleGetEnabled)
		r.Put("/v1/flags/enabled", s.handleSetEnabled)
		r.Get("/v1/flags/notifications", s.handleGetNotifications)
		r.Put("/v1/flags/notifications", s.handleSetNotifications)
		r.Post("/v1/flags/boot-completed", s.handleBootCompleted)
		r.Get("/v1/values/{name}", s.handleGetValue)
		r.Put("/v1/values/{name}", s.handleSetValue)

		r.Get("/v1/authorized-apps", s.handleListApps)
		r.Post("/v1/authorized-apps/{package}/keys", s.handleAuthorizeKey)
		r.Delete("/v1/authorized-apps/{package}/keys", s.handleDeauthorizeKeys)
		r.Post("/v1/authorized-apps/{package}/signatures", s.handleAuthorizeSignature)
		r.Delete("/v1/authorized-apps/{package}/signatures", s.handleDeauthorizeSignatures)

		r.Get("/v1/access-log", s.handleAccessLog)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrAuthorizationDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrMalformedInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.svc.Version()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.GetSettings(r.Context(), chi.URLParam(r, "package"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no settings for package")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetAll(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.GetSettingsAll(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if recs == nil {
		recs = []*settings.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetMany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Packages []string `json:"packages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	recs, err := s.svc.GetSettingsMany(r.Context(), req.Packages)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetByUID(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.Atoi(chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid uid")
		return
	}
	recs, err := s.svc.GetSettingsByUID(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var rec settings.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec.PackageName = chi.URLParam(r, "package")
	if err := s.svc.SaveSettings(r.Context(), &rec); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &rec)
}

func (s *Server) handleSaveMany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Records []*settings.Record `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, err := s.svc.SaveSettingsMany(r.Context(), req.Records)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	verdicts := make([]string, len(results))
	failed := 0
	for i, res := range results {
		if res != nil {
			verdicts[i] = res.Error()
			failed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"saved":   len(results) - failed,
		"failed":  failed,
		"results": verdicts,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ok, err := s.svc.DeleteSettings(r.Context(), chi.URLParam(r, "package"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no settings for package")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Packages []string `json:"packages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.svc.DeleteSettingsMany(r.Context(), req.Packages)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.DeleteSettingsAll(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Decide(r.Context(),
		chi.URLParam(r, "package"),
		settings.Category(chi.URLParam(r, "category")))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp := map[string]any{
		"package":  d.PackageName,
		"uid":      d.UID,
		"category": d.Category,
		"mode":     d.Mode.String(),
		"output":   d.Output,
		"allowed":  d.Allowed(),
	}
	if d.Err != nil {
		resp["error"] = d.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PackageName string `json:"package_name"`
		UID         int    `json:"uid"`
		Mode        byte   `json:"mode"`
		Category    string `json:"category"`
		Output      string `json:"output"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.svc.Notify(r.Context(), req.PackageName, req.UID,
		settings.Mode(req.Mode), settings.Category(req.Category), req.Output)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Purge(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func (s *Server) handleGetEnabled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.svc.Enabled()})
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.svc.SetEnabled(r.Context(), req.Enabled); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.svc.NotificationsEnabled()})
}

func (s *Server) handleSetNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.svc.SetNotificationsEnabled(r.Context(), req.Enabled); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (s *Server) handleBootCompleted(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.SetBootCompleted(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"boot_completed": true})
}

func (s *Server) handleGetValue(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.GetValue(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": v})
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.svc.SetValue(r.Context(), chi.URLParam(r, "name"), req.Value); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": req.Value})
}

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.svc.ListAuthorizedApps(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if apps == nil {
		apps = []store.AuthorizedApp{}
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleAuthorizeKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.svc.AuthorizeKey(r.Context(), chi.URLParam(r, "package"), req.Pubkey); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeauthorizeKeys(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeauthorizeKeys(r.Context(), chi.URLParam(r, "package")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuthorizeSignature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Digest string `json:"digest"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.svc.AuthorizeSignature(r.Context(), chi.URLParam(r, "package"), req.Digest); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeauthorizeSignatures(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeauthorizeSignatures(r.Context(), chi.URLParam(r, "package")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.svc.RecentAccess(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []store.AccessEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
