package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/chart"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.svc.Accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := s.svc.Accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		TokenType: "Bearer",
		ExpiresAt: sess.ExpiresAt,
		User:      userResponse{ID: sess.User.ID, Username: sess.User.Username},
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	period, err := parsePeriod(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}

	d := s.svc.Dashboards.Dashboard(r.Context(), userID, period)
	writeJSON(w, http.StatusOK, newDashboardResponse(d))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	period, err := parsePeriod(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}

	var buf bytes.Buffer
	err = s.svc.Reports.Chart(r.Context(), &buf, userID, period)
	if errors.Is(err, chart.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := req.toTransaction(userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	saved, err := s.svc.Transactions.Record(r.Context(), tx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/transactions/%d", saved.ID))
	writeJSON(w, http.StatusCreated, newTransactionResponse(saved))
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date and end_date must be YYYY-MM-DD")
		return
	}

	view, err := s.svc.Reports.Statistics(r.Context(), userID, rng.Start, rng.End, rng.Category)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatisticsResponse(rng, view))
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date and end_date must be YYYY-MM-DD")
		return
	}

	var buf bytes.Buffer
	if err := s.svc.Reports.WriteStatementPDF(r.Context(), &buf, userID, rng.Start, rng.End, rng.Category); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="statement-%s-%s.pdf"`, rng.Start.String(), rng.End.String()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	p, err := s.svc.Accounts.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(p))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := req.toProfile(userID)
	if err := s.svc.Accounts.UpdateProfile(r.Context(), p); err != nil {
		writeServiceError(w, r, err)
		return
	}

	saved, err := s.svc.Accounts.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(saved))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		if err := s.svc.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": "store unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "version": s.opts.Version})
}

type metricsResponse struct {
	TotalRequests      int64 `json:"total_requests"`
	ClientErrors       int64 `json:"client_errors"`
	ServerErrors       int64 `json:"server_errors"`
	LastResponseMicros int64 `json:"last_response_us"`
	RateLimited        int64 `json:"rate_limited"`
	ActiveClients      int   `json:"active_clients"`
	SuspiciousRequests int64 `json:"suspicious_requests"`
	InvalidIPAttempts  int64 `json:"invalid_ip_attempts"`

	SuspiciousByReason map[string]int64 `json:"suspicious_by_reason,omitempty"`
	DashboardCache     *cache.Stats     `json:"dashboard_cache,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	dm := s.detector.GetMetrics()
	resp := metricsResponse{
		TotalRequests:      tm.TotalRequests,
		ClientErrors:       tm.ClientErrors,
		ServerErrors:       tm.ServerErrors,
		LastResponseMicros: tm.LastResponseTime,
		RateLimited:        s.limiter.Rejected(),
		ActiveClients:      s.limiter.ActiveClients(),
		SuspiciousRequests: dm.SuspiciousRequests,
		InvalidIPAttempts:  dm.InvalidIPAttempts,
		SuspiciousByReason: dm.ByReason,
	}
	if cs, ok := s.svc.Dashboards.CacheStats(); ok {
		resp.DashboardCache = &cs
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return 0, false
	}
	return id, true
}

func (s *Server) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}
