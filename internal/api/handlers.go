package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/neiii/stargate-better-auth/internal/api/middleware"
	"github.com/neiii/stargate-better-auth/internal/api/presenter"
	"github.com/neiii/stargate-better-auth/internal/buildinfo"
	"github.com/neiii/stargate-better-auth/internal/core"
	"github.com/neiii/stargate-better-auth/internal/service"
)

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAbout responds with service information including version and commit hash.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

// handleLoginHook runs the post-authentication star check for a freshly
// created session. The host framework calls this after its own login flow
// completed; a denial here means the session was already torn down again.
func (s *Server) handleLoginHook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)
	sess := middleware.SessionCtx(ctx)

	entry := core.AuditEntry{
		ID:         middleware.CorrelationCtx(ctx),
		Time:       time.Now(),
		Action:     "login.verify",
		UserID:     sess.UserID,
		Repository: s.gate.Repository(),
	}
	defer s.audit(r, &entry)

	result, err := s.gate.HandleLogin(ctx, sess.UserID, sess.AccessToken, sess.SessionID)
	if err != nil {
		entry.Error = err.Error()
		logger.Warn().Err(err).Str("user_id", sess.UserID).Msg("login gate denied")
		presenter.Err(w, r, err, "star verification failed")
		return
	}

	entry.HasStarred = result.Verification.HasStarred
	entry.Cached = result.Verification.Cached
	entry.Granted = result.Decision.Granted
	entry.Reason = result.Decision.Reason
	entry.GracePeriodActive = result.Decision.GracePeriodActive
	entry.Error = result.Verification.Err

	logger.Info().
		Str("user_id", sess.UserID).
		Bool("cached", result.Verification.Cached).
		Str("reason", result.Decision.Reason).
		Msg("login gate passed")

	presenter.JSON(w, r, result, http.StatusOK)
}

// handleStatus reports the caller's current star and access standing.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.serveStatus(w, r, "status.check", s.gate.Status)
}

// handleRefresh invalidates the caller's cached record and re-checks.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.serveStatus(w, r, "cache.refresh", s.gate.Refresh)
}

func (s *Server) serveStatus(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, userID, accessToken string) (*service.GateStatus, error),
) {
	ctx := r.Context()
	sess := middleware.SessionCtx(ctx)

	entry := core.AuditEntry{
		ID:         middleware.CorrelationCtx(ctx),
		Time:       time.Now(),
		Action:     action,
		UserID:     sess.UserID,
		Repository: s.gate.Repository(),
	}
	defer s.audit(r, &entry)

	status, err := fn(ctx, sess.UserID, sess.AccessToken)
	if err != nil {
		entry.Error = err.Error()
		presenter.Err(w, r, err, "star status unavailable")
		return
	}

	entry.HasStarred = status.HasStarred
	entry.Cached = status.Cached
	entry.Granted = status.Granted
	entry.Reason = status.Reason
	entry.GracePeriodActive = status.GracePeriodActive
	entry.Error = status.Error

	presenter.JSON(w, r, status, http.StatusOK)
}

// handleAdminRecords lists all verification records.
func (s *Server) handleAdminRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	records, err := s.gate.Records(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve verification records")
		presenter.Error(w, r, "failed to retrieve verification records", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, records, http.StatusOK)
}

// handleAdminAudit processes requests to retrieve audit log entries.
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterUserID := q.Get("user_id")
	filterAction := q.Get("action")

	limit := 50
	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err != nil {
			logger.Warn().Err(err).Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		} else {
			limit = v
		}
	}

	entries, err := s.auditor.Find(func(entry core.AuditEntry) bool {
		if filterCorrelationID != "" && entry.ID != filterCorrelationID {
			return false
		}
		if filterUserID != "" && entry.UserID != filterUserID {
			return false
		}
		if filterAction != "" && entry.Action != filterAction {
			return false
		}
		return true
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}

	if len(entries) > limit {
		// newest entries live at the tail of the log
		entries = entries[len(entries)-limit:]
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}

func (s *Server) audit(r *http.Request, entry *core.AuditEntry) {
	if err := s.auditor.Log(*entry); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write audit log")
	}
}
