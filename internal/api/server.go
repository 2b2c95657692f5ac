package api

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/neiii/stargate-better-auth/internal/api/middleware"
	"github.com/neiii/stargate-better-auth/internal/audit"
	"github.com/neiii/stargate-better-auth/internal/core"
	"github.com/neiii/stargate-better-auth/internal/service"
	"github.com/neiii/stargate-better-auth/internal/tasks"
)

// refresh endpoint budget: roughly one forced refresh per 10 seconds per
// user, with room for a small burst right after starring
const (
	refreshRateLimit = rate.Limit(0.1)
	refreshBurst     = 3
)

type Server struct {
	gate        *service.GateService
	taskManager *tasks.Manager
	auditor     core.Auditor
}

func NewServer(
	gate *service.GateService,
	taskManager *tasks.Manager,
	auditor core.Auditor,
) *Server {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}

	return &Server{
		gate:        gate,
		taskManager: taskManager,
		auditor:     auditor,
	}
}

func (s *Server) Routes(sessionSigningKey []byte) http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	// session routes
	sessionAuth := middleware.SessionAuth(sessionSigningKey)
	mux.Handle("GET "+StatusRoute, sessionAuth(http.HandlerFunc(s.handleStatus)))
	mux.Handle("POST "+RefreshRoute, sessionAuth(
		middleware.RateLimit(refreshRateLimit, refreshBurst)(
			http.HandlerFunc(s.handleRefresh))))
	mux.Handle("POST "+LoginHookRoute, sessionAuth(http.HandlerFunc(s.handleLoginHook)))

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET "+ListRecordsRoute, s.handleAdminRecords)
	adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAdminAudit)
	adminMux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	adminMux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	adminMux.HandleFunc("GET "+LogsForTaskRoute, s.handleLogsForTask)
	adminAuth := middleware.AdminAuth(sessionSigningKey)
	mux.Handle("/v1/admin/", adminAuth(adminMux))
	mux.Handle("/v1/tasks/", adminAuth(adminMux))

	return middleware.Recover(
		middleware.CorrelationID(
			middleware.Logging(
				mux)))
}
