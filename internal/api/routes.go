package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/icanhazstargate"

	StatusRoute    = "/v1/star-gate/status"
	RefreshRoute   = "/v1/star-gate/refresh"
	LoginHookRoute = "/v1/hooks/login"

	AdminParent      = "/v1/admin/"
	ListRecordsRoute = AdminParent + "records"
	ListAuditsRoute  = AdminParent + "audits"

	TaskParent       = "/v1/tasks/"
	ListTasksRoute   = TaskParent
	TriggerTaskRoute = TaskParent + "{name}/trigger"
	LogsForTaskRoute = TaskParent + "{name}/logs"
)
