package api

import (
	"errors"
	"net/http"

	"github.com/neiii/stargate-better-auth/internal/api/presenter"
	"github.com/neiii/stargate-better-auth/internal/tasks"
)

// handleListTasks lists the maintenance tasks and their latest run state.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, s.taskManager.ListStatus(), http.StatusOK)
}

type TriggerTaskResponse struct {
	Status string `json:"status"`
}

// handleTriggerTask kicks off a background run of one maintenance task.
func (s *Server) handleTriggerTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		presenter.Error(w, r, "missing task name", http.StatusBadRequest)
		return
	}
	if err := s.taskManager.Trigger(name); err != nil {
		presenter.Error(w, r, err.Error(), taskErrorStatus(err))
		return
	}
	presenter.JSON(w, r, TriggerTaskResponse{Status: "triggered"}, http.StatusOK)
}

// handleLogsForTask replays the captured output of a task's latest run.
func (s *Server) handleLogsForTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		presenter.Error(w, r, "missing task name", http.StatusBadRequest)
		return
	}
	logs, err := s.taskManager.GetLogs(name)
	if err != nil {
		presenter.Error(w, r, err.Error(), taskErrorStatus(err))
		return
	}
	presenter.JSON(w, r, logs, http.StatusOK)
}

func taskErrorStatus(err error) int {
	var unknown tasks.UnknownTaskError
	if errors.As(err, &unknown) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
