package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/neiii/stargate-better-auth/internal/service"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	ErrorCode(w, r, msg, "", status)
}

func ErrorCode(w http.ResponseWriter, r *http.Request, msg, code string, status int) {
	correlationID, _ := r.Context().Value("correlation_id").(string)
	resp := ErrorResponse{
		Error:         msg,
		Code:          code,
		CorrelationID: correlationID,
	}
	JSON(w, r, resp, status)
}

// Err maps a service error onto the wire: HTTPErrors keep their status and
// stable code so clients can route on it, anything else degrades to a 400.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	status := http.StatusBadRequest // generic default status
	code := ""
	var httpError *service.HTTPError
	if errors.As(err, &httpError) {
		status = httpError.StatusCode
		code = httpError.Code
	}
	ErrorCode(w, r, short+": "+err.Error(), code, status)
}
