package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/hobo/internal/core"
	"github.com/JonMunkholm/hobo/internal/logging"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusByCode is the HTTP status for each user message code. Codes not
// listed are 500.
var statusByCode = map[string]int{
	"HDR001":  http.StatusUnprocessableEntity,
	"HDR002":  http.StatusUnprocessableEntity,
	"ROW001":  http.StatusUnprocessableEntity,
	"ROW002":  http.StatusUnprocessableEntity,
	"FILE001": http.StatusRequestEntityTooLarge,
	"FILE002": http.StatusUnprocessableEntity,
	"FILE003": http.StatusUnprocessableEntity,
	"FILE004": http.StatusBadRequest,
	"FILE005": http.StatusUnprocessableEntity,
	"FILE006": http.StatusNotFound,
	"FILE007": http.StatusBadRequest,
	"PRS001":  http.StatusServiceUnavailable,
	"PRS002":  http.StatusRequestTimeout,
	"PRS003":  http.StatusGatewayTimeout,
	"DB001":   http.StatusNotImplemented,
	"DB004":   http.StatusServiceUnavailable,
	"DB005":   http.StatusServiceUnavailable,
	"DB007":   http.StatusServiceUnavailable,
	"RATE001": http.StatusTooManyRequests,
}

func statusFor(msg core.UserMessage) int {
	if status, ok := statusByCode[msg.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs err with the request context and writes the mapped user
// message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := statusFor(msg)

	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request error", "path", r.URL.Path, "status", status, "code", msg.Code, "error", err)
	} else {
		log.Warn("request rejected", "path", r.URL.Path, "status", status, "code", msg.Code, "error", err)
	}

	if msg.Code == "PRS001" {
		w.Header().Set("Retry-After", "5")
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg core.UserMessage) {
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
