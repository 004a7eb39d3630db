package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"enclave/internal/domain"
)

// ErrorBody is the JSON error payload of the identity service.
type ErrorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// decodeError turns a non-2xx response into a *domain.ServiceError.
func decodeError(op string, resp *http.Response) error {
	var body ErrorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil {
		body.Error = strings.TrimSpace(string(raw))
	}

	kind := KindForStatus(resp.StatusCode, body.Code)
	msg := body.Error
	if kind == domain.KindUnknown && msg == "" {
		msg = resp.Status
	}
	return &domain.ServiceError{
		Kind:    kind,
		Op:      op,
		Status:  resp.StatusCode,
		Message: msg,
	}
}

// KindForStatus classifies an HTTP status and error code.
func KindForStatus(status int, code string) domain.ErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return domain.KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.KindUnauthorized
	case http.StatusConflict:
		return domain.KindAlreadyUsed
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if k := domain.ParseErrorKind(code); k != domain.KindUnknown {
			return k
		}
		return domain.KindInvalidFormat
	default:
		return domain.KindUnknown
	}
}
