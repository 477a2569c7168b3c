package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/polvault/internal/common"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, envelope{Success: false, Error: msg})
}

// httpStatus maps service errors onto status codes; unknown errors become
// a bare 500.
func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrNotConfigured):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrAlreadyConfigured):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrWeakPassword),
		errors.Is(err, common.ErrInvalidSecretPayload),
		errors.Is(err, common.ErrResetNotConfirmed):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidSession),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrBackupNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrStorageFailure):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	code, msg := httpStatus(err)
	writeError(w, code, msg)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
