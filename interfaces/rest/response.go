package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "gatherly-backend/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	errType := appErrors.ErrorTypeInternal

	// Struct-validation failures surface as validator errors, not AppError.
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Type: string(appErrors.ErrorTypeValidation)})
		return
	}

	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		errType = appErr.Type
		switch appErr.Type {
		case appErrors.ErrorTypeValidation:
			status = http.StatusBadRequest
		case appErrors.ErrorTypeNotFound:
			status = http.StatusNotFound
		case appErrors.ErrorTypeVersionConflict, appErrors.ErrorTypeTransactionFailed:
			status = http.StatusConflict
		case appErrors.ErrorTypeCapacityExceeded:
			status = http.StatusUnprocessableEntity
		case appErrors.ErrorTypeRepositoryFailure:
			status = http.StatusBadGateway
		}
	}

	if status >= 500 {
		logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Type: string(errType)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, logger, appErrors.NewValidation("malformed request body"))
		return false
	}
	return true
}
