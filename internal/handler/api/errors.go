package api

import (
	"errors"
	"net/http"

	"PriceLens/internal/domain/models"
	xhttp "PriceLens/pkg/http"
)

// toAppError maps domain sentinels onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrDataNotFound):
		return xhttp.NewAppError("ERR_DATA_NOT_FOUND", "", err.Error(), http.StatusNotFound).WithError(err)
	case errors.Is(err, models.ErrModelNotFound):
		return xhttp.NewAppError("ERR_MODEL_NOT_FOUND", "model", err.Error(), http.StatusNotFound).WithError(err)
	case errors.Is(err, models.ErrUnknownModel):
		return xhttp.NewAppError("ERR_UNKNOWN_MODEL", "model", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrSchemaMismatch), errors.Is(err, models.ErrTargetMissing):
		return xhttp.NewAppError("ERR_SCHEMA_MISMATCH", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	}
	return xhttp.InternalError("internal error").WithError(err)
}
