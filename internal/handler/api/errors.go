package api

import (
	"errors"

	"AgriPrice/internal/domain/models"
	xhttp "AgriPrice/pkg/http"
)

// ToAppError maps domain errors onto the HTTP error envelope.
func ToAppError(err error) *xhttp.AppError {
	var (
		ve *models.ValidationError
		de *models.EmptyDatasetError
		re *models.EmptyResultError
	)
	switch {
	case errors.As(err, &ve):
		return xhttp.BadRequestError("ERR_VALIDATION", ve.Field, ve.Error()).
			WithParam("reason", ve.Reason).
			WithError(err)
	case errors.As(err, &de):
		return xhttp.NotFoundError("ERR_EMPTY_DATASET", de.Error()).WithError(err)
	case errors.As(err, &re):
		return xhttp.NotFoundError("ERR_NO_DATA", re.Error()).
			WithParam("item_name", re.Item).
			WithParam("date_from", re.DateFrom.String()).
			WithParam("date_to", re.DateTo.String()).
			WithError(err)
	}
	return xhttp.InternalError("failed to answer the question").WithError(err)
}
