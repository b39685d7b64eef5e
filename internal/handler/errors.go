package handler

import (
	"cronkeeper/commons/error_handler"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/service"
)

// errorResponse maps a service error to the response envelope: validation
// errors are 400, missing jobs 404, anything else 500 with a generic message
func errorResponse(log logger.Logger, err error, operation string, jobID int64) *error_handler.ErrorCollection {
	switch {
	case service.IsValidationError(err):
		return error_handler.NewError(error_handler.CodeValidationError, err.Error())
	case service.IsNotFoundError(err):
		return error_handler.NewError(error_handler.CodeNotFound, "job not found")
	default:
		log.Error("request failed",
			logger.String("operation", operation),
			logger.Int64("job_id", jobID),
			logger.Error(err))
		return error_handler.NewError(error_handler.CodeInternalServerError, "failed to "+operation)
	}
}

func invalidParam(err error) *error_handler.ErrorCollection {
	return error_handler.NewError(error_handler.CodeValidationError, err.Error())
}
