package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"cronkeeper/commons/error_handler"
	"cronkeeper/commons/response"
	"cronkeeper/internal/logger"

	"github.com/gin-gonic/gin"
)

type ServiceFunc[InputDto any, OutputDto any] func(
	ctx context.Context,
	ioutil *RequestIo[InputDto],
) (OutputDto, *error_handler.ErrorCollection)

// HandleFunc adapts a typed service function to gin: it binds the JSON body
// of write requests, calls fn and renders the standard envelope
func HandleFunc[InputDto any, OutputDto any](
	deps HandlerDependencies,
	fn ServiceFunc[InputDto, OutputDto],
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := deps.Logger.WithContext(ctx)

		ioutil := BuildRequestIo[InputDto](c)
		if errs := bindBody(c, ioutil, log); errs != nil {
			SendErrorResponse(c, *new(OutputDto), errs)
			return
		}

		out, errs := fn(ctx, ioutil)
		if errs != nil && errs.HasErrors() {
			log.Debug("request failed",
				logger.String("path", c.FullPath()),
				logger.Int("error_code", errs.GetErrors()[0].ErrorCode))
			SendErrorResponse(c, out, errs)
			return
		}
		SendSuccessResponse(c, out)
	}
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// bindBody reads the raw body and, for write methods with a body, binds and
// validates it into ioutil.Body
func bindBody[T any](c *gin.Context, ioutil *RequestIo[T], log logger.Logger) *error_handler.ErrorCollection {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error("unable to read request body", logger.Error(err))
		return error_handler.NewError(error_handler.CodeInternalServerError, "Unable to parse request body")
	}
	ioutil.RawBody = raw

	if len(raw) == 0 || !hasBody(c.Request.Method) {
		return nil
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err := c.ShouldBindJSON(&ioutil.Body); err != nil {
		log.Warn("unable to bind request body",
			logger.Error(err),
			logger.String("raw_body", string(raw)))
		return error_handler.NewError(error_handler.CodeValidationError, err.Error())
	}
	return nil
}

func SendSuccessResponse[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, response.Success(c.GetString(RequestIDContextKey), data))
}

func SendErrorResponse[T any](c *gin.Context, data T, errs *error_handler.ErrorCollection) {
	c.JSON(errs.GetHTTPStatus(), response.Failure(c.GetString(RequestIDContextKey), data, errs.GetErrors()))
}
