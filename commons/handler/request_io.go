package handler

import (
	"fmt"
	"strconv"

	"cronkeeper/internal/logger"

	"github.com/gin-gonic/gin"
)

type RequestIo[T any] struct {
	Body        T
	RawBody     []byte
	RequestID   string
	PathParams  map[string]string
	QueryParams map[string]string
	Headers     map[string]string
}

type HandlerDependencies struct {
	Logger logger.Logger
}

func BuildRequestIo[T any](c *gin.Context) *RequestIo[T] {
	return &RequestIo[T]{
		RequestID:   c.GetString(RequestIDContextKey),
		PathParams:  extractPathParams(c),
		QueryParams: extractQueryParams(c),
		Headers:     extractHeaders(c),
	}
}

// PathInt64 parses a positive integer path parameter
func (r *RequestIo[T]) PathInt64(name string) (int64, error) {
	raw, ok := r.PathParams[name]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return v, nil
}

// QueryInt parses an optional integer query parameter, returning def when absent
func (r *RequestIo[T]) QueryInt(name string, def int) (int, error) {
	raw, ok := r.QueryParams[name]
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func extractPathParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for _, param := range c.Params {
		params[param.Key] = param.Value
	}
	return params
}

func extractQueryParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

func extractHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return headers
}
