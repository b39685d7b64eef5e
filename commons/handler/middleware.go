package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cronkeeper/commons/error_handler"
	"cronkeeper/commons/response"
	"cronkeeper/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func ErrorHandlingMiddleware(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if recovered == nil {
			return
		}
		log.WithContext(c.Request.Context()).Error("panic recovered in middleware",
			logger.String("path", c.Request.URL.Path),
			logger.String("method", c.Request.Method),
			logger.Any("panic", recovered))

		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Failure(
			c.GetString(RequestIDContextKey), nil,
			[]response.Errors{error_handler.GetInternalServerError("An unexpected error occurred")}))
	})
}

// RequestIDContextKey is the gin context key holding the request id
const RequestIDContextKey = "request_id"

// RequestIDHeader carries the request id in and out of the service
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware reuses the caller's X-Request-ID or generates one, and
// stores it where logger.WithContext finds it
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDContextKey, requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID))
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

func LoggingMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.WithContext(c.Request.Context())

		reqLog.Debug("request started",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.String("user_agent", c.GetHeader("User-Agent")),
			logger.String("remote_addr", c.ClientIP()))

		c.Next()

		reqLog.Info("request completed",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status_code", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)))
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.Failure(c.GetString(RequestIDContextKey), nil, []response.Errors{{
			ErrorCode: error_handler.CodeNotFound,
			Message:   fmt.Sprintf("route %s %s not found", c.Request.Method, c.Request.URL.Path),
		}}))
	}
}

func NoMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, response.Failure(c.GetString(RequestIDContextKey), nil, []response.Errors{{
			ErrorCode: error_handler.CodeValidationError,
			Message:   fmt.Sprintf("method %s not allowed for %s", c.Request.Method, c.Request.URL.Path),
		}}))
	}
}
