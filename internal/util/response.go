package util

import (
	"errors"
	"examprep_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	InternalServerError(c)
}

// HandleError 将业务错误映射为 HTTP 状态码
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidFileType):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrFileTooLarge):
		Error(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		Forbidden(c)
	case errors.Is(err, ErrNotConfigured),
		errors.Is(err, ErrExamNotFound),
		errors.Is(err, ErrSubjectNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrResultNotAvailable),
		errors.Is(err, ErrNoQuestions):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailRegistered),
		errors.Is(err, ErrSubjectNameTaken),
		errors.Is(err, ErrExamStartInProgress):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInvalidSessionState):
		logger.Log.Warn("Exam session contract violation", zap.String("path", c.FullPath()), zap.Error(err))
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		logger.Log.Warn("Store unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		Error(c, http.StatusServiceUnavailable, "storage temporarily unavailable, please retry")
	default:
		LogInternalError(c, err)
	}
}
