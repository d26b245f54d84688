package util

import "errors"

var (
	// 外部存储读写失败，可重试
	ErrStoreUnavailable = errors.New("store unavailable")
	// 考试状态机使用错误，属于程序缺陷
	ErrInvalidSessionState = errors.New("invalid session state")
	ErrInvalidTransition   = errors.New("invalid transition")
	// 主题未配置 PDF/页码
	ErrNotConfigured = errors.New("topic not configured")
	ErrValidation    = errors.New("validation error")

	ErrExamNotFound        = errors.New("exam not found")
	ErrNoQuestions         = errors.New("no questions available for the selected subjects")
	ErrExamStartInProgress = errors.New("an exam is already being started")
	ErrResultNotAvailable  = errors.New("exam result not available")
	ErrSubjectNotFound     = errors.New("subject not found")
	ErrSubjectNameTaken    = errors.New("subject name already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidFileType     = errors.New("invalid file type")
	ErrFileTooLarge        = errors.New("file too large")
)
