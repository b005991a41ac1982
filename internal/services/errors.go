package services

import "errors"

// 业务错误，handlers 层用 errors.Is 翻译为 HTTP 状态码
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyFlagged   = errors.New("already flagged")
	ErrConflict         = errors.New("conflict")
)
