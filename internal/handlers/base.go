package handlers

import (
	"errors"
	"net/http"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

// CurrentUser 取当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if u, exists := c.Get(middleware.CheckUserKey); exists {
		return u.(*models.User)
	}
	return nil
}

// OK 成功响应统一信封
func OK(c *gin.Context, code int, message string, data gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

// Fail 失败响应统一信封
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"message": message,
	})
}

// FailErr 把业务错误翻译为 HTTP 状态码
func FailErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		Fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidArgument):
		Fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPermissionDenied):
		Fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrAlreadyFlagged), errors.Is(err, services.ErrConflict):
		Fail(c, http.StatusConflict, err.Error())
	default:
		Fail(c, http.StatusInternalServerError, "Server error")
	}
}

// Pagination 列表响应里的分页块
func Pagination(page, limit int, total int64) gin.H {
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages == 0 {
		pages = 1
	}
	return gin.H{
		"current":  page,
		"pages":    pages,
		"total":    total,
		"has_next": page < pages,
		"has_prev": page > 1,
	}
}
