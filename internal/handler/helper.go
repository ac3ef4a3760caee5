package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/service"

	"github.com/gin-gonic/gin"
)

// mapServiceError 把 Service 层哨兵错误转换为 HTTP 状态码和对外消息。
// 统一映射的价值：
// 1. Handler 不必散落大量 if/else 判断。
// 2. 对外返回口径稳定，避免泄露内部实现细节。
func mapServiceError(err error) (httpStatus int, message string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request parameters"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrCategoryNotFound):
		return http.StatusNotFound, "Category not found"
	case errors.Is(err, service.ErrCategoryAlreadyExists):
		return http.StatusConflict, "Category name already in use"
	case errors.Is(err, service.ErrCategoryHasChildren):
		return http.StatusConflict, "Category has child nodes"
	case errors.Is(err, service.ErrCorruptHierarchy):
		// 层级数据损坏属于服务端数据问题，对外统一口径
		return http.StatusInternalServerError, "Internal server error"
	case errors.Is(err, service.ErrSubmissionNotFound):
		return http.StatusNotFound, "Submission not found"
	case errors.Is(err, service.ErrSubmissionAlreadyExists):
		return http.StatusConflict, "Submission name already in use"
	case errors.Is(err, service.ErrSubmissionNotOwned):
		return http.StatusForbidden, "Submission does not belong to user"
	case errors.Is(err, service.ErrTagNotFound):
		return http.StatusNotFound, "Tag not found"
	case errors.Is(err, service.ErrResultNotFound):
		return http.StatusNotFound, "Result not found"
	case errors.Is(err, service.ErrRefInUse):
		return http.StatusConflict, "Change or delete results using this category first"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// extractBearerToken 从 Authorization 请求头提取 Bearer Token。
// 期望格式：Authorization: Bearer <token>
func extractBearerToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	if strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("empty token")
	}
	return parts[1], nil
}

// getUserFromContext 从 Gin 上下文中读取 AuthMiddleware 注入的用户对象。
// 如果上下文异常，该函数会直接写错误响应并返回 false，调用方只需 `if !ok { return }`。
func getUserFromContext(c *gin.Context) (*model.User, bool) {
	userVal, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"error":   "Unauthorized",
			"message": "User not found in context",
		})
		return nil, false
	}

	user, ok := userVal.(*model.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"error":   "Internal server error",
			"message": "Failed to get user profile",
		})
		return nil, false
	}
	return user, true
}

// viewerIDFromContext 读取可选的登录用户 id。
// 排行/列表接口匿名可访问，登录后多返回 isUpvoted/isSubscribed 标注。
func viewerIDFromContext(c *gin.Context) *uint {
	userVal, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := userVal.(*model.User)
	if !ok || user == nil {
		return nil
	}
	id := user.ID
	return &id
}

// parsePageQuery 解析 offset/limit 查询参数，带默认值。
// 合法性检查（limit > 0 等）由 service 层统一裁决。
func parsePageQuery(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return offset, limit
}

// parseIDParam 解析路径中的数字 id。
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid id",
		})
		return 0, false
	}
	return uint(id), true
}
