package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/service"
	"quant_bench_go/pkg/database"
	"quant_bench_go/pkg/token"

	"github.com/gin-gonic/gin"
)

// authFailure 描述认证失败的 HTTP 状态和对外消息。
type authFailure struct {
	status  int
	message string
}

// AuthMiddleware 是 JWT 认证中间件，用于保护需要登录才能访问的接口。
// 工作流程：
//  1. 从请求头 Authorization 中提取 Bearer Token
//  2. 验证 Token 签名和有效期
//  3. 检查 Token 类型必须是 access（防止 refresh token 被滥用访问 API）
//  4. 检查 token 是否在 Redis 黑名单中（已登出 token 不再可用）
//  5. 根据 Token 中的用户名查询数据库，确认用户仍然存在
//  6. 将 claims 和 user 注入到 Gin 上下文中，后续 Handler 通过 c.Get("user") 获取
func AuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防御性检查：确保依赖已正确注入
		if jwtManager == nil || userService == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "Internal server error",
			})
			return
		}

		claims, user, failure := authenticate(c, jwtManager, userService)
		if failure != nil {
			c.AbortWithStatusJSON(failure.status, gin.H{
				"code":    failure.status,
				"message": failure.message,
			})
			return
		}

		// 认证通过：将用户信息注入 Gin 上下文
		// 后续 Handler 通过 c.Get("claims") 获取 JWT Claims
		// 后续 Handler 通过 c.Get("user") 获取 *model.User（需类型断言）
		c.Set("claims", claims)
		c.Set("user", user)
		c.Next()
	}
}

// OptionalAuthMiddleware 用于匿名可访问的接口（排行、分类列表等）。
// 带合法 token 的请求注入用户上下文，使响应带上 isUpvoted/isSubscribed
// 标注；没带 token 或 token 无效的请求按匿名放行，不返回 401。
func OptionalAuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtManager == nil || userService == nil || c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}

		claims, user, failure := authenticate(c, jwtManager, userService)
		if failure == nil {
			c.Set("claims", claims)
			c.Set("user", user)
		}
		c.Next()
	}
}

// authenticate 执行完整的 token 校验和用户查询，供两个认证中间件复用。
// 返回的 failure 为 nil 表示认证成功。
func authenticate(c *gin.Context, jwtManager *token.JWTManager, userService service.UserService) (*token.CustomClaims, *model.User, *authFailure) {
	// 1. 从 Authorization 请求头中提取 Bearer Token
	//    格式要求：Authorization: Bearer <token>
	tokenString, err := extractBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return nil, nil, &authFailure{http.StatusUnauthorized, "Invalid authorization header"}
	}

	// 2. 验证 Token 的签名、有效期等
	claims, err := jwtManager.VerifyToken(tokenString)
	if err != nil || claims == nil {
		return nil, nil, &authFailure{http.StatusUnauthorized, "Invalid or expired access token"}
	}

	// 3. 检查 Token 类型：受保护接口只接受 access token，不接受 refresh token
	//    防止攻击者拿 refresh token 冒充 access token 来访问 API
	if claims.TokenType != token.TokenTypeAccess {
		return nil, nil, &authFailure{http.StatusUnauthorized, "Invalid token type"}
	}

	// 4. 检查 Redis 黑名单：命中表示该 token 已被主动撤销（如用户登出）。
	// 这里与 Logout 使用同一 key 前缀，确保"写黑名单"和"读黑名单"一致。
	if database.RDB == nil {
		return nil, nil, &authFailure{http.StatusInternalServerError, "Internal server error"}
	}
	blacklistKey := "token_blacklist:" + tokenString
	exists, err := database.RDB.Exists(context.Background(), blacklistKey).Result()
	if err != nil {
		return nil, nil, &authFailure{http.StatusInternalServerError, "Internal server error"}
	}
	if exists > 0 {
		return nil, nil, &authFailure{http.StatusUnauthorized, "Invalid or expired access token"}
	}

	// 5. 根据 Token 中的用户名查询数据库，确认用户仍然存在
	//    即使 Token 有效，用户也可能已被删除或禁用
	user, err := userService.GetProfile(claims.Username)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return nil, nil, &authFailure{http.StatusUnauthorized, "User not found"}
		}
		return nil, nil, &authFailure{http.StatusInternalServerError, "Internal server error"}
	}
	if user == nil {
		return nil, nil, &authFailure{http.StatusUnauthorized, "User not found"}
	}

	return claims, user, nil
}

// extractBearerToken 从 Authorization 请求头中提取 Bearer Token。
// 期望格式：Bearer <token>
// 使用 strings.EqualFold 做大小写不敏感比较，兼容 "bearer"、"BEARER" 等写法。
func extractBearerToken(authHeader string) (string, error) {
	// strings.Fields 按空白字符分割，自动处理多余空格
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	if parts[1] == "" {
		return "", errors.New("empty token")
	}
	return parts[1], nil
}
