package middleware

import (
	"bytes"
	"io"
	"time"

	"quant_bench_go/pkg/log"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody 限制日志里记录的 body 长度。
// 排行接口的响应可能很大，完整记录会把日志打爆。
const maxLoggedBody = 4096

// BodyLogWriter 用于记录请求和响应的body
type BodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w *BodyLogWriter) Write(b []byte) (int, error) {
	if w.body.Len() < maxLoggedBody {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger 作为gin.HandlerFunc，记录请求和响应的body
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// WebSocket 升级请求不能包装 ResponseWriter，否则 Hijack 失败
		if c.GetHeader("Upgrade") == "websocket" {
			c.Next()
			log.Infow("HTTP request",
				"latency", time.Since(startTime),
				"status", c.Writer.Status(),
				"client_ip", c.ClientIP(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			return
		}

		// 读取并重新缓存请求体
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
		}
		// 将读取的请求体重新设置回 c.Request.Body，以便后续处理函数可以正常读取
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))

		// 使用自定义的 ResponseWriter 捕获响应
		blw := &BodyLogWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = blw

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		path := c.Request.URL.Path

		loggedRequest := requestBody
		if len(loggedRequest) > maxLoggedBody {
			loggedRequest = loggedRequest[:maxLoggedBody]
		}

		log.Infow("HTTP request",
			"latency", latency,
			"status", statusCode,
			"client_ip", clientIP,
			"method", method,
			"path", path,
			"request_body", string(loggedRequest),
			"response_body", blw.body.String(),
		)
	}
}
