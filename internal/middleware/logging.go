// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"profile-media-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// 超过该大小的请求体只记录长度，不记录内容
const maxLoggedBodyBytes = 4 * 1024

// RequestLogger 是一个 Gin 中间件，用于记录详细的请求和响应日志。
// 上传接口的请求体是二进制内容，只记录大小；日志中不出现服务器绝对路径。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// 二进制与大体积请求体不读入日志
		var requestBody []byte
		contentType := c.GetHeader("Content-Type")
		loggable := !strings.HasPrefix(contentType, "multipart/form-data") &&
			c.Request.ContentLength >= 0 && c.Request.ContentLength <= maxLoggedBodyBytes
		if loggable && c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// 将读取的请求体重新设置回 c.Request.Body，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		// 使用自定义的 ResponseWriter 捕获响应
		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		latency := time.Since(startTime)

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBytes", c.Request.ContentLength,
			"requestBody", string(requestBody),
			"responseBody", blw.body.String(),
		)
	}
}
