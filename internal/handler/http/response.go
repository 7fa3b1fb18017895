package http

import "github.com/gin-gonic/gin"

// ErrorResponse 以统一的 {"error": ...} 形状返回错误信息。
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// SuccessResponse 直接把数据体作为响应返回，不额外包一层信封。
func SuccessResponse(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}
