package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/hoststack/hoststack/internal/types"
)

// RequestIDMiddleware assigns each request an id, honouring one supplied by
// the caller, and echoes it on the response.
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header("X-Request-ID", requestID)
	c.Next()
}

// TenantMiddleware sets the default tenant and user on the request context.
// Multi-tenant resolution from auth material can replace this without
// touching the handlers.
func TenantMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	ctx = types.SetTenantID(ctx, types.DefaultTenantID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
