package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hoststack/hoststack/internal/config"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/types"
)

// AdminAuthMiddleware guards the operational endpoints with the configured
// admin API key in the x-admin-key header.
func AdminAuthMiddleware(cfg *config.Configuration, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("x-admin-key")
		if cfg.Admin.APIKey == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(cfg.Admin.APIKey)) != 1 {
			logger.Debugw("rejected admin request", "path", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		ctx := types.SetAdmin(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
