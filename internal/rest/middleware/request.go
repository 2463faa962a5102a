package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/notara/billing/internal/types"
)

// RequestIDMiddleware tags every request with a request id and lifts the
// caller identity set by the host application into the context.
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
	}
	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)

	if userID := c.GetHeader(types.HeaderUserID); userID != "" {
		ctx = context.WithValue(ctx, types.CtxUserID, userID)
	}

	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}
