package httpapi

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
)

// parseIDParam parses a UUID from a request path parameter. Grounded on
// the teacher's internal/handler/handler_utils.go.
func parseIDParam(c *app.RequestContext, paramName string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(paramName))
}
