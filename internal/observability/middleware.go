package observability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// routeLabel keeps unmatched paths out of metric labels.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// RequestLogger logs one line per debug request. Polled reads log at debug,
// command pushes at info, failures at warn or error.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = logger.Error()
		case status >= http.StatusBadRequest:
			ev = logger.Warn()
		case c.Request.Method == http.MethodGet:
			ev = logger.Debug()
		default:
			ev = logger.Info()
		}
		if module := c.Param("module"); module != "" {
			ev = ev.Str("module", module)
		}
		ev.Str("method", c.Request.Method).
			Str("route", routeLabel(c)).
			Int("status", status).
			Dur("took", time.Since(start)).
			Str("remote", c.ClientIP()).
			Msg("debug request")
	}
}

func RequestMetricsMiddleware(vm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPRequest(vm, c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}
