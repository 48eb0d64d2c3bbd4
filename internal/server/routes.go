package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/protocol/schema"
	"github.com/tech-paws/vm/internal/protocol/wire"
	"github.com/tech-paws/vm/internal/vm"
)

type pointerRequest struct {
	Kind   string  `json:"kind"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Button uint8   `json:"button"`
}

type commandRequest struct {
	ID      uint64 `json:"id"`
	Channel string `json:"channel"`
	// Payload is raw payload bytes; encoding/json carries them as base64.
	Payload []byte `json:"payload"`
}

type commandInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Channel string `json:"channel"`
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"vm":      s.vm.Name(),
			"vm_id":   s.vm.ID(),
			"phase":   s.vm.Phase(),
			"version": "0.0.1",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/vm", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.vm.Stats())
	})

	r.GET("/commands", func(c *gin.Context) {
		all := schema.All()
		out := make([]commandInfo, 0, len(all))
		for _, info := range all {
			out = append(out, commandInfo{
				ID:      fmt.Sprintf("%#010x", info.ID),
				Name:    info.Name,
				Channel: info.Channel.String(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"commands": out})
	})

	r.GET("/modules", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"modules": s.vm.Modules()})
	})

	r.GET("/modules/:module/status", func(c *gin.Context) {
		status, ok, err := s.vm.ModuleStatus(c.Param("module"))
		if err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "module reports no status"})
			return
		}
		c.JSON(http.StatusOK, status)
	})

	r.POST("/modules/:module/pointer", s.push, func(c *gin.Context) {
		var req pointerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind, ok := parsePointerKind(req.Kind)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be start, move or end"})
			return
		}
		ev := vm.PointerEvent{Kind: kind, X: req.X, Y: req.Y, Button: vm.MouseButton(req.Button)}
		if err := s.vm.Bus().PushPointer(c.Param("module"), ev); err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	r.POST("/modules/:module/commands", s.push, func(c *gin.Context) {
		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		channel, err := protocol.ParseChannel(req.Channel)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := schema.Validate(req.ID, channel, uint64(len(req.Payload))); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payload := req.Payload
		err = s.vm.Bus().PushCommand(c.Param("module"), req.ID, channel, func(w *wire.Writer) {
			w.WriteBytes(payload)
		})
		if err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "command": schema.Name(req.ID)})
	})
}

func parsePointerKind(raw string) (vm.PointerKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "start":
		return vm.PointerStart, true
	case "move":
		return vm.PointerMove, true
	case "end":
		return vm.PointerEnd, true
	default:
		return 0, false
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, vm.ErrUnknownModule):
		return http.StatusNotFound
	case errors.Is(err, memory.ErrOutOfMemory):
		return http.StatusServiceUnavailable
	case errors.Is(err, protocol.ErrUnknownChannel):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
