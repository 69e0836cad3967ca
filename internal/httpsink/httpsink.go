// Package httpsink is the reference HTTP event sink (spec.md §4.J): a
// thin gin router exposing the node catalog, static validation, and a
// workflow-execute endpoint that relays the engine's event stream over
// SSE. Grounded on the teacher's backend/internal/api security/CORS/
// logging middleware (security.go) for router setup and on its
// websocket.go client-registry pattern for broadcasting driver events
// to a streaming HTTP response without blocking execution on a slow
// client.
package httpsink

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/citadel-agent/flowgraph/internal/engine"
	"github.com/citadel-agent/flowgraph/internal/observability"
	"github.com/citadel-agent/flowgraph/internal/plugins"
	"github.com/citadel-agent/flowgraph/internal/registry"
	"github.com/citadel-agent/flowgraph/internal/types"
	"github.com/citadel-agent/flowgraph/internal/validate"
)

// Server wires a registry and logger to a gin router.
type Server struct {
	reg     *registry.Registry
	log     zerolog.Logger
	metrics *observability.Metrics
	tracing *observability.Tracing
	plugins *plugins.Manager
}

// New builds a Server. metrics, tracing, and mgr may each be nil, in
// which case the feature they back (metrics endpoint, span creation,
// plugin activation routes) is simply not exposed.
func New(reg *registry.Registry, log zerolog.Logger, metrics *observability.Metrics, tracing *observability.Tracing, mgr *plugins.Manager) *Server {
	return &Server{reg: reg, log: log, metrics: metrics, tracing: tracing, plugins: mgr}
}

// Router builds the gin.Engine exposing this module's HTTP surface.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(securityHeaders())
	r.Use(cors(allowedOrigins))
	r.Use(requestLog(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "flowgraph"})
	})
	r.GET("/nodes", s.listNodes)
	r.POST("/workflows/validate", s.validateWorkflow)
	r.POST("/workflows/execute", s.executeWorkflow)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	if s.plugins != nil {
		r.POST("/plugins/:id/activate", s.activatePlugin)
		r.POST("/plugins/:id/deactivate", s.deactivatePlugin)
	}

	return r
}

// securityHeaders sets the fixed response headers the reference sink
// always returns, mirroring the teacher's SecurityMiddleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}

// cors mirrors the teacher's CORSMiddleware, restricted to the methods
// this router actually serves.
func cors(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if originAllowed(origin, allowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
		if strings.HasPrefix(a, "*.") && strings.HasSuffix(origin, a[1:]) {
			return true
		}
	}
	return false
}

// requestLog logs each request's method, path, and status after it
// completes, mirroring the teacher's RequestLoggingMiddleware.
func requestLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

func (s *Server) listNodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": s.reg.All()})
}

// activatePlugin and deactivatePlugin expose internal/plugins.Manager's
// lifecycle operations (spec.md §4.D) to flowctl's activate/deactivate
// subcommands.
func (s *Server) activatePlugin(c *gin.Context) {
	id := c.Param("id")
	if err := s.plugins.Activate(id); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "state": "active"})
}

func (s *Server) deactivatePlugin(c *gin.Context) {
	id := c.Param("id")
	if err := s.plugins.Deactivate(id); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "state": "inactive"})
}

type issueWire struct {
	Level   validate.Level `json:"level"`
	NodeID  string         `json:"node_id,omitempty"`
	Message string         `json:"message"`
}

func (s *Server) validateWorkflow(c *gin.Context) {
	var wf types.Workflow
	if err := c.ShouldBindJSON(&wf); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issues := validate.Validate(&wf, s.reg)
	wire := make([]issueWire, len(issues))
	for i, iss := range issues {
		wire[i] = issueWire{Level: iss.Level, NodeID: iss.NodeID, Message: iss.Message}
	}
	c.JSON(http.StatusOK, gin.H{"issues": wire})
}

type executeRequest struct {
	Workflow    types.Workflow `json:"workflow"`
	Breakpoints []string       `json:"breakpoints,omitempty"`
}

// executeWorkflow runs the posted workflow to completion on a
// dedicated goroutine and relays its event stream over SSE as it
// happens, the HTTP analogue of the teacher's WebSocket broadcast
// channel (websocket.go): the driver's ChanSink never blocks on a slow
// client, it drops events instead.
func (s *Server) executeWorkflow(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, iss := range validate.Validate(&req.Workflow, s.reg) {
		if iss.Level == validate.Error {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "workflow failed validation", "node_id": iss.NodeID, "message": iss.Message})
			return
		}
	}

	runID := uuid.New().String()
	runLog := s.log.With().Str("execution_id", runID).Logger()

	events := make(engine.ChanSink, 64)
	eng := engine.New(s.reg, runLog, events, s.tracing, s.metrics)
	if len(req.Breakpoints) > 0 {
		eng.SetBreakpoints(req.Breakpoints...)
	}

	runErr := make(chan error, 1)
	started := time.Now()
	go func() {
		runErr <- eng.Run(&req.Workflow)
		close(events)
	}()

	c.Header("X-Execution-Id", runID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	if err := <-runErr; err != nil && s.metrics != nil {
		s.metrics.RecordWorkflowExecution(req.Workflow.Name, "failed", time.Since(started))
	} else if s.metrics != nil {
		s.metrics.RecordWorkflowExecution(req.Workflow.Name, "completed", time.Since(started))
	}
}

// Addr formats host/port into a net/http-style listen address.
func Addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
