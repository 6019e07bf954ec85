// Package mock implements a stand-in for the Cortex backend. It serves a few
// healthy read endpoints and a set of failing ones that reproduce the
// failures the console has to present: client rejections, upstream outages,
// unstructured gateway errors and injected chaos faults.
package mock

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/nexus-station/cortex/internal/errors"
	"github.com/nexus-station/cortex/internal/logging"
)

// Options configures the mock backend.
type Options struct {
	// ChaosRate is the probability in [0,1] that a healthy endpoint fails with
	// an injected fault instead.
	ChaosRate float64
	// Registerer receives the request metrics. Nil uses a private registry.
	Registerer prometheus.Registerer
	// Gatherer backs /metrics. Nil serves the private registry.
	Gatherer prometheus.Gatherer
}

// Server routes requests for the mock backend.
type Server struct {
	engine   *gin.Engine
	logger   *logging.Logger
	chaos    float64
	roll     func() float64
	requests *prometheus.CounterVec
}

type crewMember struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Rank      string `json:"rank"`
	SectionID int    `json:"sectionId"`
}

type section struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

var (
	roster = []crewMember{
		{ID: 1, Name: "Ada Okafor", Rank: "Commander", SectionID: 1},
		{ID: 2, Name: "Lin Varga", Rank: "Engineer", SectionID: 2},
		{ID: 3, Name: "Sol Mendes", Rank: "Medic", SectionID: 3},
	}
	sections = []section{
		{ID: 1, Name: "Command Deck", Capacity: 4},
		{ID: 2, Name: "Engineering", Capacity: 6},
		{ID: 3, Name: "Medical Bay", Capacity: 3},
	}
)

// NewServer builds the mock backend.
func NewServer(opts Options, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger().WithComponent("mock")
	}

	registerer, gatherer := opts.Registerer, opts.Gatherer
	if registerer == nil || gatherer == nil {
		registry := prometheus.NewRegistry()
		registerer, gatherer = registry, registry
	}

	s := &Server{
		engine: gin.New(),
		logger: logger,
		chaos:  opts.ChaosRate,
		roll:   rand.Float64,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cortex_mock",
			Name:      "requests_total",
			Help:      "Requests served by the mock backend, by route and status code.",
		}, []string{"route", "code"}),
	}
	registerer.MustRegister(s.requests)

	r := s.engine
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.GET("/dashboard/status", s.dashboardHandler)
	api.GET("/crew", s.injectChaos(), s.crewHandler)
	api.GET("/crew/sections", s.injectChaos(), s.sectionsHandler)
	api.GET("/crew/relocate", s.relocateHandler)
	api.GET("/inventory/consume", s.consumeHandler)
	api.GET("/power/grid", s.powerHandler)
	api.GET("/life-support", s.lifeSupportHandler)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// requestLogger tags every response with a trace ID, then logs and counts it.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		traceID := requestTraceID(c.Request)
		c.Header(errors.HeaderTraceID, traceID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.logger.Info("Request handled",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"trace_id", traceID,
			"duration", time.Since(start))
	}
}

// injectChaos fails the request with an injected fault at the configured rate.
func (s *Server) injectChaos() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.chaos > 0 && s.roll() < s.chaos {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"message": "Request failed: [Chaos Engineering] Simulated failure on " + c.Request.URL.Path,
			})
			return
		}
		c.Next()
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (s *Server) dashboardHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"crew":        len(roster),
		"sections":    len(sections),
		"powerStatus": "NOMINAL",
	})
}

func (s *Server) crewHandler(c *gin.Context) {
	c.JSON(http.StatusOK, roster)
}

func (s *Server) sectionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, sections)
}

// relocateHandler rejects every relocation the way the crew service rejects
// a move into a full or unknown section.
func (s *Server) relocateHandler(c *gin.Context) {
	if c.Query("section") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Target section is required"})
		return
	}
	c.JSON(http.StatusConflict, gin.H{"message": "Invalid section"})
}

func (s *Server) consumeHandler(c *gin.Context) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error": gin.H{"message": "Insufficient stock for requested quantity"},
	})
}

func (s *Server) powerHandler(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Upstream timeout"})
}

func (s *Server) lifeSupportHandler(c *gin.Context) {
	c.String(http.StatusBadGateway, "upstream connect error or disconnect/reset before headers")
}

// requestTraceID continues the caller's W3C trace when one is propagated and
// mints a fresh ID otherwise.
func requestTraceID(r *http.Request) string {
	ctx := propagation.TraceContext{}.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	if sc := trace.SpanContextFromContext(ctx); sc.TraceID().IsValid() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}
