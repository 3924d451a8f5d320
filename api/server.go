// Package api serves the protocol schedule over HTTP for operators and
// tooling: which rules apply at a height, whether a header pair passes them,
// and the prometheus counters of the schedule.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-forks/bft"
	"github.com/rony4d/go-opera-forks/protocol"
	"github.com/rony4d/go-opera-forks/validation"
)

// RulesResponse is returned by GET /rules/:height.
type RulesResponse struct {
	Block    idx.Block `json:"block"`
	EraStart idx.Block `json:"eraStart"`
	Options  string    `json:"options"`
	Rules    []string  `json:"rules"`
}

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	Header *types.Header `json:"header"`
	Parent *types.Header `json:"parent"`
}

// Failure is one violated rule.
type Failure struct {
	Rule  string `json:"rule"`
	Error string `json:"error"`
}

// ValidateResponse is returned by POST /validate. Failures keep rule order;
// the first one is the authoritative rejection reason.
type ValidateResponse struct {
	Block    idx.Block `json:"block"`
	Valid    bool      `json:"valid"`
	Failures []Failure `json:"failures,omitempty"`
}

// Server handles HTTP requests.
type Server struct {
	router   *gin.Engine
	schedule *protocol.Schedule[bft.ConfigOptions]
	log      logrus.FieldLogger
}

// NewServer creates a server. gatherer backs GET /metrics and may be nil.
func NewServer(schedule *protocol.Schedule[bft.ConfigOptions], gatherer prometheus.Gatherer, log logrus.FieldLogger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	s := &Server{router: r, schedule: schedule, log: log}
	s.router.GET("/rules/:height", s.handleRules)
	s.router.POST("/validate", s.handleValidate)
	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRules(c *gin.Context) {
	height, err := strconv.ParseUint(c.Param("height"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid block height"})
		return
	}
	block := idx.Block(height)
	set, err := s.schedule.RulesetFor(block)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	era := s.schedule.Era(block)
	c.JSON(http.StatusOK, RulesResponse{
		Block:    block,
		EraStart: era.Block,
		Options:  era.Options.String(),
		Rules:    set.Names(),
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.schedule.Validate(req.Header, req.Parent)
	switch {
	case errors.Is(err, validation.ErrNilHeader), errors.Is(err, validation.ErrNoBlockNumber):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := ValidateResponse{Block: res.Block, Valid: res.Valid()}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, Failure{Rule: f.Rule, Error: f.Err.Error()})
	}
	c.JSON(http.StatusOK, resp)
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.log.WithField("addr", addr).Info("HTTP server started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info("HTTP server stopped")
		return nil
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start),
		}).Debug("HTTP request")
	}
}
