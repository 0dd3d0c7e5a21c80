// Package api exposes the published backup state over HTTP for the
// dashboard and external consumers. It is strictly read-only.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bakmon/internal/store"
)

// Server serves the published-state read interface.
type Server struct {
	addr       string
	store      store.Store
	compliance store.ComplianceStore
	server     *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
	startTime  time.Time
}

// NewServer creates the HTTP server over the given stores.
func NewServer(addr string, st store.Store, compliance store.ComplianceStore) *Server {
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:       addr,
		store:      st,
		compliance: compliance,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/backups", s.handleList)
	r.GET("/api/backups/:vendor/:hostname", s.handleGet)
	r.GET("/api/compliance", s.handleComplianceList)
	r.GET("/api/compliance/:vendor/:hostname", s.handleComplianceGet)
	return r
}

// Start begins serving in the background.
func (s *Server) Start() error {
	r := s.routes()

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	states, err := s.store.List(c.Request.Context(), "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read published state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
		"hosts":  len(states),
	})
}

func (s *Server) handleList(c *gin.Context) {
	states, err := s.store.List(c.Request.Context(), c.Query("vendor"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read published state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": states})
}

func (s *Server) handleComplianceList(c *gin.Context) {
	records, err := s.compliance.ListCompliance(c.Request.Context(), c.Query("vendor"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read compliance records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"compliance": records})
}

// handleComplianceGet returns every compliance document kind held for
// one host; a host with no documents at all is a 404.
func (s *Server) handleComplianceGet(c *gin.Context) {
	hostname := c.Param("hostname")
	vendor := c.Param("vendor")

	documents := gin.H{}
	for _, kind := range []string{store.ComplianceOperationalStatus, store.ComplianceValidation} {
		rec, err := s.compliance.GetCompliance(c.Request.Context(), hostname, vendor, kind)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read compliance records"})
			return
		}
		documents[kind] = rec.Document
	}
	if len(documents) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no compliance records for host"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hostname":  hostname,
		"vendor":    vendor,
		"documents": documents,
	})
}

func (s *Server) handleGet(c *gin.Context) {
	st, err := s.store.Get(c.Request.Context(), c.Param("hostname"), c.Param("vendor"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no published state for host"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read published state"})
		return
	}
	c.JSON(http.StatusOK, st)
}
