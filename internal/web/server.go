// Package web exposes the platform as a JSON API built on gin.
//
// Public endpoints serve the course catalogue, per-user progress, feedback
// and the completion certificate. Admin endpoints are gated by a passcode
// that is exchanged for a bearer token carried in the X-Admin-Token header.
package web

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit/internal/archive"
	"github.com/coursekit/coursekit/internal/cert"
	"github.com/coursekit/coursekit/internal/importer"
	"github.com/coursekit/coursekit/internal/quiz"
	"github.com/coursekit/coursekit/internal/store"
)

// AdminTokenHeader carries the admin session token on gated requests.
const AdminTokenHeader = "X-Admin-Token"

// Server wires the HTTP API to the store and the import pipeline.
type Server struct {
	store    *store.Store
	importer *importer.Importer
	quizzes  *quiz.Generator
	certs    *cert.Generator
	archiver *archive.Archiver
	log      zerolog.Logger

	mu         sync.Mutex
	adminToken string
}

// NewServer creates the API server around its collaborators.
func NewServer(st *store.Store, imp *importer.Importer, qg *quiz.Generator, cg *cert.Generator, ar *archive.Archiver, log zerolog.Logger) *Server {
	return &Server{
		store:    st,
		importer: imp,
		quizzes:  qg,
		certs:    cg,
		archiver: ar,
		log:      log.With().Str("component", "web").Logger(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Static("/static/resources", s.store.ResourceDir())

	r.GET("/api/site", s.handleSite)
	r.GET("/api/modules", s.handleListModules)
	r.GET("/api/modules/:id", s.handleGetModule)
	r.GET("/api/progress", s.handleAllProgress)
	r.POST("/api/modules/:id/progress", s.handleSetProgress)
	r.POST("/api/feedback", s.handleFeedback)
	r.GET("/api/certificate", s.handleCertificate)

	r.POST("/admin/login", s.handleLogin)

	admin := r.Group("/admin", s.requireAdmin)
	admin.GET("/config", s.handleGetConfig)
	admin.PUT("/config", s.handleSetConfig)
	admin.GET("/modules", s.handleAdminModules)
	admin.POST("/modules", s.handleAddModule)
	admin.PUT("/modules", s.handleReorderModules)
	admin.DELETE("/modules/:id", s.handleDeleteModule)
	admin.POST("/resources", s.handleUploadResource)
	admin.POST("/import", s.handleImportURL)
	admin.GET("/export", s.handleExportCourse)
	admin.POST("/import_course", s.handleImportCourse)

	return r
}

// handleLogin exchanges the admin passcode for a session token. When the
// passcode gate is disabled a token is issued unconditionally.
func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cfg := s.store.LoadConfig()
	if cfg.EnablePasscode &&
		subtle.ConstantTimeCompare([]byte(req.Passcode), []byte(cfg.AdminPasscode)) != 1 {
		s.log.Warn().Str("remote", c.ClientIP()).Msg("admin login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"success": false})
		return
	}

	token, err := newToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	s.mu.Lock()
	s.adminToken = token
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// requireAdmin gates admin routes on the token issued at login.
func (s *Server) requireAdmin(c *gin.Context) {
	s.mu.Lock()
	current := s.adminToken
	s.mu.Unlock()

	got := c.GetHeader(AdminTokenHeader)
	if current == "" || subtle.ConstantTimeCompare([]byte(got), []byte(current)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Next()
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// fingerprint identifies a user without accounts, hashing the client address
// and a few stable request headers.
func fingerprint(c *gin.Context) string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		c.ClientIP(),
		c.GetHeader("User-Agent"),
		c.GetHeader("Accept-Language"),
		c.GetHeader("Accept-Encoding"),
	)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
