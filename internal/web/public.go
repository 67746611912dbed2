package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coursekit/coursekit/internal/store"
)

// moduleSummary is the catalogue view of a module, without its content.
type moduleSummary struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	HasQuiz     bool   `json:"has_quiz"`
}

// handleSite returns the public site appearance settings. The admin passcode
// never leaves the server.
func (s *Server) handleSite(c *gin.Context) {
	cfg := s.store.LoadConfig()
	c.JSON(http.StatusOK, gin.H{
		"site_title":       cfg.SiteTitle,
		"site_description": cfg.SiteDescription,
		"primary_color":    cfg.PrimaryColor,
		"secondary_color":  cfg.SecondaryColor,
		"text_color":       cfg.TextColor,
		"font_size":        cfg.FontSize,
		"font_family":      cfg.FontFamily,
	})
}

func (s *Server) handleListModules(c *gin.Context) {
	courses := s.store.LoadCourses()
	summaries := make([]moduleSummary, 0, len(courses.Modules))
	for i, m := range courses.Modules {
		summaries = append(summaries, moduleSummary{
			ID:          i,
			Title:       m.Title,
			Description: m.Description,
			HasQuiz:     m.Quiz != nil && len(m.Quiz.Questions) > 0,
		})
	}
	c.JSON(http.StatusOK, gin.H{"modules": summaries})
}

func (s *Server) handleGetModule(c *gin.Context) {
	id, module, ok := s.moduleFromPath(c)
	if !ok {
		return
	}

	content, err := s.store.ModuleContent(module)
	if err != nil {
		s.log.Error().Err(err).Int("module_id", id).Msg("failed to read module content")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read module content"})
		return
	}

	total := len(s.store.LoadCourses().Modules)
	c.JSON(http.StatusOK, gin.H{
		"id":            id,
		"module":        module,
		"content":       content,
		"total_modules": total,
		"progress":      s.store.GetProgress(fingerprint(c), id),
	})
}

func (s *Server) handleAllProgress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"progress": s.store.AllProgress(fingerprint(c))})
}

func (s *Server) handleSetProgress(c *gin.Context) {
	id, _, ok := s.moduleFromPath(c)
	if !ok {
		return
	}

	var update store.ProgressUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	progress, err := s.store.SetProgress(fingerprint(c), id, update)
	if err != nil {
		s.log.Error().Err(err).Int("module_id", id).Msg("failed to save progress")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "progress": progress})
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req struct {
		ModuleID int    `json:"module_id"`
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry := store.FeedbackEntry{
		ModuleID:  req.ModuleID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		UserAgent: c.GetHeader("User-Agent"),
		IPAddress: c.ClientIP(),
	}
	if err := s.store.AppendFeedback(entry); err != nil {
		s.log.Error().Err(err).Msg("failed to save feedback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save feedback"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCertificate issues the completion certificate once every module is
// recorded as completed for the requesting user.
func (s *Server) handleCertificate(c *gin.Context) {
	courses := s.store.LoadCourses()
	if len(courses.Modules) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course has no modules"})
		return
	}

	progress := s.store.AllProgress(fingerprint(c))
	for id := range courses.Modules {
		if !progress[id].Completed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "all modules must be completed to generate a certificate"})
			return
		}
	}

	cfg := s.store.LoadConfig()
	pdf, filename, err := s.certs.Generate(cfg.SiteTitle)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate certificate")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate certificate"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// moduleFromPath resolves the :id path parameter to an existing module,
// answering the request itself when that fails.
func (s *Server) moduleFromPath(c *gin.Context) (int, store.Module, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid module id"})
		return 0, store.Module{}, false
	}
	module, err := s.store.GetModule(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "module not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load module"})
		}
		return 0, store.Module{}, false
	}
	return id, module, true
}
