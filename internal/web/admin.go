package web

import (
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursekit/coursekit/internal/store"
)

const (
	// uploads larger than this are rejected outright
	maxUploadSize = 100 << 20

	defaultQuizMCQ       = 3
	defaultQuizTrueFalse = 2
)

// file extensions accepted by the resource upload endpoint.
var allowedUploadExts = map[string]bool{
	".txt": true, ".pdf": true, ".png": true, ".jpg": true,
	".jpeg": true, ".gif": true, ".zip": true, ".mp4": true,
}

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.LoadConfig())
}

func (s *Server) handleSetConfig(c *gin.Context) {
	var cfg store.SiteConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.store.SaveConfig(cfg); err != nil {
		s.log.Error().Err(err).Msg("failed to save config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleAdminModules(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.LoadCourses())
}

func (s *Server) handleAddModule(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	id, err := s.store.AddModule(store.Module{Title: req.Title, Description: req.Description}, req.Content)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to add module")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add module"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "module_id": id})
}

// handleReorderModules replaces the module list, which is how the dashboard
// persists a drag-and-drop reorder.
func (s *Server) handleReorderModules(c *gin.Context) {
	var req struct {
		Modules []store.Module `json:"modules"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.store.SaveCourses(store.Courses{Modules: req.Modules}); err != nil {
		s.log.Error().Err(err).Msg("failed to reorder modules")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save modules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDeleteModule(c *gin.Context) {
	id, _, ok := s.moduleFromPath(c)
	if !ok {
		return
	}
	if err := s.store.DeleteModule(id); err != nil {
		s.log.Error().Err(err).Int("module_id", id).Msg("failed to delete module")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete module"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleUploadResource(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no file selected"})
		return
	}
	if header.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file too large"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid file type"})
		return
	}

	filename := time.Now().Format("20060102_150405_") + secureFilename(header.Filename)
	dest := filepath.Join(s.store.ResourceDir(), filename)
	if err := c.SaveUploadedFile(header, dest); err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("failed to save upload")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save file"})
		return
	}

	s.log.Info().Str("filename", filename).Msg("resource uploaded")
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": filename,
		"url":      "/static/resources/" + filename,
	})
}

// handleImportURL scrapes a web page into a new module, optionally with
// downloaded images and a generated quiz.
func (s *Server) handleImportURL(c *gin.Context) {
	var req struct {
		URL           string `json:"url"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		IncludeImages bool   `json:"include_images"`
		GenerateQuiz  bool   `json:"generate_quiz"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	scraped, err := s.importer.Scrape(c.Request.Context(), req.URL, req.IncludeImages)
	if err != nil {
		s.log.Warn().Err(err).Str("url", req.URL).Msg("import failed")
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}

	module := store.Module{
		Title:          scraped.Title,
		Description:    req.Description,
		SourceURL:      scraped.URL,
		ImportedImages: scraped.Images,
	}
	if req.Title != "" {
		module.Title = req.Title
	}
	if req.GenerateQuiz {
		q := s.quizzes.Generate(scraped.Text, defaultQuizMCQ, defaultQuizTrueFalse)
		module.Quiz = &q
	}

	id, err := s.store.AddModule(module, scraped.HTML)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to store imported module")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store module"})
		return
	}

	s.log.Info().Int("module_id", id).Str("url", req.URL).Msg("module imported")
	c.JSON(http.StatusOK, gin.H{"success": true, "module_id": id, "title": module.Title})
}

func (s *Server) handleExportCourse(c *gin.Context) {
	data, filename, err := s.archiver.Export()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to export course")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export course"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/zip", data)
}

func (s *Server) handleImportCourse(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no file selected"})
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".zip") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid file type"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read file"})
		return
	}

	if err := s.archiver.Import(data); err != nil {
		s.log.Warn().Err(err).Msg("course import failed")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// secureFilename flattens a user-supplied filename to a safe basename.
func secureFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = unsafeFilenameRe.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	return base
}
