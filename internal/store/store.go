package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coursekit/coursekit/internal/quiz"
)

// ErrNotFound is returned for module IDs outside the course list.
var ErrNotFound = errors.New("module not found")

// SiteConfig is the admin-editable site appearance and access configuration,
// persisted as config.json.
type SiteConfig struct {
	SiteTitle       string `json:"site_title"`
	SiteDescription string `json:"site_description"`
	PrimaryColor    string `json:"primary_color"`
	SecondaryColor  string `json:"secondary_color"`
	TextColor       string `json:"text_color"`
	FontSize        string `json:"font_size"`
	FontFamily      string `json:"font_family"`
	AdminPasscode   string `json:"admin_passcode"`
	EnablePasscode  bool   `json:"enable_passcode"`
}

// DefaultSiteConfig is what a fresh installation starts with.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		SiteTitle:       "Tutorial Platform",
		SiteDescription: "Learn at your own pace",
		PrimaryColor:    "#007bff",
		SecondaryColor:  "#6c757d",
		TextColor:       "#333333",
		FontSize:        "16px",
		FontFamily:      "Arial, sans-serif",
		AdminPasscode:   "admin123",
		EnablePasscode:  true,
	}
}

// Module is one course module record. Content lives in a separate HTML file
// referenced by ContentFile; imported modules carry their source URL, image
// list and optional generated quiz.
type Module struct {
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	ContentFile    string     `json:"content_file,omitempty"`
	SourceURL      string     `json:"source_url,omitempty"`
	ImportedImages []string   `json:"imported_images,omitempty"`
	Quiz           *quiz.Quiz `json:"quiz,omitempty"`
}

// Courses is the ordered module list, persisted as data/courses.json.
type Courses struct {
	Modules []Module `json:"modules"`
}

// Progress tracks one user's state on one module, keyed by
// "<fingerprint>_<moduleID>" in data/progress.json.
type Progress struct {
	UserFingerprint string `json:"user_fingerprint"`
	ModuleID        int    `json:"module_id"`
	Completed       bool   `json:"completed"`
	QuizScore       *int   `json:"quiz_score"`
	Notes           string `json:"notes"`
	Bookmarked      bool   `json:"bookmarked"`
	LastUpdated     string `json:"last_updated"`
}

// ProgressUpdate carries the fields a progress write may change; nil fields
// are left untouched.
type ProgressUpdate struct {
	Completed  *bool   `json:"completed"`
	QuizScore  *int    `json:"quiz_score"`
	Notes      *string `json:"notes"`
	Bookmarked *bool   `json:"bookmarked"`
}

// FeedbackEntry is one submitted module rating, appended to
// data/feedback.json.
type FeedbackEntry struct {
	ModuleID  int    `json:"module_id"`
	Timestamp string `json:"timestamp"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`
}

// Store is a JSON-file data store rooted at a base directory. All mutating
// operations are serialized by a single mutex and files are written through a
// temp-file rename so a crash never leaves a half-written record.
type Store struct {
	root    string
	mu      sync.Mutex
	nowFunc func() time.Time
}

// New creates a store rooted at dir and ensures its directory layout exists.
func New(dir string) (*Store, error) {
	s := &Store{root: dir, nowFunc: time.Now}
	for _, sub := range []string{"data", filepath.Join("data", "modules"), filepath.Join("static", "resources")} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return s, nil
}

// ResourceDir is where downloaded and uploaded resources live; the web layer
// serves it as static files.
func (s *Store) ResourceDir() string {
	return filepath.Join(s.root, "static", "resources")
}

func (s *Store) configPath() string   { return filepath.Join(s.root, "config.json") }
func (s *Store) coursesPath() string  { return filepath.Join(s.root, "data", "courses.json") }
func (s *Store) progressPath() string { return filepath.Join(s.root, "data", "progress.json") }
func (s *Store) feedbackPath() string { return filepath.Join(s.root, "data", "feedback.json") }
func (s *Store) modulesDir() string   { return filepath.Join(s.root, "data", "modules") }

// LoadConfig returns the persisted site configuration, or the defaults when
// none has been saved yet.
func (s *Store) LoadConfig() SiteConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := DefaultSiteConfig()
	_ = readJSON(s.configPath(), &cfg)
	return cfg
}

// SaveConfig persists the site configuration.
func (s *Store) SaveConfig(cfg SiteConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.configPath(), cfg)
}

// LoadCourses returns the course list; missing file means an empty course.
func (s *Store) LoadCourses() Courses {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCoursesLocked()
}

func (s *Store) loadCoursesLocked() Courses {
	var courses Courses
	if err := readJSON(s.coursesPath(), &courses); err != nil {
		return Courses{Modules: []Module{}}
	}
	if courses.Modules == nil {
		courses.Modules = []Module{}
	}
	return courses
}

// SaveCourses replaces the whole course list, used by the reorder operation.
func (s *Store) SaveCourses(courses Courses) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.coursesPath(), courses)
}

// GetModule returns the module at id.
func (s *Store) GetModule(id int) (Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	courses := s.loadCoursesLocked()
	if id < 0 || id >= len(courses.Modules) {
		return Module{}, ErrNotFound
	}
	return courses.Modules[id], nil
}

// AddModule writes the module content to its own HTML file and appends the
// record to the course list, returning the new module's ID.
func (s *Store) AddModule(module Module, contentHTML string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	courses := s.loadCoursesLocked()
	if contentHTML != "" {
		filename := fmt.Sprintf("content_%d.html", len(courses.Modules))
		if err := os.WriteFile(filepath.Join(s.modulesDir(), filename), []byte(contentHTML), 0o644); err != nil {
			return 0, fmt.Errorf("failed to write module content: %w", err)
		}
		module.ContentFile = filename
	}

	courses.Modules = append(courses.Modules, module)
	if err := writeJSON(s.coursesPath(), courses); err != nil {
		return 0, err
	}
	return len(courses.Modules) - 1, nil
}

// DeleteModule removes the module record and its content file.
func (s *Store) DeleteModule(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	courses := s.loadCoursesLocked()
	if id < 0 || id >= len(courses.Modules) {
		return ErrNotFound
	}

	if f := courses.Modules[id].ContentFile; f != "" {
		// best effort, a missing content file should not block deletion
		_ = os.Remove(filepath.Join(s.modulesDir(), filepath.Base(f)))
	}
	courses.Modules = append(courses.Modules[:id], courses.Modules[id+1:]...)
	return writeJSON(s.coursesPath(), courses)
}

// ModuleContent reads the HTML content file of a module.
func (s *Store) ModuleContent(module Module) (string, error) {
	if module.ContentFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Join(s.modulesDir(), filepath.Base(module.ContentFile)))
	if err != nil {
		return "", fmt.Errorf("failed to read module content: %w", err)
	}
	return string(data), nil
}

// GetProgress returns the stored progress for a user and module, or a zero
// record when nothing was saved yet.
func (s *Store) GetProgress(fingerprint string, moduleID int) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadProgressLocked()
	if p, ok := all[progressKey(fingerprint, moduleID)]; ok {
		return p
	}
	return Progress{UserFingerprint: fingerprint, ModuleID: moduleID}
}

// SetProgress applies a partial update to a user's module progress.
func (s *Store) SetProgress(fingerprint string, moduleID int, update ProgressUpdate) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadProgressLocked()
	key := progressKey(fingerprint, moduleID)
	p, ok := all[key]
	if !ok {
		p = Progress{UserFingerprint: fingerprint, ModuleID: moduleID}
	}

	if update.Completed != nil {
		p.Completed = *update.Completed
	}
	if update.QuizScore != nil {
		p.QuizScore = update.QuizScore
	}
	if update.Notes != nil {
		p.Notes = *update.Notes
	}
	if update.Bookmarked != nil {
		p.Bookmarked = *update.Bookmarked
	}
	p.LastUpdated = s.nowFunc().Format(time.RFC3339)

	all[key] = p
	if err := writeJSON(s.progressPath(), all); err != nil {
		return Progress{}, err
	}
	return p, nil
}

// AllProgress returns every stored progress record of one user, keyed by
// module ID.
func (s *Store) AllProgress(fingerprint string) map[int]Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[int]Progress)
	for _, p := range s.loadProgressLocked() {
		if p.UserFingerprint == fingerprint {
			result[p.ModuleID] = p
		}
	}
	return result
}

func (s *Store) loadProgressLocked() map[string]Progress {
	all := make(map[string]Progress)
	_ = readJSON(s.progressPath(), &all)
	return all
}

// AppendFeedback stamps and appends a feedback entry.
func (s *Store) AppendFeedback(entry FeedbackEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var feedback []FeedbackEntry
	_ = readJSON(s.feedbackPath(), &feedback)

	entry.Timestamp = s.nowFunc().Format(time.RFC3339)
	feedback = append(feedback, entry)
	return writeJSON(s.feedbackPath(), feedback)
}

func progressKey(fingerprint string, moduleID int) string {
	return fmt.Sprintf("%s_%d", fingerprint, moduleID)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON writes via a temp file and rename so readers never observe a
// partially written document
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
