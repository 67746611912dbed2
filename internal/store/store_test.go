package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	s.nowFunc = func() time.Time {
		return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	}
	return s
}

func TestStore_ConfigDefaults(t *testing.T) {
	s := newTestStore(t)

	cfg := s.LoadConfig()
	assert.Equal(t, "Tutorial Platform", cfg.SiteTitle)
	assert.Equal(t, "admin123", cfg.AdminPasscode)
	assert.True(t, cfg.EnablePasscode)
}

func TestStore_ConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)

	cfg := s.LoadConfig()
	cfg.SiteTitle = "Marine Biology 101"
	cfg.AdminPasscode = "hunter2"
	require.NoError(t, s.SaveConfig(cfg))

	loaded := s.LoadConfig()
	assert.Equal(t, "Marine Biology 101", loaded.SiteTitle)
	assert.Equal(t, "hunter2", loaded.AdminPasscode)
	// untouched fields keep their defaults
	assert.Equal(t, "#007bff", loaded.PrimaryColor)
}

func TestStore_AddModule(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddModule(Module{Title: "Intro"}, "<p>Hello</p>")
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	id, err = s.AddModule(Module{Title: "Advanced"}, "<p>More</p>")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	mod, err := s.GetModule(0)
	require.NoError(t, err)
	assert.Equal(t, "Intro", mod.Title)
	assert.Equal(t, "content_0.html", mod.ContentFile)

	content, err := s.ModuleContent(mod)
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello</p>", content)
}

func TestStore_AddModuleWithoutContent(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddModule(Module{Title: "Placeholder"}, "")
	require.NoError(t, err)

	mod, err := s.GetModule(id)
	require.NoError(t, err)
	assert.Empty(t, mod.ContentFile)

	content, err := s.ModuleContent(mod)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestStore_GetModuleOutOfRange(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetModule(0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetModule(-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteModule(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddModule(Module{Title: "First"}, "<p>1</p>")
	require.NoError(t, err)
	_, err = s.AddModule(Module{Title: "Second"}, "<p>2</p>")
	require.NoError(t, err)

	require.NoError(t, s.DeleteModule(0))

	courses := s.LoadCourses()
	require.Len(t, courses.Modules, 1)
	assert.Equal(t, "Second", courses.Modules[0].Title)

	// content file of the deleted module is gone
	_, err = os.Stat(filepath.Join(s.root, "data", "modules", "content_0.html"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.DeleteModule(5), ErrNotFound)
}

func TestStore_SaveCoursesReorder(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddModule(Module{Title: "A"}, "")
	require.NoError(t, err)
	_, err = s.AddModule(Module{Title: "B"}, "")
	require.NoError(t, err)

	courses := s.LoadCourses()
	courses.Modules[0], courses.Modules[1] = courses.Modules[1], courses.Modules[0]
	require.NoError(t, s.SaveCourses(courses))

	reloaded := s.LoadCourses()
	assert.Equal(t, "B", reloaded.Modules[0].Title)
	assert.Equal(t, "A", reloaded.Modules[1].Title)
}

func TestStore_ProgressDefaults(t *testing.T) {
	s := newTestStore(t)

	p := s.GetProgress("abc123", 0)
	assert.Equal(t, "abc123", p.UserFingerprint)
	assert.False(t, p.Completed)
	assert.Nil(t, p.QuizScore)
}

func TestStore_SetProgressPartialUpdate(t *testing.T) {
	s := newTestStore(t)

	completed := true
	p, err := s.SetProgress("abc123", 2, ProgressUpdate{Completed: &completed})
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.Equal(t, "2025-03-14T15:09:26Z", p.LastUpdated)

	score := 80
	notes := "review chapter 3"
	p, err = s.SetProgress("abc123", 2, ProgressUpdate{QuizScore: &score, Notes: &notes})
	require.NoError(t, err)
	// earlier fields survive a partial update
	assert.True(t, p.Completed)
	require.NotNil(t, p.QuizScore)
	assert.Equal(t, 80, *p.QuizScore)
	assert.Equal(t, "review chapter 3", p.Notes)

	stored := s.GetProgress("abc123", 2)
	assert.Equal(t, p, stored)
}

func TestStore_ProgressIsolatedPerUser(t *testing.T) {
	s := newTestStore(t)

	completed := true
	_, err := s.SetProgress("user-a", 0, ProgressUpdate{Completed: &completed})
	require.NoError(t, err)
	_, err = s.SetProgress("user-b", 1, ProgressUpdate{Completed: &completed})
	require.NoError(t, err)

	all := s.AllProgress("user-a")
	require.Len(t, all, 1)
	assert.True(t, all[0].Completed)

	assert.False(t, s.GetProgress("user-b", 0).Completed)
}

func TestStore_AppendFeedback(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendFeedback(FeedbackEntry{ModuleID: 0, Rating: 5, Comment: "great"}))
	require.NoError(t, s.AppendFeedback(FeedbackEntry{ModuleID: 0, Rating: 3}))

	var feedback []FeedbackEntry
	require.NoError(t, readJSON(s.feedbackPath(), &feedback))
	require.Len(t, feedback, 2)
	assert.Equal(t, 5, feedback[0].Rating)
	assert.Equal(t, "great", feedback[0].Comment)
	assert.Equal(t, "2025-03-14T15:09:26Z", feedback[0].Timestamp)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddModule(Module{Title: "X"}, "<p>x</p>")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.root, "data"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
