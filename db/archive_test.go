package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/reddit-scraper/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	archive, err := NewArchive(filepath.Join(t.TempDir(), "archive.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive
}

func post(permalink, title string, createdUTC float64) models.Post {
	return models.Post{
		Title:       title,
		Author:      "user1",
		Score:       10,
		NumComments: 2,
		CreatedUTC:  createdUTC,
		CreatedDate: "2023-11-14 22:13:20",
		Permalink:   permalink,
		Replies:     []models.Reply{},
	}
}

func TestSaveAndQueryPosts(t *testing.T) {
	archive := newTestArchive(t)

	posts := []models.Post{
		post("https://reddit.com/r/Python/comments/p1/", "Older", 1700000000),
		post("https://reddit.com/r/Python/comments/p2/", "Newer", 1700100000),
	}
	require.NoError(t, archive.SavePosts("Python", posts))

	got, err := archive.GetPostsBySubreddit("Python")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// newest first
	assert.Equal(t, "Newer", got[0].Title)
	assert.Equal(t, "Older", got[1].Title)
	assert.NotNil(t, got[0].Replies)
}

func TestSavePostsUpsert(t *testing.T) {
	archive := newTestArchive(t)

	p := post("https://reddit.com/r/Python/comments/p1/", "Original Title", 1700000000)
	require.NoError(t, archive.SavePosts("Python", []models.Post{p}))

	// re-scraping the same permalink updates in place
	p.Title = "Updated Title"
	p.Score = 99
	require.NoError(t, archive.SavePosts("Python", []models.Post{p}))

	count, err := archive.CountPosts()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := archive.GetPostsBySubreddit("Python")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Updated Title", got[0].Title)
	assert.Equal(t, 99, got[0].Score)
}

func TestCountBySubreddit(t *testing.T) {
	archive := newTestArchive(t)

	require.NoError(t, archive.SavePosts("Python", []models.Post{
		post("https://reddit.com/r/Python/comments/p1/", "One", 1700000000),
		post("https://reddit.com/r/Python/comments/p2/", "Two", 1700000001),
	}))
	require.NoError(t, archive.SavePosts("golang", []models.Post{
		post("https://reddit.com/r/golang/comments/g1/", "Three", 1700000002),
	}))

	counts, err := archive.CountBySubreddit()
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Python": 2, "golang": 1}, counts)

	total, err := archive.CountPosts()
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestGetPostsUnknownSubreddit(t *testing.T) {
	archive := newTestArchive(t)

	got, err := archive.GetPostsBySubreddit("nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
