package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-scraper/models"
)

// Archive stores every scraped post in a local SQLite database so past
// runs can be queried after their JSON files are deleted. Rows are
// keyed on permalink, so re-scraping the same post updates it in place.
type Archive struct {
	db    *sql.DB
	mutex sync.RWMutex
	log   *logrus.Logger
}

// NewArchive opens (or creates) the archive database at dbPath
func NewArchive(dbPath string, log *logrus.Logger) (*Archive, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping archive database: %w", err)
	}

	archive := &Archive{
		db:  db,
		log: log,
	}

	if err := archive.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return archive, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.db.Close()
}

// initTables creates the necessary tables if they don't exist
func (a *Archive) initTables() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	query := `
	CREATE TABLE IF NOT EXISTS posts (
		permalink TEXT PRIMARY KEY,
		subreddit TEXT NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		score INTEGER NOT NULL,
		num_comments INTEGER NOT NULL,
		created_utc REAL NOT NULL,
		created_date TEXT NOT NULL,
		url TEXT,
		selftext TEXT,
		flair TEXT,
		is_video BOOLEAN NOT NULL,
		scraped_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_subreddit ON posts(subreddit);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_utc DESC);
	`

	_, err := a.db.Exec(query)
	return err
}

// SavePosts upserts one subreddit's posts. Replies are not archived;
// they live only in the JSON output.
func (a *Archive) SavePosts(subreddit string, posts []models.Post) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT OR REPLACE INTO posts (
		permalink, subreddit, title, author, score, num_comments,
		created_utc, created_date, url, selftext, flair, is_video, scraped_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	for _, post := range posts {
		_, err := tx.Exec(
			query,
			post.Permalink, subreddit, post.Title, post.Author, post.Score,
			post.NumComments, post.CreatedUTC, post.CreatedDate, post.URL,
			post.SelfText, post.Flair, post.IsVideo, now,
		)
		if err != nil {
			return fmt.Errorf("failed to archive post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"subreddit": subreddit,
		"posts":     len(posts),
	}).Debug("Posts archived")

	return nil
}

// GetPostsBySubreddit returns archived posts for one subreddit, newest
// first
func (a *Archive) GetPostsBySubreddit(subreddit string) ([]models.Post, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	query := `
	SELECT permalink, title, author, score, num_comments,
		created_utc, created_date, url, selftext, flair, is_video
	FROM posts
	WHERE subreddit = ?
	ORDER BY created_utc DESC
	`

	rows, err := a.db.Query(query, subreddit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts for subreddit %s: %w", subreddit, err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		var post models.Post

		err := rows.Scan(
			&post.Permalink, &post.Title, &post.Author, &post.Score,
			&post.NumComments, &post.CreatedUTC, &post.CreatedDate,
			&post.URL, &post.SelfText, &post.Flair, &post.IsVideo,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		post.Replies = []models.Reply{}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return posts, nil
}

// CountPosts returns the total number of archived posts
func (a *Archive) CountPosts() (int, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	var count int
	err := a.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}

	return count, nil
}

// CountBySubreddit returns the archived post count per subreddit
func (a *Archive) CountBySubreddit() (map[string]int, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	query := `
	SELECT subreddit, COUNT(*) as post_count
	FROM posts
	GROUP BY subreddit
	ORDER BY post_count DESC
	`

	rows, err := a.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query subreddit counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var subreddit string
		var count int

		if err := rows.Scan(&subreddit, &count); err != nil {
			return nil, fmt.Errorf("failed to scan subreddit count: %w", err)
		}

		counts[subreddit] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}
