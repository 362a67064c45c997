package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-scraper/models"
)

// WriteError represents a failure to produce an output file
type WriteError struct {
	Subreddit string
	Path      string
	Err       error
}

func (e *WriteError) Error() string {
	if e.Subreddit != "" {
		return fmt.Sprintf("write output for r/%s to %s failed: %v", e.Subreddit, e.Path, e.Err)
	}
	return fmt.Sprintf("write output to %s failed: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer serializes post lists to JSON files. All files from one run
// share a single timestamp so a run's outputs sort together.
type Writer struct {
	outputDir string
	timestamp string
	log       *logrus.Logger
}

// NewWriter creates a writer rooted at outputDir. now stamps every
// filename produced by this writer.
func NewWriter(outputDir string, now time.Time, log *logrus.Logger) *Writer {
	if outputDir == "" {
		outputDir = "results"
	}
	return &Writer{
		outputDir: outputDir,
		timestamp: now.Format("20060102_150405"),
		log:       log,
	}
}

// SaveChannel writes one subreddit's posts as an indented JSON array
// and returns the path written
func (w *Writer) SaveChannel(subreddit string, posts []models.Post) (string, error) {
	filename := filepath.Join(w.outputDir, fmt.Sprintf("%s_posts_%s.json", subreddit, w.timestamp))

	if err := w.writeJSON(subreddit, filename, posts); err != nil {
		return "", err
	}

	w.log.WithFields(logrus.Fields{
		"subreddit": subreddit,
		"file":      filename,
		"posts":     len(posts),
	}).Info("Posts saved")

	return filename, nil
}

// SaveCombined writes all channels' posts into one JSON object keyed by
// subreddit. An empty filename picks a timestamped default inside the
// output directory; an explicit filename is used as given.
func (w *Writer) SaveCombined(filename string, posts map[string][]models.Post) (string, error) {
	if filename == "" {
		filename = filepath.Join(w.outputDir, fmt.Sprintf("reddit_posts_%s.json", w.timestamp))
	}

	if err := w.writeJSON("", filename, posts); err != nil {
		return "", err
	}

	w.log.WithField("file", filename).Info("Combined posts saved")
	return filename, nil
}

// writeJSON marshals v and writes it below the output directory,
// creating the directory on first use
func (w *Writer) writeJSON(subreddit, filename string, v any) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return &WriteError{Subreddit: subreddit, Path: filename, Err: fmt.Errorf("failed to create output directory: %w", err)}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &WriteError{Subreddit: subreddit, Path: filename, Err: fmt.Errorf("failed to marshal posts: %w", err)}
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return &WriteError{Subreddit: subreddit, Path: filename, Err: fmt.Errorf("failed to write file: %w", err)}
	}

	return nil
}

// DeleteResults removes all top-level files in dir, leaving
// subdirectories alone. A missing directory is not an error.
func DeleteResults(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read output directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}

	return nil
}
