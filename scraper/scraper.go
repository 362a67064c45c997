package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-scraper/api"
	"github.com/brettboylen/reddit-scraper/db"
	"github.com/brettboylen/reddit-scraper/models"
	"github.com/brettboylen/reddit-scraper/output"
	"github.com/brettboylen/reddit-scraper/utils"
)

const (
	postKind    = "t3"
	commentKind = "t1"

	// created_date format, always UTC
	dateLayout = "2006-01-02 15:04:05"
)

// Scraper runs the fetch -> normalize -> filter -> write pipeline over
// the configured subreddits, one at a time. A failure in one subreddit
// never stops the others.
type Scraper struct {
	client  *api.Client
	writer  *output.Writer
	archive *db.Archive // nil when archiving is disabled
	config  *utils.Config
	log     *logrus.Logger
}

// New creates a scraper. archive may be nil.
func New(client *api.Client, writer *output.Writer, archive *db.Archive, config *utils.Config, log *logrus.Logger) *Scraper {
	return &Scraper{
		client:  client,
		writer:  writer,
		archive: archive,
		config:  config,
		log:     log,
	}
}

// Run processes every configured subreddit in order and returns one
// result per subreddit. The returned error is non-nil only when the
// combined output file cannot be written.
func (s *Scraper) Run(ctx context.Context) (models.RunSummary, error) {
	summary := models.RunSummary{
		Results: make([]models.ChannelResult, 0, len(s.config.Subreddits)),
	}

	var combined map[string][]models.Post
	if s.config.Combined {
		combined = make(map[string][]models.Post, len(s.config.Subreddits))
	}

	for _, subreddit := range s.config.Subreddits {
		posts, result := s.processChannel(ctx, subreddit)

		if result.Succeeded() {
			summary.TotalPosts += result.PostCount
			if combined != nil {
				combined[subreddit] = posts
			}
			s.log.WithFields(logrus.Fields{
				"subreddit":   subreddit,
				"post_count":  result.PostCount,
				"output_file": result.OutputFile,
			}).Info("Subreddit processed")
		} else {
			s.log.WithError(result.Err).WithField("subreddit", subreddit).Error("Subreddit failed, continuing with remaining")
			// failed channels still appear in the combined output, empty
			if combined != nil {
				combined[subreddit] = []models.Post{}
			}
		}

		summary.Results = append(summary.Results, result)
	}

	if combined != nil {
		filename, err := s.writer.SaveCombined(s.config.CombinedFilename, combined)
		if err != nil {
			s.log.WithError(err).Error("Failed to write combined output")
			return summary, err
		}
		s.log.WithField("file", filename).Info("Combined output written")
	}

	s.log.WithFields(logrus.Fields{
		"succeeded":   summary.Succeeded(),
		"failed":      summary.Failed(),
		"total_posts": summary.TotalPosts,
	}).Info("Run complete")

	return summary, nil
}

// processChannel runs the pipeline for one subreddit
func (s *Scraper) processChannel(ctx context.Context, subreddit string) ([]models.Post, models.ChannelResult) {
	result := models.ChannelResult{Subreddit: subreddit}

	entries, err := s.client.FetchPosts(ctx, subreddit, s.config.Sort, s.config.Limit, s.config.TimeFilter)
	if err != nil {
		result.Err = err
		return nil, result
	}

	posts := s.normalizePosts(ctx, subreddit, entries)
	posts = FilterByAge(posts, s.config.DaysAgo, time.Now())
	result.PostCount = len(posts)

	// empty channels produce no file, matching the per-channel output rule
	if len(posts) > 0 {
		filename, err := s.writer.SaveChannel(subreddit, posts)
		if err != nil {
			result.Err = err
			result.PostCount = 0
			return nil, result
		}
		result.OutputFile = filename
	}

	if s.archive != nil && len(posts) > 0 {
		if err := s.archive.SavePosts(subreddit, posts); err != nil {
			// archiving is best effort; the channel already succeeded
			s.log.WithError(err).WithField("subreddit", subreddit).Error("Failed to archive posts")
		}
	}

	return posts, result
}

// normalizePosts maps raw listing entries to posts, fetching replies
// per post when enabled
func (s *Scraper) normalizePosts(ctx context.Context, subreddit string, entries []api.ListingEntry) []models.Post {
	posts := make([]models.Post, 0, len(entries))

	for _, entry := range entries {
		post := normalizePost(entry)

		if s.config.GetPostReplies {
			replies, err := s.fetchReplies(ctx, subreddit, entry.Data.ID)
			if err != nil {
				// the post still counts; it just carries no replies
				s.log.WithError(err).WithFields(logrus.Fields{
					"subreddit": subreddit,
					"post_id":   entry.Data.ID,
				}).Error("Failed to fetch replies")
				replies = []models.Reply{}
			}
			post.Replies = replies
		}

		posts = append(posts, post)
	}

	return posts
}

// normalizePost extracts the flat post record from one listing entry.
// Fields absent upstream stay at their zero values.
func normalizePost(entry api.ListingEntry) models.Post {
	d := entry.Data
	return models.Post{
		Title:       d.Title,
		Author:      d.Author,
		Score:       d.Score,
		NumComments: d.NumComments,
		CreatedUTC:  d.CreatedUTC,
		CreatedDate: formatUTC(d.CreatedUTC),
		URL:         d.URL,
		SelfText:    d.SelfText,
		Permalink:   "https://reddit.com" + d.Permalink,
		Flair:       d.LinkFlairText,
		IsVideo:     d.IsVideo,
		Replies:     []models.Reply{},
	}
}

// fetchReplies retrieves and normalizes the top-level comments of a
// post. Zero comments is an empty slice, never an error.
func (s *Scraper) fetchReplies(ctx context.Context, subreddit, postID string) ([]models.Reply, error) {
	if postID == "" {
		return nil, fmt.Errorf("listing entry has no post id")
	}

	entries, err := s.client.FetchComments(ctx, subreddit, postID, s.config.Limit)
	if err != nil {
		return nil, err
	}

	replies := make([]models.Reply, 0, len(entries))
	for _, entry := range entries {
		// listings end with kind "more" placeholders; only t1 entries
		// are actual comments
		if entry.Kind != commentKind {
			s.log.WithFields(logrus.Fields{
				"subreddit": subreddit,
				"post_id":   postID,
				"kind":      entry.Kind,
			}).Debug("Skipping non-comment listing entry")
			continue
		}

		replies = append(replies, models.Reply{
			Author:      entry.Data.Author,
			Body:        entry.Data.Body,
			Score:       entry.Data.Score,
			CreatedUTC:  entry.Data.CreatedUTC,
			CreatedDate: formatUTC(entry.Data.CreatedUTC),
			Permalink:   entry.Data.Permalink,
		})
	}

	return replies, nil
}

// FilterByAge returns the posts created within the last days days of
// now, preserving order. days <= 0 disables filtering. The boundary is
// inclusive: a post exactly days old is kept.
func FilterByAge(posts []models.Post, days int, now time.Time) []models.Post {
	if days <= 0 {
		return posts
	}

	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	filtered := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		created := time.Unix(int64(post.CreatedUTC), 0)
		if !created.Before(cutoff) {
			filtered = append(filtered, post)
		}
	}

	return filtered
}

// formatUTC renders an epoch timestamp as a human-readable UTC date
func formatUTC(epoch float64) string {
	return time.Unix(int64(epoch), 0).UTC().Format(dateLayout)
}
