package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-scraper/api"
	"github.com/brettboylen/reddit-scraper/db"
	"github.com/brettboylen/reddit-scraper/output"
	"github.com/brettboylen/reddit-scraper/scraper"
	"github.com/brettboylen/reddit-scraper/utils"
)

const logFile = "reddit_scraper.log"

func main() {
	sortType := flag.String("sort", "hot", "Sort type for posts (hot, new, rising, top, controversial)")
	limit := flag.Int("limit", 0, "Number of posts to scrape per subreddit (overrides config)")
	outputDir := flag.String("output-dir", "results", "Directory to save output files")
	combined := flag.Bool("combined", false, "Also save a combined JSON file with all subreddit data")
	combinedFilename := flag.String("combined-filename", "", "Filename for combined output (only used with -combined)")
	configPath := flag.String("config", "config.json", "Path to config file")
	timeFilter := flag.String("time-filter", "week", "Time filter for top/controversial sorts (hour, day, week, month, year, all)")
	envPath := flag.String("env", ".env", "Path to optional .env file")
	logLevel := flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	serve := flag.Bool("serve", false, "Serve archived posts over HTTP instead of scraping")
	flag.Parse()

	log := setupLogger(*logLevel)

	if !api.ValidSorts[*sortType] {
		log.WithField("sort", *sortType).Fatal("Invalid sort type")
	}
	if !api.ValidTimeFilters[*timeFilter] {
		log.WithField("time_filter", *timeFilter).Fatal("Invalid time filter")
	}

	config, err := utils.LoadConfig(*configPath, *envPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	// flag overrides on top of the config file
	config.Sort = *sortType
	config.TimeFilter = *timeFilter
	config.OutputDir = *outputDir
	config.Combined = *combined
	config.CombinedFilename = *combinedFilename
	if *limit > 0 {
		config.Limit = *limit
	}

	if config.ClearLogs {
		if err := os.Truncate(logFile, 0); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("Failed to clear log file")
		} else {
			fmt.Printf("Log file %q cleared as per config\n", logFile)
		}
	}

	// log to both console and file from here on
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.WithError(err).Fatal("Failed to open log file")
	}
	defer file.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, file))

	log.Info("Starting Reddit Scraper")
	log.WithFields(logrus.Fields{
		"subreddits":       config.Subreddits,
		"sort":             config.Sort,
		"limit":            config.Limit,
		"days_ago":         config.DaysAgo,
		"get_post_replies": config.GetPostReplies,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var archive *db.Archive
	if config.ArchiveDB != "" {
		archive, err = db.NewArchive(config.ArchiveDB, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to open archive database")
		}
		defer archive.Close()
	}

	if *serve {
		if archive == nil {
			log.Fatal("Serve mode requires archive_db to be configured")
		}
		if err := runServer(ctx, config.ServerPort, archive, log); err != nil {
			log.WithError(err).Fatal("Server failed")
		}
		return
	}

	if config.DeleteResults {
		if err := output.DeleteResults(config.OutputDir); err != nil {
			log.WithError(err).Fatal("Failed to clear output directory")
		}
		log.WithField("dir", config.OutputDir).Info("Cleared previous results")
	}

	client := api.NewClient(config.BaseURL, config.UserAgent, config.SleepSeconds, log)
	writer := output.NewWriter(config.OutputDir, time.Now(), log)

	summary, err := scraper.New(client, writer, archive, config, log).Run(ctx)
	if err != nil {
		log.WithError(err).Error("Run finished with errors")
	}

	if summary.TotalPosts > 0 {
		fmt.Printf("Scraped %d posts across %d subreddits (%d failed)\n",
			summary.TotalPosts, len(config.Subreddits), summary.Failed())
		for _, result := range summary.Results {
			if result.Succeeded() {
				fileInfo := ""
				if result.OutputFile != "" {
					fileInfo = fmt.Sprintf(" (saved to %s)", result.OutputFile)
				}
				fmt.Printf("  - r/%s: %d posts%s\n", result.Subreddit, result.PostCount, fileInfo)
			} else {
				fmt.Printf("  - r/%s: failed (%v)\n", result.Subreddit, result.Err)
			}
		}
	} else {
		fmt.Println("No posts were scraped")
	}
}

// setupLogger sets up the logger with the specified log level
func setupLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}
