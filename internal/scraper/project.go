// Package scraper drives the fetch-retry-checkpoint pipeline: it turns a
// set of named projects into a durable, append-only stream of normalized
// records while tolerating network failures, rate limiting, and partial
// crashes.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quarrylabs/quarry/internal/checkpoint"
	"github.com/quarrylabs/quarry/internal/dataset"
	"github.com/quarrylabs/quarry/internal/jira"
)

// DefaultPageDelay is the politeness pause between issue pages.
const DefaultPageDelay = time.Second

// projectScraper paginates one project from its checkpointed offset,
// normalizes each issue, appends records, and advances the checkpoint one
// page at a time. Checkpoint granularity is per-batch: on resume the last
// in-flight batch may be re-fetched and re-appended, which is an accepted
// trade-off over losing records.
type projectScraper struct {
	project     string
	fetcher     *jira.Fetcher
	checkpoints *checkpoint.Store
	writer      *dataset.Writer
	pageSize    int
	pageDelay   time.Duration
	sleep       jira.SleepFunc
	log         zerolog.Logger

	// onScraped reports how many issues a persisted batch contained.
	onScraped func(n int)
}

func (s *projectScraper) run(ctx context.Context) error {
	cp, err := s.checkpoints.Load()
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	progress := cp[s.project]
	if progress.Completed {
		s.log.Info().Str("project", s.project).Msg("project already completed, skipping")
		return nil
	}

	startAt := progress.Offset
	for {
		page, err := s.fetcher.SearchPage(ctx, s.project, startAt, s.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A page whose retry budget is spent, or that the API
			// says does not exist, ends paging for this project.
			// Forward progress beats retrying the same cursor
			// forever.
			s.log.Warn().
				Err(err).
				Str("project", s.project).
				Int("start_at", startAt).
				Msg("page fetch failed, ending project")
			return s.complete(cp, startAt)
		}

		if page.Issues == nil {
			// Response parsed but lacks the issues container.
			// Treated as end-of-data for this cursor.
			s.log.Warn().
				Str("project", s.project).
				Int("start_at", startAt).
				Msg("malformed page, ending project")
			return s.complete(cp, startAt)
		}
		if len(page.Issues) == 0 {
			return s.complete(cp, startAt)
		}

		for _, issue := range page.Issues {
			comments, err := s.fetcher.Comments(ctx, issue.Key)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Missing or exhausted: drop this issue and
				// keep going.
				s.log.Warn().
					Err(err).
					Str("issue", issue.Key).
					Msg("comment fetch failed, skipping issue")
				continue
			}

			record := dataset.Normalize(issue, comments)
			if err := s.writer.Append(record); err != nil {
				return fmt.Errorf("append record %s: %w", issue.Key, err)
			}
		}

		// The whole batch is durably appended; only now does the
		// checkpoint advance.
		startAt += len(page.Issues)
		done := page.Total > 0 && startAt >= page.Total

		cp[s.project] = checkpoint.Progress{Offset: startAt, Completed: done}
		if err := s.checkpoints.Save(cp); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
		s.onScraped(len(page.Issues))

		s.log.Info().
			Str("project", s.project).
			Int("fetched", startAt).
			Int("total", page.Total).
			Msg("batch persisted")

		if done {
			return nil
		}
		if err := s.sleep(ctx, s.pageDelay); err != nil {
			return err
		}
	}
}

// complete marks the project finished at the given offset and persists
// the whole checkpoint snapshot.
func (s *projectScraper) complete(cp checkpoint.Checkpoint, offset int) error {
	cp[s.project] = checkpoint.Progress{Offset: offset, Completed: true}
	if err := s.checkpoints.Save(cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
