package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Stats summarises an output stream in a single pass.
type Stats struct {
	TotalIssues       int            `json:"total_issues"`
	ByProject         map[string]int `json:"by_project"`
	ByStatus          map[string]int `json:"by_status"`
	ByPriority        map[string]int `json:"by_priority"`
	DateRange         DateRange      `json:"date_range"`
	TotalComments     int            `json:"total_comments"`
	IssuesWithComment int            `json:"issues_with_comments"`
}

// DateRange bounds the created timestamps seen in the dataset. The
// timestamps are opaque upstream-formatted strings compared
// lexicographically, which is stable for Jira's ISO-like format.
type DateRange struct {
	Earliest *string `json:"earliest"`
	Latest   *string `json:"latest"`
}

// CollectStats reads the output stream at path and aggregates statistics.
// Undecodable lines, including a possible trailing partial line from an
// interrupted append, are skipped. Returns os.ErrNotExist when no output
// has been written yet.
func CollectStats(path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stats := &Stats{
		ByProject:  map[string]int{},
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}

		stats.TotalIssues++

		if record.Metadata.Project != nil {
			stats.ByProject[*record.Metadata.Project]++
		}
		if record.Metadata.Status != nil {
			stats.ByStatus[*record.Metadata.Status]++
		}
		if record.Metadata.Priority != nil {
			stats.ByPriority[*record.Metadata.Priority]++
		}

		if created := record.Metadata.Created; created != "" {
			if stats.DateRange.Earliest == nil || created < *stats.DateRange.Earliest {
				c := created
				stats.DateRange.Earliest = &c
			}
			if stats.DateRange.Latest == nil || created > *stats.DateRange.Latest {
				c := created
				stats.DateRange.Latest = &c
			}
		}

		stats.TotalComments += len(record.Content.Comments)
		if len(record.Content.Comments) > 0 {
			stats.IssuesWithComment++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan output: %w", err)
	}

	return stats, nil
}

// Transform re-emits the dataset at srcPath as a flattened JSONL copy at
// dstPath for downstream training use. Records are passed through
// unchanged; undecodable lines are dropped. Returns os.ErrNotExist when
// no output has been written yet.
func Transform(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create transformed output: %w", err)
	}
	defer dst.Close()

	out := bufio.NewWriter(dst)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("encode transformed record: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan output: %w", err)
	}

	if err := out.Flush(); err != nil {
		return fmt.Errorf("flush transformed output: %w", err)
	}
	return nil
}
