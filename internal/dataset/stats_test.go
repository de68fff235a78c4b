package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry/internal/jira"
)

// writeDataset appends the given issues to a fresh output stream and
// returns its path.
func writeDataset(t *testing.T, issues ...jira.Issue) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := OpenWriter(path)
	require.NoError(t, err)
	defer w.Close()

	for _, issue := range issues {
		var comments []jira.Comment
		if issue.Fields.Summary == "commented" {
			comments = []jira.Comment{{Body: "first"}, {Body: "second"}}
		}
		require.NoError(t, w.Append(Normalize(issue, comments)))
	}
	return path
}

func issueFor(key, project, status, priority, created string) jira.Issue {
	return jira.Issue{
		Key: key,
		Fields: jira.IssueFields{
			Project:  &jira.Named{Key: project},
			Status:   &jira.Named{Name: status},
			Priority: &jira.Named{Name: priority},
			Created:  created,
		},
	}
}

func TestCollectStats(t *testing.T) {
	t.Run("aggregates counts and date range", func(t *testing.T) {
		commented := issueFor("SPARK-2", "SPARK", "Open", "Minor", "2024-03-01T00:00:00.000+0000")
		commented.Fields.Summary = "commented"
		path := writeDataset(t,
			issueFor("SPARK-1", "SPARK", "Open", "Major", "2024-01-15T00:00:00.000+0000"),
			commented,
			issueFor("KAFKA-1", "KAFKA", "Resolved", "Major", "2023-11-20T00:00:00.000+0000"),
		)

		stats, err := CollectStats(path)
		require.NoError(t, err)

		assert.Equal(t, 3, stats.TotalIssues)
		assert.Equal(t, map[string]int{"SPARK": 2, "KAFKA": 1}, stats.ByProject)
		assert.Equal(t, map[string]int{"Open": 2, "Resolved": 1}, stats.ByStatus)
		assert.Equal(t, map[string]int{"Major": 2, "Minor": 1}, stats.ByPriority)
		require.NotNil(t, stats.DateRange.Earliest)
		assert.Equal(t, "2023-11-20T00:00:00.000+0000", *stats.DateRange.Earliest)
		require.NotNil(t, stats.DateRange.Latest)
		assert.Equal(t, "2024-03-01T00:00:00.000+0000", *stats.DateRange.Latest)
		assert.Equal(t, 2, stats.TotalComments)
		assert.Equal(t, 1, stats.IssuesWithComment)
	})

	t.Run("skips a trailing partial line", func(t *testing.T) {
		path := writeDataset(t, issueFor("X-1", "X", "Open", "Major", "2024-01-01T00:00:00.000+0000"))

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString(`{"metadata":{"key":"X-2","proj`)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		stats, err := CollectStats(path)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalIssues)
	})

	t.Run("reports a missing output stream", func(t *testing.T) {
		_, err := CollectStats(filepath.Join(t.TempDir(), "absent.jsonl"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("empty file yields zero stats", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.jsonl")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		stats, err := CollectStats(path)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalIssues)
		assert.Nil(t, stats.DateRange.Earliest)
	})
}

func TestTransform(t *testing.T) {
	t.Run("re-emits every complete record", func(t *testing.T) {
		src := writeDataset(t,
			issueFor("X-1", "X", "Open", "Major", "2024-01-01T00:00:00.000+0000"),
			issueFor("X-2", "X", "Open", "Major", "2024-01-02T00:00:00.000+0000"),
		)
		dst := filepath.Join(t.TempDir(), "transformed.jsonl")

		require.NoError(t, Transform(src, dst))

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		assert.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"key":"X-1"`)
	})

	t.Run("drops undecodable lines instead of failing", func(t *testing.T) {
		src := writeDataset(t, issueFor("X-1", "X", "Open", "Major", "2024-01-01T00:00:00.000+0000"))
		f, err := os.OpenFile(src, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString("not json\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())
		dst := filepath.Join(t.TempDir(), "transformed.jsonl")

		require.NoError(t, Transform(src, dst))

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Len(t, strings.Split(strings.TrimRight(string(data), "\n"), "\n"), 1)
	})

	t.Run("reports a missing source stream", func(t *testing.T) {
		err := Transform(filepath.Join(t.TempDir(), "absent.jsonl"), filepath.Join(t.TempDir(), "t.jsonl"))
		assert.True(t, os.IsNotExist(err))
	})
}
