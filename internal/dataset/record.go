// Package dataset turns raw Jira issues into flat training-ready records
// and owns the append-only JSONL output stream they are written to.
package dataset

import (
	"fmt"
	"strings"

	"github.com/quarrylabs/quarry/internal/jira"
)

// Derived task prompts.
const (
	SummarizationPrompt  = "Summarize the issue and its discussion."
	ClassificationPrompt = "Classify the issue as bug, improvement, or feature."

	// NoDescriptionAnswer is the placeholder answer when an issue has no
	// description to quote.
	NoDescriptionAnswer = "No description available."
)

// Record is one normalized issue. Created once per issue, immutable
// thereafter, written exactly once to the output stream.
type Record struct {
	Metadata     Metadata     `json:"metadata"`
	Content      Content      `json:"content"`
	DerivedTasks DerivedTasks `json:"derived_tasks"`
}

// Metadata is the identity and categorisation block of a record. Optional
// upstream fields are pointers so a missing value serialises as null
// rather than an empty string.
type Metadata struct {
	ID       string   `json:"id"`
	Key      string   `json:"key"`
	Title    *string  `json:"title"`
	Project  *string  `json:"project"`
	Status   *string  `json:"status"`
	Priority *string  `json:"priority"`
	Reporter *string  `json:"reporter"`
	Assignee *string  `json:"assignee"`
	Labels   []string `json:"labels"`
	Created  string   `json:"created"`
	Updated  string   `json:"updated"`
}

// Content holds the textual body of a record.
type Content struct {
	Description string   `json:"description"`
	Comments    []string `json:"comments"`
}

// DerivedTasks is the templated prompt block generated for downstream
// model training.
type DerivedTasks struct {
	Summarization  string `json:"summarization"`
	Classification string `json:"classification"`
	QnA            QnA    `json:"qna"`
}

// QnA is a question/answer pair templated from the issue key and
// description.
type QnA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Normalize builds a Record from a raw issue and its comment bodies.
// Extraction is total: every optional field defaults to null/empty rather
// than failing, and missing nested objects short-circuit to null.
func Normalize(issue jira.Issue, comments []jira.Comment) Record {
	fields := issue.Fields

	labels := fields.Labels
	if labels == nil {
		labels = []string{}
	}

	answer := fields.Description
	if answer == "" {
		answer = NoDescriptionAnswer
	}

	return Record{
		Metadata: Metadata{
			ID:       issue.ID,
			Key:      issue.Key,
			Title:    optional(fields.Summary),
			Project:  namedKey(fields.Project),
			Status:   namedName(fields.Status),
			Priority: namedName(fields.Priority),
			Reporter: personName(fields.Reporter),
			Assignee: personName(fields.Assignee),
			Labels:   labels,
			Created:  fields.Created,
			Updated:  fields.Updated,
		},
		Content: Content{
			Description: fields.Description,
			Comments:    cleanComments(comments),
		},
		DerivedTasks: DerivedTasks{
			Summarization:  SummarizationPrompt,
			Classification: ClassificationPrompt,
			QnA: QnA{
				Question: fmt.Sprintf("What is the main problem discussed in issue %s?", issue.Key),
				Answer:   answer,
			},
		},
	}
}

// cleanComments trims comment bodies and drops empty ones, preserving
// order.
func cleanComments(comments []jira.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		body := strings.TrimSpace(c.Body)
		if body == "" {
			continue
		}
		out = append(out, body)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func namedKey(n *jira.Named) *string {
	if n == nil {
		return nil
	}
	return optional(n.Key)
}

func namedName(n *jira.Named) *string {
	if n == nil {
		return nil
	}
	return optional(n.Name)
}

func personName(p *jira.Person) *string {
	if p == nil {
		return nil
	}
	return optional(p.DisplayName)
}
