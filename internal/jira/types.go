package jira

import (
	"fmt"
	"net/url"
)

// SearchResult is the relevant subset of the Jira search response.
// A response missing the "issues" container decodes with a nil Issues
// slice; callers treat that as end-of-data for the cursor.
type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Issue is one raw issue as returned by the search endpoint.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the fields block of an issue. Every nested object is
// optional upstream, so pointers are used throughout.
type IssueFields struct {
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Project     *Named   `json:"project"`
	Status      *Named   `json:"status"`
	Priority    *Named   `json:"priority"`
	Reporter    *Person  `json:"reporter"`
	Assignee    *Person  `json:"assignee"`
	Labels      []string `json:"labels"`
	Created     string   `json:"created"`
	Updated     string   `json:"updated"`
}

// Named is a nested object identified by a name or key (project, status,
// priority).
type Named struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Person is a nested user object (reporter, assignee).
type Person struct {
	DisplayName string `json:"displayName"`
}

// CommentList is the relevant subset of the per-issue comment endpoint
// response.
type CommentList struct {
	Comments []Comment `json:"comments"`
}

// Comment is one raw comment body.
type Comment struct {
	Body string `json:"body"`
}

// SearchURL builds the paginated, JQL-filtered issue search URL for a
// project.
func SearchURL(baseURL, project string, startAt, maxResults int) string {
	return fmt.Sprintf("%s/search?jql=%s&startAt=%d&maxResults=%d",
		baseURL, url.QueryEscape("project="+project), startAt, maxResults)
}

// CommentsURL builds the comment endpoint URL for an issue key.
func CommentsURL(baseURL, issueKey string) string {
	return fmt.Sprintf("%s/issue/%s/comment", baseURL, url.PathEscape(issueKey))
}
