package scraper

import "time"

// Status is a snapshot of run-level state. It is process-lifetime only;
// durable progress lives in the checkpoint store.
type Status struct {
	IsRunning         bool       `json:"is_running"`
	StartTime         *time.Time `json:"start_time"`
	CurrentProject    *string    `json:"current_project"`
	ProjectsCompleted []string   `json:"projects_completed"`
	ScrapedThisRun    int        `json:"scraped_this_run"`
}

// ProjectProgress is the per-project view served to the control surface,
// merged from the checkpoint store and the completed set.
type ProjectProgress struct {
	Scraped   int  `json:"scraped"`
	Completed bool `json:"completed"`
}

func (s Status) clone() Status {
	out := s
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	if s.CurrentProject != nil {
		p := *s.CurrentProject
		out.CurrentProject = &p
	}
	out.ProjectsCompleted = append([]string(nil), s.ProjectsCompleted...)
	return out
}
