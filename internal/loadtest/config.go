// Package loadtest drives a running placement service over HTTP and checks
// that every accepted submission ends up as rating records.
package loadtest

import "time"

// Config holds configuration for a load test run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Players        int           // Number of distinct players to place
	DuplicateRatio float64       // Share of submissions sent twice
	SeasonID       string        // Season every submission targets
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	SettleTimeout  time.Duration // How long to wait for records to appear
	OutputFile     string        // Optional file for the generated submissions
	Verbose        bool          // Enable verbose logging
}

// Submission is one POST /placements body.
type Submission struct {
	SubmissionID string         `json:"submission_id"`
	PlayerID     string         `json:"player_id"`
	Sport        string         `json:"sport"`
	SeasonID     string         `json:"season_id,omitempty"`
	Answers      map[string]any `json:"answers"`
}

// Ack is the service's answer to a submission.
type Ack struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	JobID     string `json:"job_id"`
}

// Stats holds run statistics.
type Stats struct {
	Generated       int
	Submitted       int
	Accepted        int
	Duplicate       int
	Rejected        int
	Failed          int
	PlayersVerified int
	RecordsFound    int
	StartTime       time.Time
	Duration        time.Duration
}
