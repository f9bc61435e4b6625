package store

import (
	"context"
	"time"

	"github.com/ppa-research/access-cli/internal/access"
)

// RunStatus is the lifecycle state of an aggregation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunParams records the inputs an aggregation run was started with.
type RunParams struct {
	Patients    string `json:"patients"`
	Coordinates string `json:"coordinates,omitempty"`
	Shapefile   string `json:"shapefile,omitempty"`
	Centers     string `json:"centers,omitempty"`
	LookupSize  int    `json:"lookup_size"`
	CenterCount int    `json:"center_count"`
}

// RunResult records the conservation counters of a completed run, plus
// the per-center catchment totals and per-FSA drop counts so downstream
// tooling can name the areas behind the global numbers.
type RunResult struct {
	SchemaVersion     string `json:"schema_version"`
	InputRecords      int    `json:"input_records"`
	AggregatedRecords int    `json:"aggregated_records"`
	DroppedRecords    int    `json:"dropped_records"`
	Areas             int    `json:"areas"`
	ImputedAreas      int    `json:"imputed_areas"`

	// CenterPatients maps center ID to its total assigned patients.
	CenterPatients map[string]int `json:"center_patients,omitempty"`

	// DroppedByFSA maps FSA to its dropped record count, including FSAs
	// whose every record was dropped and so have no area row.
	DroppedByFSA map[string]int `json:"dropped_by_fsa,omitempty"`
}

// Run is one persisted aggregation execution.
type Run struct {
	ID        string     `json:"id"`
	Params    RunParams  `json:"params"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// AreaRow is the queryable slice of a persisted area summary.
type AreaRow struct {
	RunID              string  `json:"run_id"`
	FSA                string  `json:"fsa"`
	PatientCount       int     `json:"patient_count"`
	MeanDistanceKM     float64 `json:"mean_distance_km"`
	VulnerabilityScore float64 `json:"vulnerability_score"`
	DistanceBand       string  `json:"distance_band"`
	VulnerabilityBand  string  `json:"vulnerability_band"`
	Barriers           int     `json:"barriers"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for aggregation runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params RunParams) (*Run, error)
	CompleteRun(ctx context.Context, runID string, result *RunResult) error
	FailRun(ctx context.Context, runID string, message string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Area summaries
	SaveAreas(ctx context.Context, runID string, summaries []access.AreaSummary) error
	ListAreas(ctx context.Context, runID string) ([]AreaRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
