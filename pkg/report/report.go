package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cutover/cutover/pkg/types"
)

// StepSummary condenses one migration step for the report
type StepSummary struct {
	Percentage     int              `json:"percentage"`
	AppliedAt      time.Time        `json:"appliedAt"`
	Status         types.StepStatus `json:"status"`
	FailedServices []string         `json:"failedServices,omitempty"`
}

// Report is the structured deployment record assembled from a finalized
// run, for audit and operator consumption
type Report struct {
	RunID         string               `json:"runId"`
	Outcome       types.Outcome        `json:"outcome"`
	SourceEnv     string               `json:"sourceEnv"`
	TargetEnv     string               `json:"targetEnv"`
	StartedAt     time.Time            `json:"startedAt"`
	FinishedAt    time.Time            `json:"finishedAt"`
	Duration      string               `json:"duration"`
	Steps         []StepSummary        `json:"steps,omitempty"`
	FinalWeights  map[string]int       `json:"finalWeights"`
	Failure       string               `json:"failure,omitempty"`
	RollbackEvent *types.RollbackEvent `json:"rollbackEvent,omitempty"`
	Warnings      []types.Warning      `json:"warnings,omitempty"`
	GeneratedAt   time.Time            `json:"generatedAt"`
}

// Generate assembles a Report from a finalized run. Pure function: it
// never touches cluster state.
func Generate(run *types.DeploymentRun) Report {
	r := Report{
		RunID:         run.ID,
		Outcome:       run.Outcome,
		SourceEnv:     run.SourceEnv,
		TargetEnv:     run.TargetEnv,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		Duration:      run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
		Failure:       run.Failure,
		RollbackEvent: run.RollbackEvent,
		Warnings:      run.Warnings,
		GeneratedAt:   time.Now(),
	}

	for _, step := range run.Steps {
		summary := StepSummary{
			Percentage: step.Percentage,
			AppliedAt:  step.AppliedAt,
			Status:     step.Status,
		}
		for _, check := range step.Validation {
			if !check.Healthy {
				summary.FailedServices = append(summary.FailedServices, check.Service)
			}
		}
		r.Steps = append(r.Steps, summary)
	}

	switch run.Outcome {
	case types.OutcomeSuccess:
		r.FinalWeights = map[string]int{run.TargetEnv: 100}
	case types.OutcomeRolledBack:
		r.FinalWeights = map[string]int{run.RollbackEvent.RestoredEnv: 100}
	default:
		r.FinalWeights = map[string]int{run.SourceEnv: 100}
	}
	return r
}

// Render formats the report for terminal output
func (r Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deployment run %s\n", r.RunID)
	fmt.Fprintf(&b, "  Outcome:   %s\n", r.Outcome)
	fmt.Fprintf(&b, "  Migration: %s -> %s\n", r.SourceEnv, r.TargetEnv)
	fmt.Fprintf(&b, "  Duration:  %s\n", r.Duration)
	if len(r.Steps) > 0 {
		b.WriteString("  Steps:\n")
		for _, s := range r.Steps {
			line := fmt.Sprintf("    %3d%% %s", s.Percentage, s.Status)
			if len(s.FailedServices) > 0 {
				line += " (" + strings.Join(s.FailedServices, ", ") + ")"
			}
			b.WriteString(line + "\n")
		}
	}
	if r.Failure != "" {
		fmt.Fprintf(&b, "  Failure:   %s\n", r.Failure)
	}
	if r.RollbackEvent != nil {
		fmt.Fprintf(&b, "  Rollback:  restored %s (%s)\n", r.RollbackEvent.RestoredEnv, r.RollbackEvent.Reason)
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "  Warnings:  %d during stabilization\n", len(r.Warnings))
	}
	return b.String()
}

// Writer persists reports as timestamped JSON artifacts
type Writer struct {
	dir string
}

// NewWriter creates a Writer targeting dir
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write stores the report and returns the artifact path
func (w *Writer) Write(r Report) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	shortID := r.RunID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	name := fmt.Sprintf("run-%s-%s.json", r.FinishedAt.UTC().Format("20060102T150405Z"), shortID)
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
