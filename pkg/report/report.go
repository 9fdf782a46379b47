// Package report accumulates run outcomes and persists the audit artifacts:
// a JSON report, a CSV follower list, and a JSON backup of removed accounts
// that an operator could use to manually reverse the run.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	errs "followersweep/pkg/errors"
	"followersweep/pkg/logger"
	"followersweep/pkg/models"
)

// Entry is one classified follower with its final outcome.
type Entry struct {
	Record         models.FollowerRecord `json:"record"`
	Classification models.Classification `json:"classification"`
	Outcome        models.Outcome        `json:"outcome"`
}

// Artifacts lists the files a flush produced.
type Artifacts struct {
	ReportPath string
	CSVPath    string
	BackupPath string
}

// Document is the JSON report payload.
type Document struct {
	RunID          string       `json:"run_id"`
	TargetHandle   string       `json:"target_handle"`
	Mode           models.Mode  `json:"mode"`
	Limit          int          `json:"limit"`
	DailyCap       int          `json:"daily_cap"`
	StartedAt      time.Time    `json:"started_at"`
	EndedAt        time.Time    `json:"ended_at"`
	FinalPhase     models.Phase `json:"final_phase"`
	TotalScanned   int          `json:"total_scanned"`
	BotsIdentified int          `json:"bots_identified"`
	Removed        int          `json:"removed"`
	Failed         int          `json:"failed"`
	Skipped        int          `json:"skipped"`
	Followers      []Entry      `json:"followers"`
	Errors         []string     `json:"errors,omitempty"`
}

// backupDocument is the JSON backup payload: removed records only.
type backupDocument struct {
	RunID        string    `json:"run_id"`
	TargetHandle string    `json:"target_handle"`
	Timestamp    time.Time `json:"timestamp"`
	Followers    []Entry   `json:"followers"`
}

// Reporter accumulates outcomes in memory and writes all artifacts exactly
// once per run.
type Reporter struct {
	reportsDir string
	backupsDir string
	logger     logger.Logger

	entries      []Entry
	runErrors    []string
	totalScanned int
	flushed      bool
}

// NewReporter creates a reporter writing into the given directories
func NewReporter(reportsDir, backupsDir string, log logger.Logger) *Reporter {
	return &Reporter{
		reportsDir: reportsDir,
		backupsDir: backupsDir,
		logger:     log,
	}
}

// Record accumulates one classified follower and its outcome
func (r *Reporter) Record(entry Entry) {
	r.entries = append(r.entries, entry)
}

// RecordRunError notes a run-level error for the report
func (r *Reporter) RecordRunError(err error) {
	if err != nil {
		r.runErrors = append(r.runErrors, err.Error())
	}
}

// SetTotalScanned records how many followers were seen, including the ones
// discarded as non-candidates.
func (r *Reporter) SetTotalScanned(n int) {
	r.totalScanned = n
}

// Entries returns the accumulated entries in recording order
func (r *Reporter) Entries() []Entry {
	return r.entries
}

// Flush writes the report, CSV and backup artifacts. It is atomic from the
// caller's perspective: all files are staged as temp files first and only
// renamed into place once every write succeeded. Flush must be called
// exactly once per run; a second call is an error.
func (r *Reporter) Flush(state *models.RunState) (*Artifacts, error) {
	if r.flushed {
		return nil, errs.New(errs.KindArtifactWrite, "report already flushed for this run")
	}
	r.flushed = true

	for _, dir := range []string{r.reportsDir, r.backupsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errs.Wrap(errs.KindArtifactWrite, "failed to create output directory", err)
		}
	}

	stamp := state.StartedAt.Format("20060102_150405")
	base := fmt.Sprintf("cleanup_report_%s_%s", state.TargetHandle, stamp)

	artifacts := &Artifacts{
		ReportPath: filepath.Join(r.reportsDir, base+".json"),
		CSVPath:    filepath.Join(r.reportsDir, base+"_followers.csv"),
		BackupPath: filepath.Join(r.backupsDir, fmt.Sprintf("removed_followers_%s_%s.json", state.TargetHandle, stamp)),
	}

	reportData, err := json.MarshalIndent(r.buildDocument(state), "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.KindArtifactWrite, "failed to marshal report", err)
	}

	backupData, err := json.MarshalIndent(r.buildBackup(state), "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.KindArtifactWrite, "failed to marshal backup", err)
	}

	csvData, err := r.buildCSV()
	if err != nil {
		return nil, errs.Wrap(errs.KindArtifactWrite, "failed to build follower csv", err)
	}

	// Stage everything, then rename in a fixed order. If any step fails,
	// both the staged temp files and anything already renamed are removed
	// so nothing is published under its final name.
	staged := []struct {
		path string
		data []byte
	}{
		{artifacts.ReportPath, reportData},
		{artifacts.CSVPath, csvData},
		{artifacts.BackupPath, backupData},
	}

	var tmpPaths, published []string
	cleanup := func() {
		for _, p := range tmpPaths {
			os.Remove(p)
		}
		for _, p := range published {
			os.Remove(p)
		}
	}

	for _, s := range staged {
		tmp := s.path + ".tmp"
		if err := os.WriteFile(tmp, s.data, 0644); err != nil {
			cleanup()
			return nil, errs.Wrap(errs.KindArtifactWrite, "failed to stage artifact", err)
		}
		tmpPaths = append(tmpPaths, tmp)
	}

	for i, s := range staged {
		if err := os.Rename(s.path+".tmp", s.path); err != nil {
			tmpPaths = tmpPaths[i:]
			cleanup()
			return nil, errs.Wrap(errs.KindArtifactWrite, "failed to publish artifact", err)
		}
		published = append(published, s.path)
	}

	r.logger.InfoWithFields("artifacts written", map[string]interface{}{
		"report": artifacts.ReportPath,
		"csv":    artifacts.CSVPath,
		"backup": artifacts.BackupPath,
	})

	return artifacts, nil
}

func (r *Reporter) buildDocument(state *models.RunState) *Document {
	bots := 0
	for _, e := range r.entries {
		if e.Classification.SuspectedBot {
			bots++
		}
	}

	totalScanned := r.totalScanned
	if totalScanned == 0 {
		totalScanned = len(r.entries)
	}

	return &Document{
		RunID:          state.RunID,
		TargetHandle:   state.TargetHandle,
		Mode:           state.Mode,
		Limit:          state.Limit,
		DailyCap:       state.DailyCap,
		StartedAt:      state.StartedAt,
		EndedAt:        state.EndedAt,
		FinalPhase:     state.Phase,
		TotalScanned:   totalScanned,
		BotsIdentified: bots,
		Removed:        state.RemovedCount,
		Failed:         state.FailedCount,
		Skipped:        state.SkippedCount,
		Followers:      r.entries,
		Errors:         r.runErrors,
	}
}

func (r *Reporter) buildBackup(state *models.RunState) *backupDocument {
	removed := make([]Entry, 0)
	for _, e := range r.entries {
		if e.Outcome.Kind == models.OutcomeRemoved {
			removed = append(removed, e)
		}
	}

	return &backupDocument{
		RunID:        state.RunID,
		TargetHandle: state.TargetHandle,
		Timestamp:    time.Now(),
		Followers:    removed,
	}
}

func (r *Reporter) buildCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"profile_id", "username", "display_name", "discovered_at", "suspected_bot", "matched_pattern", "outcome", "reason"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, e := range r.entries {
		row := []string{
			e.Record.ProfileID,
			e.Record.Username,
			e.Record.DisplayName,
			e.Record.DiscoveredAt.Format(time.RFC3339),
			strconv.FormatBool(e.Classification.SuspectedBot),
			e.Classification.MatchedPattern,
			string(e.Outcome.Kind),
			e.Outcome.Reason,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
