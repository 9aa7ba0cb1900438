package convert

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ReportName is the file written to ReportDir after every run.
const ReportName = ".lastconvert.json"

type runReport struct {
	Result
	Status   string    `json:"status"` // ok | failed
	Reason   string    `json:"reason,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

func writeRunReport(dir string, res Result, started time.Time, runErr error) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	rep := runReport{Result: res, Status: "ok", Started: started.UTC(), Finished: time.Now().UTC()}
	if runErr != nil {
		rep.Status = "failed"
		rep.Reason = runErr.Error()
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	p := filepath.Join(dir, ReportName)
	if err := os.WriteFile(p, data, 0644); err != nil {
		return err
	}
	slog.Debug("report wrote", "path", p, "status", rep.Status)
	return nil
}
