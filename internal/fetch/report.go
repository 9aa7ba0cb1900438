package fetch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type failedEntry struct {
	Archive string `json:"archive"`
	Reason  string `json:"reason"`
}

func writeRunReport(dir string, successList []string, failedList []failedEntry) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if len(successList) > 0 {
		p := filepath.Join(dir, ".lastfetch.success.json")
		data, err := json.MarshalIndent(successList, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			return err
		}
		slog.Info("report wrote success", "path", p, "archives", len(successList))
	}
	if len(failedList) > 0 {
		p := filepath.Join(dir, ".lastfetch.failed.json")
		data, err := json.MarshalIndent(failedList, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			return err
		}
		slog.Info("report wrote failed", "path", p, "count", len(failedList))
	}
	return nil
}

func joinFailedReasons(failedList []failedEntry) string {
	var b strings.Builder
	for i, f := range failedList {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Archive)
		b.WriteString(": ")
		b.WriteString(f.Reason)
		if i >= 4 && len(failedList) > 6 {
			b.WriteString(fmt.Sprintf(" (+%d more)", len(failedList)-5))
			break
		}
	}
	return b.String()
}
