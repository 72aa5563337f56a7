package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"image-verify/internal/logging"
	"image-verify/internal/model"
)

const reportErrorLines = 5

// report logs the running totals, the stored totals and the latest error lines, and
// forwards the same text to the alert chat when one is configured.
func (s *Service) report() {
	lines := []string{formatSnapshot("process", s.stats.Snapshot())}

	if s.sqlite != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		sum, err := s.sqlite.Summary(ctx)
		cancel()
		if err != nil {
			s.log.Errorf("report: sqlite summary: %v", err)
		} else {
			lines = append(lines, formatSnapshot("stored", sum))
		}
	}

	for _, l := range lines {
		s.log.Infof("report: %s", l)
	}

	tail, err := logging.TailLines(s.cfg.ErrorsLogPath, reportErrorLines)
	if err != nil && !os.IsNotExist(err) {
		s.log.Warnf("report: read %s: %v", s.cfg.ErrorsLogPath, err)
	}
	if len(tail) > 0 {
		s.log.Infof("report: %d recent error line(s) in %s", len(tail), s.cfg.ErrorsLogPath)
		lines = append(lines, "recent errors:")
		lines = append(lines, tail...)
	}

	s.alert("📊 " + strings.Join(lines, "\n"))
}

func formatSnapshot(label string, snap model.StatsSnapshot) string {
	since := "-"
	if !snap.Since.IsZero() {
		since = snap.Since.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s verifications=%d matches=%d mismatches=%d avg=%.2f%% since=%s",
		label, snap.Total, snap.Matches, snap.Mismatches, snap.AvgSimilarity, since)
}
