package recorder

import (
	"context"
	"sync"
	"time"

	"image-verify/internal/model"
)

// Stats keeps running totals in memory for the periodic report.
type Stats struct {
	mu            sync.Mutex
	total         int64
	matches       int64
	similaritySum float64
	since         time.Time
}

func NewStats(now time.Time) *Stats {
	return &Stats{since: now}
}

func (s *Stats) Name() string { return "stats" }

func (s *Stats) Record(_ context.Context, rec model.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if rec.MatchResult {
		s.matches++
	}
	s.similaritySum += rec.SimilarityPercentage
	return nil
}

func (s *Stats) Snapshot() model.StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := model.StatsSnapshot{
		Total:      s.total,
		Matches:    s.matches,
		Mismatches: s.total - s.matches,
		Since:      s.since,
	}
	if s.total > 0 {
		snap.AvgSimilarity = s.similaritySum / float64(s.total)
	}
	return snap
}
