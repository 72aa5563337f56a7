package service

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

const (
	memWarnThresholdBytes  = 600 * 1024 * 1024
	memCritThresholdBytes  = 1200 * 1024 * 1024
	memCheckInterval       = 30 * time.Second
	goroutineWarnThreshold = 500
	goroutineCritThreshold = 1000
)

// alerter delivers operator alerts, e.g. the Telegram chat.
type alerter interface {
	Send(ctx context.Context, text string) error
}

type memSample struct {
	heap       uint64
	sys        uint64
	goroutines int
}

func readMemSample() memSample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return memSample{heap: ms.HeapAlloc, sys: ms.Sys, goroutines: runtime.NumGoroutine()}
}

// runMemoryWatcher samples heap and goroutine counts until ctx is done. Crossing a
// critical threshold triggers stop.
func (s *Service) runMemoryWatcher(ctx context.Context, stop context.CancelFunc) {
	ticker := time.NewTicker(memCheckInterval)
	defer ticker.Stop()

	var lastWarnAt time.Time
	s.log.Infof("memwatch: started (warn=%dMB, crit=%dMB, goroutines warn=%d crit=%d)",
		memWarnThresholdBytes/(1024*1024),
		memCritThresholdBytes/(1024*1024),
		goroutineWarnThreshold,
		goroutineCritThreshold,
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.checkMemory(readMemSample(), &lastWarnAt) {
				s.log.Errorf("memwatch: initiating emergency shutdown")
				stop()
				return
			}
		}
	}
}

// checkMemory reports whether the sample is past a critical threshold.
func (s *Service) checkMemory(m memSample, lastWarnAt *time.Time) bool {
	heapMB := m.heap / (1024 * 1024)
	sysMB := m.sys / (1024 * 1024)

	if m.goroutines >= goroutineCritThreshold {
		s.log.Errorf("memwatch: CRITICAL goroutine leak - goroutines=%d", m.goroutines)
		s.alert(fmt.Sprintf("🚨 goroutine leak, shutting down\ngoroutines: %d (limit %d)\nheap: %d MB / sys: %d MB",
			m.goroutines, goroutineCritThreshold, heapMB, sysMB))
		return true
	}
	if m.heap >= memCritThresholdBytes {
		s.log.Errorf("memwatch: CRITICAL heap usage - heap=%dMB goroutines=%d", heapMB, m.goroutines)
		s.alert(fmt.Sprintf("🚨 heap limit reached, shutting down\nheap: %d MB (limit %d MB)\nsys: %d MB\ngoroutines: %d",
			heapMB, memCritThresholdBytes/(1024*1024), sysMB, m.goroutines))
		return true
	}

	warn := m.heap > memWarnThresholdBytes || m.goroutines >= goroutineWarnThreshold
	if warn && time.Since(*lastWarnAt) > 10*time.Minute {
		s.log.Warnf("memwatch: WARNING heap=%dMB goroutines=%d", heapMB, m.goroutines)
		s.alert(fmt.Sprintf("⚠️ high resource usage\nheap: %d MB (limit %d MB)\nsys: %d MB\ngoroutines: %d (limit %d)",
			heapMB, memWarnThresholdBytes/(1024*1024), sysMB, m.goroutines, goroutineWarnThreshold))
		runtime.GC()
		*lastWarnAt = time.Now()
	}
	return false
}

func (s *Service) alert(text string) {
	if s.alerts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.alerts.Send(ctx, text); err != nil {
		s.log.Errorf("alert not delivered: %v", err)
	}
}
