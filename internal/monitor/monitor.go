// Package monitor records per-operation metrics and system resource gauges
// and exposes health snapshots. The service is an explicitly constructed,
// injected instance: built once per process, stopped on shutdown.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthState buckets the computed health score.
type HealthState string

const (
	StateHealthy  HealthState = "healthy"
	StateWarning  HealthState = "warning"
	StateCritical HealthState = "critical"
)

const recentErrorCap = 100

// OperationStats aggregates one operation type's outcomes.
type OperationStats struct {
	Operation     string        `json:"operation"`
	Total         int64         `json:"total"`
	Succeeded     int64         `json:"succeeded"`
	Failed        int64         `json:"failed"`
	TotalDuration time.Duration `json:"-"`
	AvgDurationMS float64       `json:"avg_duration_ms"`
	MaxDurationMS int64         `json:"max_duration_ms"`
}

// ErrorRecord is one captured failure.
type ErrorRecord struct {
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// HealthStatus is the health snapshot returned to callers.
type HealthStatus struct {
	Status        HealthState                `json:"status"`
	Score         int                        `json:"score"`
	SuccessRate   float64                    `json:"success_rate"`
	CPUPercent    float64                    `json:"cpu_percent"`
	MemoryPercent float64                    `json:"memory_percent"`
	Operations    map[string]*OperationStats `json:"operations"`
}

type activeMetric struct {
	operation string
	startedAt time.Time
}

// Service records operation timings and samples system resources on a fixed
// interval in the background.
type Service struct {
	mu           sync.Mutex
	active       map[string]activeMetric
	ops          map[string]*OperationStats
	recentErrors []ErrorRecord

	cpuPercent float64
	memPercent float64

	stop   chan struct{}
	doneWG sync.WaitGroup
}

// New creates a monitoring service and starts background resource sampling on
// the given interval.
func New(sampleInterval time.Duration) *Service {
	if sampleInterval <= 0 {
		sampleInterval = 30 * time.Second
	}
	s := &Service{
		active: make(map[string]activeMetric),
		ops:    make(map[string]*OperationStats),
		stop:   make(chan struct{}),
	}
	s.doneWG.Add(1)
	go s.sampleLoop(sampleInterval)
	return s
}

// Stop terminates background sampling.
func (s *Service) Stop() {
	close(s.stop)
	s.doneWG.Wait()
}

// RecordStart registers the start of an operation and returns a metric id to
// hand to RecordEnd.
func (s *Service) RecordStart(operation string) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.active[id] = activeMetric{operation: operation, startedAt: time.Now()}
	s.mu.Unlock()
	return id
}

// RecordEnd finalizes a metric. Unknown ids are ignored.
func (s *Service) RecordEnd(metricID string, success bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.active[metricID]
	if !ok {
		return
	}
	delete(s.active, metricID)

	stats := s.ops[m.operation]
	if stats == nil {
		stats = &OperationStats{Operation: m.operation}
		s.ops[m.operation] = stats
	}

	elapsed := time.Since(m.startedAt)
	stats.Total++
	stats.TotalDuration += elapsed
	stats.AvgDurationMS = float64(stats.TotalDuration.Milliseconds()) / float64(stats.Total)
	if ms := elapsed.Milliseconds(); ms > stats.MaxDurationMS {
		stats.MaxDurationMS = ms
	}

	if success {
		stats.Succeeded++
		return
	}
	stats.Failed++
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	s.recentErrors = append(s.recentErrors, ErrorRecord{
		Operation: m.operation,
		Message:   msg,
		At:        time.Now(),
	})
	if len(s.recentErrors) > recentErrorCap {
		s.recentErrors = s.recentErrors[len(s.recentErrors)-recentErrorCap:]
	}
}

// GetRecentErrors returns up to limit most recent error records, newest first.
func (s *Service) GetRecentErrors(limit int) []ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.recentErrors) {
		limit = len(s.recentErrors)
	}
	out := make([]ErrorRecord, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.recentErrors[len(s.recentErrors)-1-i]
	}
	return out
}

// GetHealthStatus computes the health snapshot. The score starts at 100 and
// is deducted for low success rate (<90% minor, <80% larger) and for high
// CPU/memory utilization (80%/90% tiers); status thresholds are >=90 healthy
// and >=70 warning.
func (s *Service) GetHealthStatus() HealthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total, succeeded int64
	opsCopy := make(map[string]*OperationStats, len(s.ops))
	for name, st := range s.ops {
		copied := *st
		opsCopy[name] = &copied
		total += st.Total
		succeeded += st.Succeeded
	}

	successRate := 1.0
	if total > 0 {
		successRate = float64(succeeded) / float64(total)
	}

	score := 100
	switch {
	case successRate < 0.8:
		score -= 30
	case successRate < 0.9:
		score -= 10
	}
	switch {
	case s.cpuPercent > 90:
		score -= 20
	case s.cpuPercent > 80:
		score -= 10
	}
	switch {
	case s.memPercent > 90:
		score -= 20
	case s.memPercent > 80:
		score -= 10
	}
	if score < 0 {
		score = 0
	}

	state := StateCritical
	switch {
	case score >= 90:
		state = StateHealthy
	case score >= 70:
		state = StateWarning
	}

	return HealthStatus{
		Status:        state,
		Score:         score,
		SuccessRate:   successRate,
		CPUPercent:    s.cpuPercent,
		MemoryPercent: s.memPercent,
		Operations:    opsCopy,
	}
}

// sampleLoop refreshes CPU/memory gauges until Stop is called. Sampling runs
// independently of request handling.
func (s *Service) sampleLoop(interval time.Duration) {
	defer s.doneWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sampleOnce()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sampleOnce()
		}
	}
}

func (s *Service) sampleOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var cpuPct, memPct float64
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		cpuPct = percents[0]
	} else if err != nil {
		slog.Debug("cpu sample failed", "error", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		memPct = vm.UsedPercent
	} else {
		slog.Debug("memory sample failed", "error", err)
	}

	s.mu.Lock()
	s.cpuPercent = cpuPct
	s.memPercent = memPct
	s.mu.Unlock()
}

// SetResourceLevels overrides the sampled gauges. Test hook.
func (s *Service) SetResourceLevels(cpuPercent, memPercent float64) {
	s.mu.Lock()
	s.cpuPercent = cpuPercent
	s.memPercent = memPercent
	s.mu.Unlock()
}
