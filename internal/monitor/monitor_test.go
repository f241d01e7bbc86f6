package monitor

import (
	"errors"
	"testing"
	"time"
)

func TestRecordedOperationsAggregated(t *testing.T) {
	s := New(time.Hour)
	defer s.Stop()

	id := s.RecordStart("embed_repository")
	s.RecordEnd(id, true, nil)

	id = s.RecordStart("embed_repository")
	s.RecordEnd(id, false, errors.New("embed failed"))

	status := s.GetHealthStatus()
	stats := status.Operations["embed_repository"]
	if stats == nil {
		t.Fatal("missing operation stats")
	}
	if stats.Total != 2 || stats.Succeeded != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	errs := s.GetRecentErrors(10)
	if len(errs) != 1 || errs[0].Message != "embed failed" {
		t.Errorf("recent errors = %+v", errs)
	}
}

func TestRecentErrorsNewestFirst(t *testing.T) {
	s := New(time.Hour)
	defer s.Stop()

	for _, msg := range []string{"first", "second", "third"} {
		id := s.RecordStart("op")
		s.RecordEnd(id, false, errors.New(msg))
	}

	errs := s.GetRecentErrors(2)
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2", len(errs))
	}
	if errs[0].Message != "third" || errs[1].Message != "second" {
		t.Errorf("order = %s, %s", errs[0].Message, errs[1].Message)
	}
}

func TestRecordEndUnknownIDIgnored(t *testing.T) {
	s := New(time.Hour)
	defer s.Stop()

	s.RecordEnd("no-such-metric", false, errors.New("x"))
	if status := s.GetHealthStatus(); len(status.Operations) != 0 {
		t.Errorf("operations = %+v", status.Operations)
	}
}

func TestHealthScoring(t *testing.T) {
	s := New(time.Hour)
	defer s.Stop()

	s.SetResourceLevels(10, 10)
	if status := s.GetHealthStatus(); status.Status != StateHealthy || status.Score != 100 {
		t.Errorf("idle health = %s/%d", status.Status, status.Score)
	}

	s.SetResourceLevels(95, 95)
	if status := s.GetHealthStatus(); status.Status != StateCritical || status.Score != 60 {
		t.Errorf("loaded health = %s/%d, want critical/60", status.Status, status.Score)
	}

	s.SetResourceLevels(85, 10)
	if status := s.GetHealthStatus(); status.Status != StateHealthy || status.Score != 90 {
		t.Errorf("cpu-warm health = %s/%d, want healthy/90", status.Status, status.Score)
	}

	// One success, one failure: 50% success rate costs 30 points.
	id := s.RecordStart("op")
	s.RecordEnd(id, true, nil)
	id = s.RecordStart("op")
	s.RecordEnd(id, false, errors.New("x"))
	s.SetResourceLevels(10, 10)
	if status := s.GetHealthStatus(); status.Status != StateWarning || status.Score != 70 {
		t.Errorf("degraded health = %s/%d, want warning/70", status.Status, status.Score)
	}
}
