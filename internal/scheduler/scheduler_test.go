package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSnapshotter struct {
	calls int
}

func (f *fakeSnapshotter) WriteSnapshot(ctx context.Context, takenAt time.Time) (string, error) {
	f.calls++
	return "snapshot:" + takenAt.Format("2006-01-02"), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func TestAddJobValidation(t *testing.T) {
	s := newTestService(t)

	if _, err := s.AddJob("", "0 2 * * *", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Errorf("empty name: got %v", err)
	}
	if _, err := s.AddJob("snapshot", "  ", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Errorf("empty cron: got %v", err)
	}
	if _, err := s.AddJob("snapshot", "not a cron", func() {}); err == nil {
		t.Error("invalid cron accepted")
	}
	if _, err := s.AddJob("snapshot", "0 2 * * *", func() {}); err != nil {
		t.Errorf("valid job rejected: %v", err)
	}
}

func TestRegisterSnapshotJob(t *testing.T) {
	s := newTestService(t)

	if err := s.RegisterSnapshotJob(&fakeSnapshotter{}, "02:00"); err != nil {
		t.Errorf("RegisterSnapshotJob: %v", err)
	}
	if err := s.RegisterSnapshotJob(&fakeSnapshotter{}, "2am"); err == nil {
		t.Error("invalid clock time accepted")
	}
	if err := s.RegisterSnapshotJob(&fakeSnapshotter{}, "25:00"); err == nil {
		t.Error("out of range hour accepted")
	}
}

func TestParseClock(t *testing.T) {
	hour, minute, err := parseClock("03:30")
	if err != nil {
		t.Fatalf("parseClock: %v", err)
	}
	if hour != 3 || minute != 30 {
		t.Errorf("parseClock = %d:%d, want 3:30", hour, minute)
	}
}

func TestStopIdempotent(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
