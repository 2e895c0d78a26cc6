package scheduler

import "testing"

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron job without error
	if err := s.AddJob("*/5 * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
}

func TestSchedulerRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("not a cron spec", func() {}); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
	// Six-field specs are not accepted by the 5-field parser.
	if err := s.AddJob("0 */5 * * * *", func() {}); err == nil {
		t.Error("Expected error for six-field cron expression")
	}
}
