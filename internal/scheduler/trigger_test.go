package scheduler

import "testing"

func TestManualTriggerFiresSynchronously(t *testing.T) {
	fired := 0
	if err := (ManualTrigger{}).Start(func() { fired++ }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestCronTriggerRejectsInvalidSpec(t *testing.T) {
	trig := NewCronTrigger("not a cron spec")
	if err := trig.Start(func() {}); err == nil {
		t.Fatal("want error for invalid spec")
	}
}

func TestCronTriggerStartStop(t *testing.T) {
	trig := NewCronTrigger("0 2 * * *")
	if err := trig.Start(func() {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	trig.Stop()
}

func TestCronTriggerStopWithoutStart(t *testing.T) {
	NewCronTrigger("0 2 * * *").Stop()
}
