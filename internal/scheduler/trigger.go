package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Trigger delivers run signals to a subscriber without the subscriber knowing
// about wall-clock scheduling. The pipeline subscribes once; tests use
// ManualTrigger to fire a run synchronously.
type Trigger interface {
	Start(run func()) error
	Stop()
}

// CronTrigger fires on a standard 5-field cron schedule, e.g. "0 2 * * *"
// for the daily 02:00 run.
type CronTrigger struct {
	Spec string

	c *cron.Cron
}

func NewCronTrigger(spec string) *CronTrigger {
	return &CronTrigger{Spec: spec}
}

func (t *CronTrigger) Start(run func()) error {
	c := cron.New()
	if _, err := c.AddFunc(t.Spec, run); err != nil {
		return fmt.Errorf("cron trigger: parse spec %q: %w", t.Spec, err)
	}

	c.Start()
	t.c = c
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (t *CronTrigger) Stop() {
	if t.c == nil {
		return
	}
	<-t.c.Stop().Done()
}

// ManualTrigger fires exactly once, synchronously, on Start. Used for ad-hoc
// invocations and tests.
type ManualTrigger struct{}

func (ManualTrigger) Start(run func()) error {
	run()
	return nil
}

func (ManualTrigger) Stop() {}
