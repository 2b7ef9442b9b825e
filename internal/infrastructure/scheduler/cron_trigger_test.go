package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	mu    sync.Mutex
	types []JobType
	err   error
}

func (r *recordingSubmitter) Schedule(jobType JobType) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.types = append(r.types, jobType)
	return NewJob(jobType, 0), nil
}

func (r *recordingSubmitter) submitted() []JobType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]JobType(nil), r.types...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestTrigger(cfg TriggerConfig, start time.Time) (*CronTrigger, *recordingSubmitter, *fakeClock) {
	sub := &recordingSubmitter{}
	clock := &fakeClock{now: start}
	trigger := NewCronTrigger(cfg, sub, nil)
	trigger.now = clock.Now
	trigger.lastExpiry = start
	return trigger, sub, clock
}

func TestCronTrigger_ReorderOncePerDay(t *testing.T) {
	cfg := TriggerConfig{ReorderHour: 2, ReorderMinute: 30}
	trigger, sub, clock := newTestTrigger(cfg, time.Date(2024, 3, 1, 2, 29, 0, 0, time.Local))

	trigger.tick()
	assert.Empty(t, sub.submitted())

	clock.Set(time.Date(2024, 3, 1, 2, 30, 0, 0, time.Local))
	trigger.tick()
	clock.Set(time.Date(2024, 3, 1, 2, 30, 40, 0, time.Local))
	trigger.tick()
	assert.Equal(t, []JobType{JobTypeReorderSweep}, sub.submitted())

	clock.Set(time.Date(2024, 3, 2, 2, 30, 0, 0, time.Local))
	trigger.tick()
	assert.Equal(t, []JobType{JobTypeReorderSweep, JobTypeReorderSweep}, sub.submitted())
}

func TestCronTrigger_ExpiryInterval(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	cfg := TriggerConfig{ExpiryInterval: time.Hour, ReorderHour: 2}
	trigger, sub, clock := newTestTrigger(cfg, start)

	clock.Set(start.Add(59 * time.Minute))
	trigger.tick()
	assert.Empty(t, sub.submitted())

	clock.Set(start.Add(time.Hour))
	trigger.tick()
	clock.Set(start.Add(time.Hour + time.Minute))
	trigger.tick()
	assert.Equal(t, []JobType{JobTypeExpirySweep}, sub.submitted())

	clock.Set(start.Add(2 * time.Hour))
	trigger.tick()
	assert.Len(t, sub.submitted(), 2)
}

func TestCronTrigger_ExpiryDisabled(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	trigger, sub, clock := newTestTrigger(TriggerConfig{ReorderHour: 2}, start)

	clock.Set(start.Add(48 * time.Hour))
	trigger.tick()
	assert.Empty(t, sub.submitted())
}

func TestCronTrigger_SubmitErrorIsSwallowed(t *testing.T) {
	start := time.Date(2024, 3, 1, 2, 0, 0, 0, time.Local)
	trigger, sub, _ := newTestTrigger(TriggerConfig{ReorderHour: 2}, start)
	sub.err = ErrJobQueueFull

	assert.NotPanics(t, trigger.tick)
	assert.Empty(t, sub.submitted())
}

func TestCronTrigger_TriggerNow(t *testing.T) {
	trigger, sub, _ := newTestTrigger(DefaultTriggerConfig(), time.Now())

	job, err := trigger.TriggerNow(JobTypeExpirySweep)
	require.NoError(t, err)
	assert.Equal(t, JobTypeExpirySweep, job.Type)
	assert.Equal(t, []JobType{JobTypeExpirySweep}, sub.submitted())
}

func TestCronTrigger_StartStop(t *testing.T) {
	cfg := TriggerConfig{ExpiryInterval: time.Millisecond, CheckInterval: 5 * time.Millisecond, ReorderHour: -1}
	sub := &recordingSubmitter{}
	trigger := NewCronTrigger(cfg, sub, nil)

	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))
	require.Eventually(t, func() bool { return len(sub.submitted()) > 0 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
}
