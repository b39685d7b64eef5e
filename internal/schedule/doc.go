// Package schedule holds the cron grammar accepted for jobs and the timer
// facility that drives them.
//
// A Timer creates Tasks: start/stop/destroy-capable handles bound to one cron
// expression and callback. CronTimer runs every task off a single process-wide
// robfig/cron instance; FakeTimer is a deterministic substitute for tests.
package schedule
