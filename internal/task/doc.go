// Package task implements the sequential job queue. Jobs are admitted in
// FIFO order and executed one at a time by a single runner goroutine; the
// job function reports progress through a Reporter whose receiving end is
// owned by the queue. Every lifecycle transition is published as an
// events.JobEvent so durable history and live observers stay in step with
// the in-memory state.
package task
