// Package stream fans queue state out to live subscribers.
//
// Broadcaster pushes periodic snapshots to every subscriber with a
// latest-wins buffer of one, so a slow reader only ever misses
// intermediate states. SessionHub routes per-job progress and log events
// to the subscribers of the job's session. Neither ever blocks the
// publisher.
package stream
