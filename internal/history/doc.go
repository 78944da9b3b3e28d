// Package history keeps the durable, most-recent-first sequence of
// transcription records. The in-memory sequence is authoritative; every
// mutation rewrites the whole sequence through a Persister.
package history
