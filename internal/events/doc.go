// Package events provides the job lifecycle events emitted by the queue and
// the handler interfaces that consume them.
//
// The queue emits an event for every state transition and progress report
// without knowing who listens. Handlers mirror those events into durable
// history, per-session progress streams and external message buses.
//
// The primary components are:
// - JobEvent: a single lifecycle transition or progress report
// - EventHandler: interface for components that react to events
// - EventEmitter: interface for components that publish events
package events
