// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts the job queue, the history store and
// the progress streams to JSON and server-sent event endpoints.
package api
