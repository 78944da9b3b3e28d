// Package domain contains the podcast transcription entities shared by the
// queue, the history store and the HTTP layer. It has no dependencies on
// infrastructure packages.
package domain
