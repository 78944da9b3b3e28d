// Package shared holds the request decoding, response writing and trace
// helpers used by every HTTP handler.
package shared
