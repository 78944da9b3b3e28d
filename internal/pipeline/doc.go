// Package pipeline builds the job function that turns a podcast URL into
// transcript and summary files. The heavy lifting is delegated to a
// Downloader and a Transcriber; CommandBackend implements both by running
// external commands.
package pipeline
