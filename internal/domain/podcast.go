package domain

import (
	"fmt"
	"strings"
)

// Operation selects what the pipeline does with a downloaded episode.
type Operation string

// Supported operations
const (
	OperationTranscribeOnly      Operation = "transcribe_only"
	OperationTranscribeSummarize Operation = "transcribe_summarize"
)

// Defaults applied to batch submissions that omit them.
const (
	DefaultOperation      = OperationTranscribeOnly
	DefaultAudioLanguage  = "auto"
	DefaultOutputLanguage = "zh"
)

// Summarize reports whether the operation includes a summary pass.
func (o Operation) Summarize() bool {
	return o == OperationTranscribeSummarize
}

// Payload holds the caller-supplied parameters of one transcription job.
type Payload struct {
	URL            string    `json:"url"`
	Operation      Operation `json:"operation"`
	AudioLanguage  string    `json:"audioLanguage"`
	OutputLanguage string    `json:"outputLanguage"`
}

// NewPayload trims the URL and fills empty options with their defaults.
func NewPayload(url string, op Operation, audioLanguage, outputLanguage string) Payload {
	p := Payload{
		URL:            strings.TrimSpace(url),
		Operation:      op,
		AudioLanguage:  audioLanguage,
		OutputLanguage: outputLanguage,
	}
	if p.Operation == "" {
		p.Operation = DefaultOperation
	}
	if p.AudioLanguage == "" {
		p.AudioLanguage = DefaultAudioLanguage
	}
	if p.OutputLanguage == "" {
		p.OutputLanguage = DefaultOutputLanguage
	}
	return p
}

// SourceURL returns the episode URL.
func (p Payload) SourceURL() string {
	return p.URL
}

// Validate checks the payload can be handed to the pipeline.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.URL) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyURL)
	}

	switch p.Operation {
	case OperationTranscribeOnly, OperationTranscribeSummarize:
	default:
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidOperation, p.Operation)
	}

	return nil
}

// SavedFile describes one artifact written by the pipeline.
type SavedFile struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Result is what a successful transcription job produces.
type Result struct {
	PodcastTitle      string      `json:"podcastTitle"`
	SavedFiles        []SavedFile `json:"savedFiles"`
	Transcript        string      `json:"transcript,omitempty"`
	Summary           string      `json:"summary,omitempty"`
	EstimatedDuration float64     `json:"estimatedDuration,omitempty"`
	ActualDuration    float64     `json:"actualDuration,omitempty"`
}

// Title returns the podcast title recorded in history.
func (r Result) Title() string {
	return r.PodcastTitle
}

// Files returns the artifacts recorded in history.
func (r Result) Files() []SavedFile {
	return r.SavedFiles
}
