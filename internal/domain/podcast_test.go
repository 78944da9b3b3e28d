package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPayloadDefaults(t *testing.T) {
	t.Parallel()

	p := NewPayload("  https://example.com/ep1  ", "", "", "")

	assert.Equal(t, "https://example.com/ep1", p.URL)
	assert.Equal(t, OperationTranscribeOnly, p.Operation)
	assert.Equal(t, "auto", p.AudioLanguage)
	assert.Equal(t, "zh", p.OutputLanguage)
	assert.Equal(t, p.URL, p.SourceURL())
}

func TestPayloadValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload Payload
		wantErr error
	}{
		{
			name:    "valid transcribe only",
			payload: NewPayload("https://example.com/a", OperationTranscribeOnly, "", ""),
		},
		{
			name:    "valid summarize",
			payload: NewPayload("https://example.com/a", OperationTranscribeSummarize, "en", "en"),
		},
		{
			name:    "blank url",
			payload: Payload{URL: "   ", Operation: OperationTranscribeOnly},
			wantErr: ErrEmptyURL,
		},
		{
			name:    "unknown operation",
			payload: Payload{URL: "https://example.com/a", Operation: "translate"},
			wantErr: ErrInvalidOperation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.wantErr), "expected %v, got %v", tc.wantErr, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestOperationSummarize(t *testing.T) {
	t.Parallel()

	assert.True(t, OperationTranscribeSummarize.Summarize())
	assert.False(t, OperationTranscribeOnly.Summarize())
}

func TestResultSummary(t *testing.T) {
	t.Parallel()

	r := Result{
		PodcastTitle: "Episode 1",
		SavedFiles:   []SavedFile{{Type: "transcript", Filename: "ep1.md", Size: 42}},
	}

	assert.Equal(t, "Episode 1", r.Title())
	assert.Len(t, r.Files(), 1)
}
