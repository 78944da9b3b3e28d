package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/task"
)

// Job is the queue job type the pipeline runs.
type Job = task.Job[domain.Payload, domain.Result]

// Stages reported by the job function, in order.
const (
	StageDownload      = "download"
	StageAnalyze       = "analyze"
	StageTranscription = "transcription"
	StageCleanup       = "cleanup"
	StageComplete      = "complete"
)

// UntitledPodcast is used when the downloader finds no title.
const UntitledPodcast = "Untitled Podcast"

// ErrNoAudio is returned when a download yields no audio file.
var ErrNoAudio = errors.New("download produced no audio file")

// Audio is a downloaded episode.
type Audio struct {
	Title             string  `json:"title"`
	Path              string  `json:"audioPath"`
	EstimatedDuration float64 `json:"estimatedDuration"`
}

// Options are the per-job transcription settings.
type Options struct {
	URL            string
	Title          string
	Summarize      bool
	AudioLanguage  string
	OutputLanguage string
}

// ProgressFunc reports percent complete with a stage and a display text.
type ProgressFunc func(percent int, stage, stageText string)

// LogFunc forwards a free-form message to the job's session.
type LogFunc func(message string)

// Downloader fetches the audio of an episode.
type Downloader interface {
	Download(ctx context.Context, url string) (Audio, error)
}

// Transcriber turns downloaded audio into saved transcript files.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio, opts Options, progress ProgressFunc, log LogFunc) (domain.Result, error)
}

// Cleaner removes temporary files of a finished download. Downloaders
// that implement it are called after transcription.
type Cleaner interface {
	Cleanup(audio Audio) error
}

// NewJobFunc returns the job function that downloads, transcribes and
// cleans up one episode.
func NewJobFunc(d Downloader, t Transcriber, logger *slog.Logger) task.JobFunc[domain.Payload, domain.Result] {
	logger = logger.With("component", "pipeline")

	return func(ctx context.Context, job Job, progress *task.Reporter) (domain.Result, error) {
		log := logger.With("job_id", job.ID, "url", job.Payload.URL)

		progress.Report(10, StageDownload, "Downloading audio")
		audio, err := d.Download(ctx, job.Payload.URL)
		if err != nil {
			return domain.Result{}, fmt.Errorf("download failed: %w", err)
		}
		if audio.Path == "" {
			return domain.Result{}, ErrNoAudio
		}
		if strings.TrimSpace(audio.Title) == "" {
			audio.Title = UntitledPodcast
		}
		log.Info("audio downloaded", "title", audio.Title, "path", audio.Path)

		progress.Report(20, StageAnalyze, "Analyzing audio")

		progress.Report(30, StageTranscription, "Transcribing")
		opts := Options{
			URL:            job.Payload.URL,
			Title:          audio.Title,
			Summarize:      job.Payload.Operation.Summarize(),
			AudioLanguage:  job.Payload.AudioLanguage,
			OutputLanguage: job.Payload.OutputLanguage,
		}
		result, err := t.Transcribe(ctx, audio, opts, progress.Report, progress.Log)

		progress.Report(95, StageCleanup, "Cleaning up temporary files")
		if c, ok := d.(Cleaner); ok {
			if cerr := c.Cleanup(audio); cerr != nil {
				log.Warn("failed to clean up audio", "path", audio.Path, "error", cerr)
			}
		}

		if err != nil {
			return domain.Result{}, fmt.Errorf("transcription failed: %w", err)
		}

		progress.Report(100, StageComplete, "Complete")

		result.PodcastTitle = audio.Title
		result.EstimatedDuration = audio.EstimatedDuration
		if result.SavedFiles == nil {
			result.SavedFiles = []domain.SavedFile{}
		}
		log.Info("episode transcribed", "saved_file_count", len(result.SavedFiles))
		return result, nil
	}
}
