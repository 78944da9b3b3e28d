package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/spf13/afero"
)

// ErrNoCommand is returned when a backend command is not configured.
var ErrNoCommand = errors.New("pipeline command not configured")

// progressPrefix marks stderr lines that carry a JSON progress report
// instead of a log message.
const progressPrefix = "@progress "

// CommandConfig holds the external commands the backend runs. Commands
// are split on whitespace; no shell is involved.
type CommandConfig struct {
	DownloadCommand   string
	TranscribeCommand string
	WorkDir           string
}

// CommandBackend implements Downloader, Transcriber and Cleaner by running
// external commands that print JSON on stdout.
//
// The download command receives the episode URL as its last argument and
// prints an Audio object. The transcribe command receives the audio path
// and prints a domain.Result. Both get PODSCRIBE_* environment variables.
// Each stderr line is forwarded as a log message, except lines starting
// with "@progress " which carry {"percent","stage","stageText"}.
type CommandBackend struct {
	config CommandConfig
	fs     afero.Fs
	logger *slog.Logger
}

// NewCommandBackend creates a backend. fs is used to prepare the work
// directory and remove downloaded audio.
func NewCommandBackend(config CommandConfig, fs afero.Fs, logger *slog.Logger) (*CommandBackend, error) {
	if config.WorkDir != "" {
		if err := fs.MkdirAll(config.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
	}
	return &CommandBackend{
		config: config,
		fs:     fs,
		logger: logger.With("component", "command_backend"),
	}, nil
}

// Download runs the download command for url.
func (b *CommandBackend) Download(ctx context.Context, url string) (Audio, error) {
	var audio Audio
	env := []string{"PODSCRIBE_WORK_DIR=" + b.config.WorkDir}
	if err := b.run(ctx, b.config.DownloadCommand, url, env, &audio, nil, nil); err != nil {
		return Audio{}, err
	}
	return audio, nil
}

// Transcribe runs the transcribe command for the downloaded audio.
func (b *CommandBackend) Transcribe(ctx context.Context, audio Audio, opts Options, progress ProgressFunc, log LogFunc) (domain.Result, error) {
	env := []string{
		"PODSCRIBE_WORK_DIR=" + b.config.WorkDir,
		"PODSCRIBE_URL=" + opts.URL,
		"PODSCRIBE_TITLE=" + opts.Title,
		"PODSCRIBE_SUMMARIZE=" + strconv.FormatBool(opts.Summarize),
		"PODSCRIBE_AUDIO_LANGUAGE=" + opts.AudioLanguage,
		"PODSCRIBE_OUTPUT_LANGUAGE=" + opts.OutputLanguage,
	}

	var result domain.Result
	if err := b.run(ctx, b.config.TranscribeCommand, audio.Path, env, &result, progress, log); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

// Cleanup removes the downloaded audio if it lives under the work
// directory.
func (b *CommandBackend) Cleanup(audio Audio) error {
	if b.config.WorkDir == "" || audio.Path == "" {
		return nil
	}

	rel, err := filepath.Rel(b.config.WorkDir, audio.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}

	if err := b.fs.Remove(audio.Path); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
		return fmt.Errorf("failed to remove %s: %w", audio.Path, err)
	}
	return nil
}

type progressLine struct {
	Percent   int    `json:"percent"`
	Stage     string `json:"stage"`
	StageText string `json:"stageText"`
}

func (b *CommandBackend) run(ctx context.Context, command, arg string, env []string, out any, progress ProgressFunc, log LogFunc) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ErrNoCommand
	}

	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], arg)...)
	cmd.Env = append(cmd.Environ(), env...)
	if b.config.WorkDir != "" {
		cmd.Dir = b.config.WorkDir
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to attach stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", fields[0], err)
	}

	// stderr must be fully read before Wait
	var tail lastLines
	b.forward(stderr, &tail, progress, log)

	if err := cmd.Wait(); err != nil {
		if msg := tail.String(); msg != "" {
			return fmt.Errorf("%s failed: %w: %s", fields[0], err, msg)
		}
		return fmt.Errorf("%s failed: %w", fields[0], err)
	}

	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), out); err != nil {
		return fmt.Errorf("failed to decode %s output: %w", fields[0], err)
	}
	return nil
}

// forward reads stderr line by line until EOF
func (b *CommandBackend) forward(r io.Reader, tail *lastLines, progress ProgressFunc, log LogFunc) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(line, progressPrefix); ok {
			var p progressLine
			if err := json.Unmarshal([]byte(rest), &p); err != nil {
				b.logger.Debug("ignoring malformed progress line", "line", line, "error", err)
				continue
			}
			if progress != nil {
				progress(p.Percent, p.Stage, p.StageText)
			}
			continue
		}

		tail.add(line)
		if log != nil {
			log(line)
		}
	}
	if err := scanner.Err(); err != nil {
		b.logger.Warn("failed to read command stderr", "error", err)
	}
}

// lastLines keeps the last few stderr lines for error messages
type lastLines struct {
	lines []string
}

func (l *lastLines) add(line string) {
	l.lines = append(l.lines, line)
	if len(l.lines) > 3 {
		l.lines = l.lines[1:]
	}
}

func (l *lastLines) String() string {
	return strings.Join(l.lines, "; ")
}
