package admin

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"parkly/internal/reconciliation"
	"parkly/internal/shared/apperrors"
	"parkly/pkg/logger"
)

// logTailLines is how many of the newest log lines a viewer returns
const logTailLines = 100

// Reconciler is the part of the scheduler admins can drive by hand
type Reconciler interface {
	RunOnce(ctx context.Context) (reconciliation.SweepResult, error)
	Status() reconciliation.JobStatus
}

// LogPage is a log viewer response
type LogPage struct {
	Channel string                   `json:"channel"`
	Count   int                      `json:"count"`
	Entries []map[string]interface{} `json:"entries"`
}

type Service interface {
	Cleanup(ctx context.Context) (*reconciliation.SweepResult, error)
	JobStatus() reconciliation.JobStatus
	Logs(channel string) (*LogPage, error)
}

type service struct {
	reconciler Reconciler
	logDir     string
	log        *logger.Logger
}

func NewService(reconciler Reconciler, logDir string, log *logger.Logger) Service {
	return &service{reconciler: reconciler, logDir: logDir, log: log}
}

// Cleanup runs one reconciliation pass now. Partial results are still returned alongside sweep errors.
func (s *service) Cleanup(ctx context.Context) (*reconciliation.SweepResult, error) {
	result, err := s.reconciler.RunOnce(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "manual cleanup finished with errors", "error", err.Error())
		return &result, apperrors.Internal("Cleanup finished with errors", err)
	}
	s.log.InfoContext(ctx, "manual cleanup finished", "transitioned", result.Total(), "failed", result.Failed)
	return &result, nil
}

func (s *service) JobStatus() reconciliation.JobStatus {
	return s.reconciler.Status()
}

// Logs returns the newest lines of a channel's log file, newest first.
// Lines that are not JSON objects come back as {"message": line}.
func (s *service) Logs(channel string) (*LogPage, error) {
	if channel != logger.ChannelWebsite && channel != logger.ChannelJobs {
		return nil, apperrors.NotFound("Unknown log channel")
	}

	lines, err := tail(logger.FilePath(s.logDir, channel), logTailLines)
	if err != nil {
		return nil, apperrors.Internal("Failed to read log file", err)
	}

	entries := make([]map[string]interface{}, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil || entry == nil {
			entry = map[string]interface{}{"message": lines[i]}
		}
		entries = append(entries, entry)
	}
	return &LogPage{Channel: channel, Count: len(entries), Entries: entries}, nil
}

// tail keeps the last n non-empty lines of path. A missing file has no lines.
func tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	}
	return ring, scanner.Err()
}
