package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	appLog "schedcal/internal/log"
)

// Snapshot copies the store file into dir as <unix_ts>_events.json and
// returns the snapshot path. A store file that does not exist yet is not
// an error; it just means there is nothing to back up.
func Snapshot(storePath, dir string) (string, error) {
	src, err := os.Open(storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open store file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("%d_events.json", time.Now().Unix())
	dstPath := filepath.Join(dir, name)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy snapshot: %w", err)
	}
	return dstPath, nil
}

// Scheduler runs Snapshot on a cron schedule.
type Scheduler struct {
	c         *cron.Cron
	storePath string
	dir       string
}

// NewScheduler prepares a scheduler for the given store file and backup
// directory. Nothing runs until Start.
func NewScheduler(storePath, dir string) *Scheduler {
	return &Scheduler{
		c:         cron.New(),
		storePath: storePath,
		dir:       dir,
	}
}

// Start registers the cron spec (standard 5-field syntax) and launches the
// scheduler. An empty spec is a no-op.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := s.c.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	s.c.Start()
	appLog.Info("backup scheduler started", "spec", spec, "dir", s.dir)
	return nil
}

// Stop halts the scheduler; a snapshot already in flight finishes.
func (s *Scheduler) Stop() {
	ctx := s.c.Stop()
	<-ctx.Done()
}

func (s *Scheduler) run() {
	path, err := Snapshot(s.storePath, s.dir)
	if err != nil {
		appLog.Error("scheduled backup failed", err, "store", s.storePath)
		return
	}
	if path == "" {
		appLog.Debug("scheduled backup skipped, no store file yet", "store", s.storePath)
		return
	}
	appLog.Info("backup written", "path", path)
}
