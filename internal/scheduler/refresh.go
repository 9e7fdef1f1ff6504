package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/pipeline"
)

// Assessor runs an assessment over a client location file.
type Assessor interface {
	AssessFile(ctx context.Context, window domain.DateWindow, r io.Reader) (pipeline.AssessmentRun, error)
}

// WindowCache drops cached seismic data for a window.
type WindowCache interface {
	Forget(window domain.DateWindow)
}

// RefreshJob re-assesses the client locations over the trailing window. When the
// window rolls over, the previous window's cached events are released.
type RefreshJob struct {
	assessor     Assessor
	cache        WindowCache
	path         string
	lookbackDays int
	logger       *slog.Logger

	mu   sync.Mutex
	last domain.DateWindow
}

// NewRefreshJob creates a RefreshJob. cache may be nil.
func NewRefreshJob(assessor Assessor, cache WindowCache, path string, lookbackDays int, logger *slog.Logger) *RefreshJob {
	return &RefreshJob{
		assessor:     assessor,
		cache:        cache,
		path:         path,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

func (j *RefreshJob) Name() string { return "assessment-refresh" }

func (j *RefreshJob) Run(ctx context.Context) error {
	window := domain.DefaultDateWindow(j.lookbackDays)
	j.rollover(window)

	f, err := os.Open(j.path)
	if err != nil {
		return fmt.Errorf("open client locations: %w", err)
	}
	defer f.Close()

	run, err := j.assessor.AssessFile(ctx, window, f)
	if err != nil {
		return err
	}
	j.logger.Info("assessment refreshed", "run_id", run.RunID, "window", window.String(), "targets", len(run.Assessments))
	return nil
}

func (j *RefreshJob) rollover(window domain.DateWindow) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cache != nil && j.last != (domain.DateWindow{}) && j.last != window {
		j.cache.Forget(j.last)
		j.logger.Debug("released cached window", "window", j.last.String())
	}
	j.last = window
}
