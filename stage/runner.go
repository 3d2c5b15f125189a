package stage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/chunk"
	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/logger"
	"github.com/teranos/pipestage/provenance"
	"github.com/teranos/pipestage/sym"
)

// Lifecycle events, printed and recorded verbatim
const (
	EventStarting = "Starting"
	EventStopping = "Stopping..."
	EventStopped  = "Stopped."
	EventFarewell = "So long"
)

// Provenance is the durable log a Runner reports to.
// *provenance.Logger satisfies it.
type Provenance interface {
	Record(ctx context.Context, ev provenance.Event) error
	Disconnect() error
}

// RunnerConfig identifies a stage instance and tunes its loop.
type RunnerConfig struct {
	Instance string
	BaseDir  string
	// Class overrides the producer name; defaults to the transform's type name
	Class string
	// RescanInterval bounds how often the input directory is walked in full.
	// Zero walks it on every pass of the loop.
	RescanInterval  time.Duration
	GCAfterChunk    bool
	ReadBufferBytes int
}

// RunnerConfigFrom converts the stage section of the resolved configuration.
func RunnerConfigFrom(cfg am.StageConfig) RunnerConfig {
	return RunnerConfig{
		Instance:        cfg.Instance,
		BaseDir:         cfg.BaseDir,
		Class:           cfg.Class,
		RescanInterval:  cfg.RescanInterval,
		GCAfterChunk:    cfg.GCAfterChunk,
		ReadBufferBytes: cfg.ReadBufferBytes,
	}
}

// Option configures a Runner.
type Option func(*Runner)

// WithProvenance sets the durable log. Without it events are only printed.
func WithProvenance(p Provenance) Option {
	return func(r *Runner) { r.prov = p }
}

// WithLogger sets the parent logger; the runner logs under a child named
// "Class/instance".
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Runner) { r.base = l }
}

// Runner drives one stage instance. All state is per instance: two Runners
// in one process share nothing.
type Runner struct {
	cfg       RunnerConfig
	dirs      chunk.Dirs
	transform Transform
	class     string
	runID     string

	base *zap.SugaredLogger
	log  *zap.SugaredLogger
	prov Provenance

	scans *rate.Limiter

	stopped  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRunner creates the instance directories and returns a Runner for t.
func NewRunner(cfg RunnerConfig, t Transform, opts ...Option) (*Runner, error) {
	if cfg.Instance == "" {
		return nil, errors.NewMissingConfigError("stage.instance")
	}
	if cfg.BaseDir == "" {
		return nil, errors.NewMissingConfigError("stage.base_dir")
	}
	if t == nil {
		return nil, errors.NewInvalidRequestError("nil transform")
	}
	if cfg.ReadBufferBytes <= 0 {
		cfg.ReadBufferBytes = am.DefaultReadBufferBytes
	}

	r := &Runner{
		cfg:       cfg,
		dirs:      chunk.NewDirs(cfg.BaseDir, cfg.Instance),
		transform: t,
		class:     cfg.Class,
		runID:     uuid.NewString(),
		base:      logger.Logger,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.class == "" {
		r.class = className(t)
	}
	r.log = r.base.Named(r.class + "/" + cfg.Instance)

	limit := rate.Inf
	if cfg.RescanInterval > 0 {
		limit = rate.Every(cfg.RescanInterval)
	}
	r.scans = rate.NewLimiter(limit, 1)

	if err := r.dirs.Ensure(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dirs returns the instance's directory triple.
func (r *Runner) Dirs() chunk.Dirs { return r.dirs }

// Class returns the producer name.
func (r *Runner) Class() string { return r.class }

// RunID identifies this runner's process lifetime in provenance rows.
func (r *Runner) RunID() string { return r.runID }

// Stop asks the loop to exit before its next dispatch. A chunk already in
// ProcessFile runs to completion. Safe to call from a signal handler
// goroutine and more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.log.Info(EventStopping)
		r.stopped.Store(true)
		close(r.stopCh)
	})
}

// Stopped reports whether Stop has been called.
func (r *Runner) Stopped() bool {
	return r.stopped.Load()
}

// ProcessFile takes chunk name from input to completed: parse, transform,
// publish, archive, record. It reports false without error when name is not
// a candidate or is no longer in the input directory.
//
// The source is archived only after the output is published, so a failure
// at any step leaves it in input for a later run.
func (r *Runner) ProcessFile(ctx context.Context, name string) (bool, error) {
	if !chunk.IsCandidate(name) {
		return false, nil
	}
	ok, err := r.dirs.Exists(name)
	if err != nil || !ok {
		return false, err
	}

	log := logger.ChildLogger(r.log, logger.FieldChunk, name)
	log.Infow("Processing "+name, "symbol", sym.ForState(chunk.Processing.String()), logger.FieldState, chunk.Processing.String())
	start := time.Now()

	data, err := r.parse(name)
	if err != nil {
		return false, err
	}
	rowsIn := Count(data)

	out, err := r.transform.NewData(data)
	if err != nil {
		return false, errors.Wrapf(err, "transform %s", name)
	}
	rowsOut := Count(out)

	err = chunk.PublishFrom(r.dirs.Output, name, func(w io.Writer) error {
		return r.transform.Write(w, out)
	})
	if err != nil {
		return false, err
	}
	elapsed := time.Since(start)
	log.Debugw("Published", "symbol", sym.ForState(chunk.Published.String()), logger.FieldState, chunk.Published.String())

	if err := r.dirs.Complete(name); err != nil {
		return false, err
	}

	msg := summary(name, rowsIn, rowsOut, elapsed)
	log.Infow(msg,
		"symbol", sym.ForState(chunk.Completed.String()),
		logger.FieldState, chunk.Completed.String(),
		logger.FieldRowsIn, rowsIn,
		logger.FieldRowsOut, rowsOut,
		logger.FieldElapsedMS, elapsed.Milliseconds(),
		logger.FieldRPS, rps(rowsIn, elapsed),
		logger.FieldRunID, r.runID,
	)

	if err := r.record(ctx, provenance.Event{
		Event:     msg,
		Filename:  name,
		RowsIn:    int64(rowsIn),
		RowsOut:   int64(rowsOut),
		ElapsedMS: elapsed.Milliseconds(),
	}); err != nil {
		return true, err
	}

	r.collect()
	return true, nil
}

func (r *Runner) parse(name string) (any, error) {
	f, err := os.Open(r.dirs.InputPath(name))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	defer f.Close()
	return r.transform.Parse(bufio.NewReaderSize(f, r.cfg.ReadBufferBytes), name)
}

// summary formats the per-chunk line, e.g.
// "orders.dat: 5 -> 5 rows in 0.01s (500 rps)".
func summary(name string, rowsIn, rowsOut int, elapsed time.Duration) string {
	return fmt.Sprintf("%s: %d -> %d rows in %.2fs (%d rps)",
		name, rowsIn, rowsOut, elapsed.Seconds(), rps(rowsIn, elapsed))
}

// rps is input rows per second, truncated. A zero elapsed time reports 0.
func rps(rows int, elapsed time.Duration) int64 {
	if elapsed <= 0 {
		return 0
	}
	return int64(float64(rows) / elapsed.Seconds())
}

// record writes ev and drops the connection so none outlives the unit of
// work.
func (r *Runner) record(ctx context.Context, ev provenance.Event) error {
	if r.prov == nil {
		return nil
	}
	ev.Class = r.class
	ev.Instance = r.cfg.Instance
	ev.RunID = r.runID

	err := r.prov.Record(ctx, ev)
	if derr := r.prov.Disconnect(); derr != nil {
		err = errors.Join(err, derr)
	}
	if err != nil {
		return errors.Wrapf(err, "record %q", ev.Event)
	}
	return nil
}

// announce prints a lifecycle event and records it.
func (r *Runner) announce(ctx context.Context, event string) error {
	r.log.Infow(event, "symbol", sym.Stage)
	return r.record(ctx, provenance.Event{Event: event})
}

// collect hints the runtime to return memory between chunks, then logs the
// resident set size.
func (r *Runner) collect() {
	if !r.cfg.GCAfterChunk {
		return
	}
	runtime.GC()
	debug.FreeOSMemory()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		r.log.Debugw("Resident memory unavailable", logger.FieldError, err)
		return
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		r.log.Debugw("Resident memory unavailable", logger.FieldError, err)
		return
	}
	r.log.Debugw("Collected", logger.FieldRSSBytes, info.RSS)
}

