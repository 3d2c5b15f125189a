package stage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/pipestage/chunk"
	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/logger"
	"github.com/teranos/pipestage/provenance"
)

// feed is what the loop consumes from a watcher.
type feed struct {
	events <-chan fsnotify.Event
	errors <-chan error
	add    func(name string) error
}

func watcherFeed(w *fsnotify.Watcher) feed {
	return feed{events: w.Events, errors: w.Errors, add: w.Add}
}

// Run watches the input directory and processes chunks until Stop is
// called or ctx is cancelled. Each pass of the loop:
//
//  1. dispatches notifications already queued
//  2. walks the input directory in full, at startup, after the watcher
//     reports lost events, and otherwise at most once per RescanInterval
//  3. blocks for the next notification, stop, cancellation or rescan
//
// Cancelling ctx ends the loop with a farewell and a nil error. A chunk in
// flight is always finished; it does not observe ctx cancellation.
// Any processing error is returned and the loop does not retry.
func (r *Runner) Run(ctx context.Context) error {
	work := context.WithoutCancel(ctx)

	if err := r.announce(work, EventStarting); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer w.Close()

	f := watcherFeed(w)
	if err := r.watchTree(f, r.dirs.Input); err != nil {
		return err
	}
	return r.loop(ctx, work, f)
}

// loop is the body of Run once the input tree is watched. ctx is the
// caller's context; work is the uncancellable one chunks run under.
func (r *Runner) loop(ctx, work context.Context, f feed) error {
	rescan := true
	for {
		if r.Stopped() {
			return r.finish(work)
		}

		more, err := r.drain(work, f, &rescan)
		if err != nil {
			return err
		}
		if !more {
			return r.finish(work)
		}

		// A forced scan runs even when no token is available; Allow only
		// spends one when it reports true.
		if due := r.scans.Allow(); due || rescan {
			rescan = false
			more, err := r.scan(work)
			if err != nil {
				return err
			}
			if !more {
				return r.finish(work)
			}
		}

		var timer *time.Timer
		var tick <-chan time.Time
		if r.cfg.RescanInterval > 0 {
			timer = time.NewTimer(r.untilNextScan())
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			r.log.Debugw("Interrupted", logger.FieldError, ctx.Err())
			return r.announce(work, EventFarewell)

		case <-r.stopCh:

		case event, ok := <-f.events:
			if !ok {
				stopTimer(timer)
				return errors.New("fsnotify watcher closed")
			}
			if _, err := r.handle(work, f, event, &rescan); err != nil {
				stopTimer(timer)
				return err
			}

		case werr, ok := <-f.errors:
			if !ok {
				stopTimer(timer)
				return errors.New("fsnotify watcher closed")
			}
			r.watchError(werr)
			rescan = true

		case <-tick:
		}
		stopTimer(timer)
	}
}

// finish ends the loop after Stop.
func (r *Runner) finish(ctx context.Context) error {
	if err := r.record(ctx, provenance.Event{Event: EventStopping}); err != nil {
		return err
	}
	return r.announce(ctx, EventStopped)
}

// drain dispatches every notification already queued without blocking. It
// reports false once the runner has been stopped.
func (r *Runner) drain(ctx context.Context, f feed, rescan *bool) (bool, error) {
	for {
		select {
		case event, ok := <-f.events:
			if !ok {
				return false, errors.New("fsnotify watcher closed")
			}
			more, err := r.handle(ctx, f, event, rescan)
			if err != nil || !more {
				return more, err
			}
		case werr, ok := <-f.errors:
			if !ok {
				return false, errors.New("fsnotify watcher closed")
			}
			r.watchError(werr)
			*rescan = true
		default:
			return !r.Stopped(), nil
		}
	}
}

// scan walks the input directory and dispatches every name found.
func (r *Runner) scan(ctx context.Context) (bool, error) {
	names, err := r.dirs.Scan()
	if err != nil {
		return false, err
	}
	r.log.Debugw("Scanned input", logger.FieldDir, r.dirs.Input, "files", len(names))
	for _, name := range names {
		more, err := r.dispatch(ctx, name, "scan")
		if err != nil || !more {
			return more, err
		}
	}
	return true, nil
}

// handle acts on one notification. Creation and rename-into both arrive as
// Create. A new subdirectory is watched and forces a rescan, since files
// may have landed in it before the watch was added.
func (r *Runner) handle(ctx context.Context, f feed, event fsnotify.Event, rescan *bool) (bool, error) {
	if !event.Has(fsnotify.Create) {
		return true, nil
	}
	info, err := os.Lstat(event.Name)
	if err == nil && info.IsDir() {
		if err := r.watchTree(f, event.Name); err != nil {
			return false, err
		}
		*rescan = true
		return true, nil
	}
	return r.dispatch(ctx, filepath.Base(event.Name), "notify")
}

// dispatch hands name to ProcessFile unless the runner has been stopped.
func (r *Runner) dispatch(ctx context.Context, name, source string) (bool, error) {
	if r.Stopped() {
		return false, nil
	}
	r.log.Debugw("Dispatch", logger.FieldChunk, name, logger.FieldSource, source, logger.FieldState, chunk.Pending.String())
	if _, err := r.ProcessFile(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}

// watchTree adds root and every directory below it to the watcher.
func (r *Runner) watchTree(f feed, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return errors.Wrapf(err, "walk %s", path)
		}
		if !entry.IsDir() {
			return nil
		}
		if err := f.add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}

func (r *Runner) watchError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		r.log.Warnw("Watcher dropped events, rescanning", logger.FieldDir, r.dirs.Input)
		return
	}
	r.log.Warnw("Watcher error, rescanning", logger.FieldError, err)
}

// untilNextScan peeks at the limiter without spending a token.
func (r *Runner) untilNextScan() time.Duration {
	if r.scans.Tokens() >= 1 {
		return 0
	}
	res := r.scans.Reserve()
	delay := res.Delay()
	res.Cancel()
	return delay
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
