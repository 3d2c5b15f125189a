package stage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/pipestage/chunk"
	"github.com/teranos/pipestage/errors"
	pstest "github.com/teranos/pipestage/internal/testing"
	"github.com/teranos/pipestage/provenance"
)

const waitFor = 5 * time.Second

// startRun runs r in the background and returns a channel carrying Run's
// result.
func startRun(ctx context.Context, r *Runner) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
		return nil
	}
}

func completed(dirs chunk.Dirs, name string) func() bool {
	return func() bool {
		_, err := os.Stat(filepath.Join(dirs.Completed, name))
		return err == nil
	}
}

// stopper stops its runner while the first chunk is being transformed.
type stopper struct {
	Base
	runner *Runner
}

func (s *stopper) NewData(in any) (any, error) {
	s.runner.Stop()
	return in, nil
}

func TestRun_StartupCatchUp(t *testing.T) {
	r, prov := newTestRunner(t, NewIdentity(nil), RunnerConfig{RescanInterval: time.Hour})
	dirs := r.Dirs()
	require.NoError(t, os.WriteFile(dirs.InputPath("orders.dat"), encode(t, ordersTable()), 0644))

	done := startRun(context.Background(), r)
	require.Eventually(t, completed(dirs, "orders.dat"), waitFor, 10*time.Millisecond)

	r.Stop()
	require.NoError(t, waitRun(t, done))

	assert.Equal(t, []string{EventStarting, EventStopping, EventStopped}, prov.eventNames())
	events := prov.chunkEvents()
	require.Len(t, events, 1)
	assert.Equal(t, int64(5), events[0].RowsIn)
}

func TestRun_ProcessesNotifiedChunks(t *testing.T) {
	r, prov := newTestRunner(t, NewIdentity(nil), RunnerConfig{RescanInterval: time.Hour})
	dirs := r.Dirs()

	done := startRun(context.Background(), r)
	require.Eventually(t, func() bool { return len(prov.Events()) > 0 }, waitFor, 10*time.Millisecond)

	// Publish writes a temp name and renames it in, as an upstream stage does
	data := encode(t, ordersTable())
	require.NoError(t, chunk.Publish(dirs.Input, "first.dat", data))
	require.Eventually(t, completed(dirs, "first.dat"), waitFor, 10*time.Millisecond)

	require.NoError(t, os.Mkdir(dirs.InputPath("late"), 0755))
	require.NoError(t, chunk.Publish(dirs.Input, "second.dat", data))
	require.Eventually(t, completed(dirs, "second.dat"), waitFor, 10*time.Millisecond)

	r.Stop()
	require.NoError(t, waitRun(t, done))

	assertMissing(t, dirs.InputPath("_first.dat"))
	assert.Len(t, prov.chunkEvents(), 2, "one provenance row per chunk")
}

func TestRun_StopFinishesInFlightChunk(t *testing.T) {
	st := &stopper{Base: NewBase(nil)}
	r, prov := newTestRunner(t, st, RunnerConfig{RescanInterval: time.Hour})
	st.runner = r
	dirs := r.Dirs()
	data := encode(t, ordersTable())
	require.NoError(t, os.WriteFile(dirs.InputPath("a.dat"), data, 0644))
	require.NoError(t, os.WriteFile(dirs.InputPath("b.dat"), data, 0644))

	require.NoError(t, waitRun(t, startRun(context.Background(), r)))

	assert.FileExists(t, filepath.Join(dirs.Completed, "a.dat"), "in-flight chunk completes")
	assert.FileExists(t, filepath.Join(dirs.Output, "a.dat"))
	assert.FileExists(t, dirs.InputPath("b.dat"), "no dispatch after stop")
	assertMissing(t, filepath.Join(dirs.Output, "b.dat"))
	assert.Len(t, prov.chunkEvents(), 1)
	assert.Equal(t, EventStopped, prov.eventNames()[len(prov.eventNames())-1])
}

func TestRun_StopBeforeRun(t *testing.T) {
	r, prov := newTestRunner(t, NewIdentity(nil), RunnerConfig{})
	require.NoError(t, os.WriteFile(r.Dirs().InputPath("orders.dat"), encode(t, ordersTable()), 0644))

	r.Stop()
	r.Stop()
	require.NoError(t, waitRun(t, startRun(context.Background(), r)))

	assert.FileExists(t, r.Dirs().InputPath("orders.dat"))
	assert.Equal(t, []string{EventStarting, EventStopping, EventStopped}, prov.eventNames())
}

func TestRun_ContextCancelSaysFarewell(t *testing.T) {
	r, prov := newTestRunner(t, NewIdentity(nil), RunnerConfig{RescanInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	done := startRun(ctx, r)
	require.Eventually(t, func() bool { return len(prov.Events()) > 0 }, waitFor, 10*time.Millisecond)
	cancel()

	require.NoError(t, waitRun(t, done))
	names := prov.eventNames()
	assert.Equal(t, EventFarewell, names[len(names)-1])
}

func TestRun_ProcessingErrorEndsRun(t *testing.T) {
	r, _ := newTestRunner(t, NewIdentity(nil), RunnerConfig{})
	require.NoError(t, os.WriteFile(r.Dirs().InputPath("bad.dat"), []byte{0xff, 0x00, 0x01}, 0644))

	err := waitRun(t, startRun(context.Background(), r))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.dat")
	assert.FileExists(t, r.Dirs().InputPath("bad.dat"), "failed chunk stays for reprocessing")
}

func TestLoop_WatcherErrorForcesRescan(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"overflow", fsnotify.ErrEventOverflow},
		{"read error", errors.New("inotify read failed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRunner(t, NewIdentity(nil), RunnerConfig{RescanInterval: time.Hour})
			dirs := r.Dirs()
			require.NoError(t, os.WriteFile(dirs.InputPath("a.dat"), encode(t, ordersTable()), 0644))

			errs := make(chan error)
			f := feed{
				events: make(chan fsnotify.Event),
				errors: errs,
				add:    func(string) error { return nil },
			}
			done := make(chan error, 1)
			go func() { done <- r.loop(context.Background(), context.Background(), f) }()
			require.Eventually(t, completed(dirs, "a.dat"), waitFor, 10*time.Millisecond)

			require.NoError(t, os.WriteFile(dirs.InputPath("b.dat"), encode(t, ordersTable()), 0644))
			assert.Never(t, completed(dirs, "b.dat"), 100*time.Millisecond, 10*time.Millisecond,
				"no notification and the rescan gate is closed")

			errs <- tt.err
			require.Eventually(t, completed(dirs, "b.dat"), waitFor, 10*time.Millisecond)

			r.Stop()
			require.NoError(t, waitRun(t, done))
		})
	}
}

func TestUntilNextScan(t *testing.T) {
	r, _ := newTestRunner(t, NewIdentity(nil), RunnerConfig{RescanInterval: time.Hour})
	assert.Equal(t, time.Duration(0), r.untilNextScan(), "first scan is due immediately")

	require.True(t, r.scans.Allow())
	assert.Greater(t, r.untilNextScan(), 59*time.Minute)
	assert.False(t, r.scans.Allow(), "peeking does not spend a token")
}

func TestRun_ZeroIntervalRescansEveryPass(t *testing.T) {
	r, _ := newTestRunner(t, NewIdentity(nil), RunnerConfig{})
	for i := 0; i < 3; i++ {
		assert.True(t, r.scans.Allow())
	}

	dirs := r.Dirs()
	done := startRun(context.Background(), r)
	require.NoError(t, chunk.Publish(dirs.Input, "orders.dat", encode(t, ordersTable())))
	require.Eventually(t, completed(dirs, "orders.dat"), waitFor, 10*time.Millisecond)

	r.Stop()
	require.NoError(t, waitRun(t, done))
}

func TestRun_SQLiteProvenance(t *testing.T) {
	conn, dbCfg := pstest.CreateTestDB(t)
	store := provenance.New(dbCfg, provenance.WithLogger(zaptest.NewLogger(t).Sugar()))
	r, err := NewRunner(RunnerConfig{Instance: "demo", BaseDir: t.TempDir(), RescanInterval: time.Hour},
		NewIdentity(nil), WithProvenance(store), WithLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(r.Dirs().InputPath("orders.dat"), encode(t, ordersTable()), 0644))

	done := startRun(context.Background(), r)
	require.Eventually(t, completed(r.Dirs(), "orders.dat"), waitFor, 10*time.Millisecond)
	r.Stop()
	require.NoError(t, waitRun(t, done))
	assert.False(t, store.Connected(), "no connection outlives a unit of work")

	recent, err := store.Recent(context.Background(), "demo", 50)
	require.NoError(t, err)
	require.NoError(t, store.Disconnect())

	var chunkRows int
	for i := 0; i < recent.Len(); i++ {
		row := recent.Row(i)
		if row["filename"] == "orders.dat" {
			chunkRows++
			assert.Equal(t, int64(5), row["rows_in"])
			assert.Equal(t, int64(5), row["rows_out"])
			assert.Equal(t, r.RunID(), row["run_id"])
		}
	}
	assert.Equal(t, 1, chunkRows)
	assert.Equal(t, 4, pstest.CountEvents(t, conn, "demo"))
	assert.Equal(t, 4, recent.Len(), "Starting, chunk, Stopping..., Stopped.")
}
