package provenance

import (
	"context"

	"github.com/teranos/pipestage/logger"
	"github.com/teranos/pipestage/tabular"
)

// Event is one row of pipeline_events. Lifecycle events leave Filename and
// the metrics empty.
type Event struct {
	Class     string
	Instance  string
	Event     string
	Filename  string
	RowsIn    int64
	RowsOut   int64
	ElapsedMS int64
	RunID     string
}

const insertEvent = `
	INSERT INTO pipeline_events (
		class, instance, event, filename, rows_in, rows_out, elapsed_ms, run_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Record appends ev to pipeline_events.
func (l *Logger) Record(ctx context.Context, ev Event) error {
	_, err := l.Execute(ctx, insertEvent,
		ev.Class, ev.Instance, ev.Event, nullable(ev.Filename),
		ev.RowsIn, ev.RowsOut, ev.ElapsedMS, nullable(ev.RunID),
	)
	if err == nil && l.logger != nil {
		l.logger.Debugw("Recorded event",
			logger.FieldClass, ev.Class,
			logger.FieldInstance, ev.Instance,
			logger.FieldRunID, ev.RunID,
			logger.FieldChunk, ev.Filename,
		)
	}
	return err
}

// Recent returns the newest events, newest first. An empty instance
// returns events for every instance.
func (l *Logger) Recent(ctx context.Context, instance string, limit int) (*tabular.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	if instance == "" {
		return l.Execute(ctx, `
			SELECT id, class, instance, event, filename, rows_in, rows_out, elapsed_ms, run_id, created_at
			FROM pipeline_events
			ORDER BY id DESC
			LIMIT ?`, limit)
	}
	return l.Execute(ctx, `
		SELECT id, class, instance, event, filename, rows_in, rows_out, elapsed_ms, run_id, created_at
		FROM pipeline_events
		WHERE instance = ?
		ORDER BY id DESC
		LIMIT ?`, instance, limit)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
