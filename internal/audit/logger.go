// Package audit records every forwarding attempt as an append-only request
// log row. Writes are handed to a dedicated worker over a bounded queue so
// the response path never waits on the store.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hackclub/searchproxy/internal/model"
)

// Sink is the interface the audit worker needs from the store.
type Sink interface {
	InsertRequestLog(ctx context.Context, entry *model.RequestLog) error
}

// DefaultQueueSize is the bounded queue capacity. When full, the oldest
// queued entry is dropped so the newest attempt is preserved; drops are
// counted and surfaced via telemetry.
const DefaultQueueSize = 256

// writeTimeout bounds a single audit insert.
const writeTimeout = 10 * time.Second

// Logger is the audit worker. Record never blocks and never fails the
// request that produced the entry; audit durability is best-effort.
type Logger struct {
	store  Sink
	logger *slog.Logger
	queue  chan *model.RequestLog

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	dropped  atomic.Int64
	failures atomic.Int64
}

// New creates a Logger and starts its worker goroutine.
func New(st Sink, logger *slog.Logger, queueSize int) *Logger {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	l := &Logger{
		store:  st,
		logger: logger,
		queue:  make(chan *model.RequestLog, queueSize),
	}

	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Logger) run() {
	defer l.wg.Done()
	for entry := range l.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := l.store.InsertRequestLog(ctx, entry)
		cancel()
		if err != nil {
			l.failures.Add(1)
			l.logger.Error("audit write failed",
				"user_id", entry.UserID,
				"endpoint", entry.Endpoint,
				"error", err,
			)
		}
	}
}

// Record enqueues one audit entry without blocking. On a full queue the
// oldest entry is discarded to make room.
func (l *Logger) Record(entry *model.RequestLog) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		l.dropped.Add(1)
		return
	}

	for {
		select {
		case l.queue <- entry:
			return
		default:
			select {
			case <-l.queue:
				l.dropped.Add(1)
			default:
			}
		}
	}
}

// Close stops intake and drains queued entries until ctx expires.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many entries were discarded by the drop-oldest policy.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Failures returns how many inserts failed.
func (l *Logger) Failures() int64 {
	return l.failures.Load()
}

// MarshalParams serializes a query-parameter set for an audit row. Failures
// before parameters were captured store an empty object.
func MarshalParams(params url.Values) string {
	if len(params) == 0 {
		return "{}"
	}
	flat := make(map[string]string, len(params))
	for key := range params {
		flat[key] = params.Get(key)
	}
	return mustJSON(flat)
}

// MarshalHeaders serializes an inbound header snapshot. Credential-bearing
// headers are excluded so raw tokens never land in audit rows.
func MarshalHeaders(h http.Header) string {
	flat := make(map[string]string, len(h))
	for key := range h {
		switch http.CanonicalHeaderKey(key) {
		case "Authorization", "Cookie":
			continue
		}
		flat[key] = h.Get(key)
	}
	return mustJSON(flat)
}

// ErrorPayload is the structured response recorded when forwarding failed.
func ErrorPayload(err error) string {
	return mustJSON(map[string]string{"error": err.Error()})
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
