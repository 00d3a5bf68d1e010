package cassette

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mocktape/mocktape/pkg/logging"
	"github.com/mocktape/mocktape/pkg/mock"
)

// Mode is the engine's operating mode. There are no implicit transitions.
type Mode string

const (
	// ModeRecord captures real traffic into the cassette.
	ModeRecord Mode = "record"

	// ModePlayback serves recordings and never performs real calls.
	ModePlayback Mode = "playback"

	// ModeUpdate records like ModeRecord but always replaces recordings
	// that share a fingerprint.
	ModeUpdate Mode = "update"
)

// DefaultActionCapacity bounds the action history ring.
const DefaultActionCapacity = 512

// Stats counts engine activity since the last load.
type Stats struct {
	Recorded int `json:"recorded"`
	Played   int `json:"played"`
	Missed   int `json:"missed"`
	Errors   int `json:"errors"`
}

// Action is one entry in the engine's action history.
type Action struct {
	Type        string    `json:"type"` // record, replace, play, miss, error
	Fingerprint string    `json:"fingerprint"`
	RecordingID string    `json:"recordingId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PlaybackOptions control miss behavior.
type PlaybackOptions struct {
	// AllowMissing makes a miss return a nil response instead of an error.
	AllowMissing bool

	// Fallback, when set, produces the response for a miss.
	Fallback func(req *mock.Request) (*mock.Response, error)
}

// Transformer rewrites a recorded response before it is stored, e.g. to pin
// volatile timestamp fields to a fixed placeholder for diff-stable cassettes.
type Transformer func(resp *RecordedResponse)

// Engine records and replays traffic against one loaded cassette.
type Engine struct {
	store Store
	log   *slog.Logger

	mu        sync.Mutex
	mode      Mode
	fp        Fingerprinter
	sanitizer *Sanitizer
	transform Transformer
	overwrite bool

	cassette *Cassette
	index    map[string]*Recording
	stats    Stats
	actions  []Action
	actStart int
	actLen   int
}

// NewEngine creates an Engine in playback mode over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{
		store:     store,
		log:       logging.Nop(),
		mode:      ModePlayback,
		fp:        DefaultFingerprinter{},
		sanitizer: NewSanitizer(),
		actions:   make([]Action, DefaultActionCapacity),
	}
}

// SetLogger sets the operational logger.
func (e *Engine) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	e.log = log
}

// SetMode switches the operating mode.
func (e *Engine) SetMode(mode Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

// Mode returns the current operating mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetFingerprinter replaces the fingerprint strategy. Must be called before
// Load so the index and new recordings agree. The fingerprinter always sees
// the sanitized form of a request.
func (e *Engine) SetFingerprinter(fp Fingerprinter) {
	if fp == nil {
		fp = DefaultFingerprinter{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fp = fp
}

// SetSanitizer replaces the sanitizer.
func (e *Engine) SetSanitizer(s *Sanitizer) {
	if s == nil {
		s = NewSanitizer()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sanitizer = s
}

// SetTransformer installs a response transformer applied before storage.
func (e *Engine) SetTransformer(t Transformer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transform = t
}

// SetOverwrite makes record mode replace same-fingerprint recordings.
func (e *Engine) SetOverwrite(overwrite bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overwrite = overwrite
}

// Load reads the named cassette and indexes its recordings by fingerprint.
// A missing cassette becomes an empty one; in record mode it is persisted
// immediately.
func (e *Engine) Load(name string) error {
	c, found, err := e.store.Load(name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.cassette = c
	e.index = make(map[string]*Recording, len(c.Recordings))
	for _, rec := range c.Recordings {
		e.index[e.fp.Fingerprint(rec.ToRequest())] = rec
	}
	e.stats = Stats{}
	mode := e.mode
	e.mu.Unlock()

	if !found && mode == ModeRecord {
		if err := e.Save(); err != nil {
			return err
		}
	}
	e.log.Debug("cassette loaded",
		"cassette", name, "recordings", len(c.Recordings), "mode", string(mode))
	return nil
}

// Cassette returns the loaded cassette, or nil.
func (e *Engine) Cassette() *Cassette {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cassette
}

// Record stores a request/response pair. It is a no-op outside record and
// update modes. Returns the stored recording, or nil when skipped.
func (e *Engine) Record(req *mock.Request, resp *mock.Response, duration time.Duration, metadata map[string]any) (*Recording, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != ModeRecord && e.mode != ModeUpdate {
		return nil, nil
	}
	if e.cassette == nil {
		return nil, fmt.Errorf("no cassette loaded")
	}

	// Fingerprint the sanitized form. Load rebuilds the index from persisted
	// recordings, so keys must match what storage will hold, not the raw body.
	sreq := e.sanitizer.Request(req)
	fp := e.fp.Fingerprint(sreq.descriptor())
	existing, exists := e.index[fp]

	// In record mode without overwrite, the first recording wins.
	if exists && e.mode == ModeRecord && !e.overwrite {
		e.appendAction(Action{Type: "skip", Fingerprint: fp, RecordingID: existing.ID})
		return existing, nil
	}

	recorded := e.sanitizer.Response(resp, duration)
	if e.transform != nil {
		e.transform(&recorded)
	}
	rec := NewRecording(sreq, recorded, duration, metadata)

	actionType := "record"
	if exists {
		e.removeRecording(existing)
		actionType = "replace"
	}
	e.cassette.Recordings = append(e.cassette.Recordings, rec)
	e.index[fp] = rec
	e.stats.Recorded++
	e.appendAction(Action{Type: actionType, Fingerprint: fp, RecordingID: rec.ID})
	return rec, nil
}

// Playback looks up a recording for the request. In record mode it always
// returns nil. On a hit the stored response is deep-cloned and stamped with
// replay markers; on a miss the configured policy decides between nil, the
// fallback, and a MissingRecordingError.
func (e *Engine) Playback(req *mock.Request, opts *PlaybackOptions) (*mock.Response, error) {
	if opts == nil {
		opts = &PlaybackOptions{}
	}

	e.mu.Lock()
	if e.mode == ModeRecord {
		e.mu.Unlock()
		return nil, nil
	}
	fp := e.fp.Fingerprint(e.sanitizer.Request(req).descriptor())
	rec, ok := e.index[fp]
	if !ok {
		e.stats.Missed++
		e.appendAction(Action{Type: "miss", Fingerprint: fp})
		e.mu.Unlock()

		if opts.AllowMissing {
			return nil, nil
		}
		if opts.Fallback != nil {
			return opts.Fallback(req)
		}
		return nil, &MissingRecordingError{
			Method:      strings.ToUpper(req.Method),
			URL:         req.URL,
			Fingerprint: fp,
		}
	}
	e.stats.Played++
	e.appendAction(Action{Type: "play", Fingerprint: fp, RecordingID: rec.ID})
	e.mu.Unlock()

	resp := rec.ToResponse()
	if data, ok := resp.Data.(map[string]any); ok {
		data["_recorded"] = true
		data["_recordingId"] = rec.ID
		data["_recordedAt"] = rec.Timestamp.Format(time.RFC3339)
	}
	return resp, nil
}

// RealRequestFunc performs the actual upstream call in record/update modes.
type RealRequestFunc func(ctx context.Context, req *mock.Request) (*mock.Response, error)

// HandleRequest routes a request through the engine: playback modes replay,
// record and update modes perform the real call, time it, and record the
// result. Real-call failures count as errors and propagate.
func (e *Engine) HandleRequest(ctx context.Context, req *mock.Request, makeReal RealRequestFunc, opts *PlaybackOptions) (*mock.Response, error) {
	if e.Mode() == ModePlayback {
		return e.Playback(req, opts)
	}

	start := time.Now()
	resp, err := makeReal(ctx, req)
	if err != nil {
		e.mu.Lock()
		e.stats.Errors++
		e.appendAction(Action{Type: "error", Fingerprint: e.fp.Fingerprint(e.sanitizer.Request(req).descriptor())})
		e.mu.Unlock()
		return nil, fmt.Errorf("real request %s %s failed: %w", strings.ToUpper(req.Method), req.URL, err)
	}
	duration := time.Since(start)

	if _, err := e.Record(req, resp, duration, nil); err != nil {
		return nil, err
	}
	return resp, nil
}

// Save recomputes the cassette's summary metadata and persists it.
func (e *Engine) Save() error {
	e.mu.Lock()
	c := e.cassette
	if c == nil {
		e.mu.Unlock()
		return fmt.Errorf("no cassette loaded")
	}
	endpoints := make(map[string]struct{}, len(c.Recordings))
	for _, rec := range c.Recordings {
		endpoints[rec.Request.Method+" "+rec.ToRequest().Path()] = struct{}{}
	}
	c.Metadata = Metadata{
		TotalRequests:   len(c.Recordings),
		UniqueEndpoints: len(endpoints),
	}
	c.UpdatedAt = time.Now().UTC()
	e.mu.Unlock()

	return e.store.Save(c)
}

// Stats returns a snapshot of the activity counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Actions returns the action history, oldest first.
func (e *Engine) Actions() []Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Action, 0, e.actLen)
	for i := 0; i < e.actLen; i++ {
		out = append(out, e.actions[(e.actStart+i)%len(e.actions)])
	}
	return out
}

// appendAction records into the ring. Caller holds mu.
func (e *Engine) appendAction(a Action) {
	a.Timestamp = time.Now()
	idx := (e.actStart + e.actLen) % len(e.actions)
	e.actions[idx] = a
	if e.actLen < len(e.actions) {
		e.actLen++
	} else {
		e.actStart = (e.actStart + 1) % len(e.actions)
	}
}

func (e *Engine) removeRecording(target *Recording) {
	for i, rec := range e.cassette.Recordings {
		if rec == target {
			e.cassette.Recordings = append(e.cassette.Recordings[:i], e.cassette.Recordings[i+1:]...)
			return
		}
	}
}
