// Package host adapts the registry's launch ports to something observable
// outside a real platform. A Journal accepts already-redirected requests,
// records them, and optionally streams one JSON line per launch.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"kilometers.ai/standin/internal/core/launch"
)

// ErrRequestCodePending is returned when a result launch reuses a request code
// whose result has not been delivered yet
type ErrRequestCodePending int

func (e ErrRequestCodePending) Error() string {
	return fmt.Sprintf("request code %d is already awaiting a result", int(e))
}

// Kind tells plain launches from result launches
type Kind string

const (
	KindLaunch          Kind = "launch"
	KindLaunchForResult Kind = "launch_for_result"
)

// Entry is one recorded launch
type Entry struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Request     *launch.Request `json:"request"`
	RequestCode *int            `json:"request_code,omitempty"`
	LaunchedAt  time.Time       `json:"launched_at"`
}

// Stats summarises journal activity
type Stats struct {
	Launches          int64     `json:"launches"`
	ResultLaunches    int64     `json:"result_launches"`
	PendingResults    int       `json:"pending_results"`
	LastLaunchTime    time.Time `json:"last_launch_time"`
	RejectedDuplicate int64     `json:"rejected_duplicate"`
	Dropped           int64     `json:"dropped"`
}

// DefaultLimit is the number of entries a journal keeps unless WithLimit
// says otherwise
const DefaultLimit = 1000

// Option configures a Journal
type Option func(*Journal)

// WithLimit caps the number of retained entries; older ones are dropped.
// Pending request codes are tracked regardless of the cap.
func WithLimit(limit int) Option {
	return func(j *Journal) {
		if limit > 0 {
			j.limit = limit
		}
	}
}

// Journal records launches handed to the host. It implements both
// ports.Launcher and ports.ResultLauncher and is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
	pending map[int]string
	stats   Stats

	out    io.Writer
	logger hclog.Logger
	now    func() time.Time
}

// NewJournal creates a journal. out may be nil; otherwise every launch is
// written to it as one JSON line.
func NewJournal(out io.Writer, logger hclog.Logger, opts ...Option) *Journal {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	j := &Journal{
		limit:   DefaultLimit,
		pending: make(map[int]string),
		out:     out,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Launch records a plain launch
func (j *Journal) Launch(ctx context.Context, req *launch.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := j.record(KindLaunch, req, nil)
	return err
}

// LaunchForResult records a result launch and marks requestCode pending
// until Complete is called for it
func (j *Journal) LaunchForResult(ctx context.Context, req *launch.Request, requestCode int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := j.record(KindLaunchForResult, req, &requestCode)
	return err
}

// Complete releases a pending request code. It reports whether the code was
// pending.
func (j *Journal) Complete(requestCode int) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	id, ok := j.pending[requestCode]
	if !ok {
		return false
	}
	delete(j.pending, requestCode)
	j.stats.PendingResults = len(j.pending)
	j.logger.Debug("result delivered", "id", id, "request_code", requestCode)
	return true
}

// Entries returns a copy of the retained launches in launch order
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Entry, len(j.entries))
	for i, e := range j.entries {
		e.Request = e.Request.Clone()
		out[i] = e
	}
	return out
}

// Last returns the most recent entry
func (j *Journal) Last() (Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.entries) == 0 {
		return Entry{}, false
	}
	e := j.entries[len(j.entries)-1]
	e.Request = e.Request.Clone()
	return e, true
}

// Pending lists request codes still awaiting a result
func (j *Journal) Pending() map[int]string {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make(map[int]string, len(j.pending))
	for code, id := range j.pending {
		out[code] = id
	}
	return out
}

// Stats returns a snapshot of journal statistics
func (j *Journal) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

func (j *Journal) record(kind Kind, req *launch.Request, requestCode *int) (Entry, error) {
	if req == nil {
		return Entry{}, fmt.Errorf("cannot launch a nil request")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if requestCode != nil {
		if _, busy := j.pending[*requestCode]; busy {
			j.stats.RejectedDuplicate++
			return Entry{}, ErrRequestCodePending(*requestCode)
		}
	}

	entry := Entry{
		ID:          uuid.NewString(),
		Kind:        kind,
		Request:     req.Clone(),
		RequestCode: requestCode,
		LaunchedAt:  j.now().UTC(),
	}

	if j.out != nil {
		line, err := json.Marshal(entry)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to encode launch: %w", err)
		}
		if _, err := j.out.Write(append(line, '\n')); err != nil {
			return Entry{}, fmt.Errorf("failed to write launch: %w", err)
		}
	}

	if len(j.entries) >= j.limit {
		dropped := len(j.entries) - j.limit + 1
		j.entries = slices.Delete(j.entries, 0, dropped)
		j.stats.Dropped += int64(dropped)
	}
	j.entries = append(j.entries, entry)
	if requestCode != nil {
		j.pending[*requestCode] = entry.ID
		j.stats.ResultLaunches++
	} else {
		j.stats.Launches++
	}
	j.stats.PendingResults = len(j.pending)
	j.stats.LastLaunchTime = entry.LaunchedAt

	target := ""
	if req.Target != nil {
		target = req.Target.String()
	}
	j.logger.Debug("launched", "id", entry.ID, "kind", string(kind), "target", target)
	return entry, nil
}
