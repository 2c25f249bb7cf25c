// Package resolver turns raw address keystrokes into place predictions and,
// on selection, into a ResolvedAddress.
package resolver

import (
	"context"
	"sync"
	"time"
	"transferly/pkg/logger"
	"transferly/pkg/model"
	"transferly/pkg/sanitizer"
	"unicode/utf8"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultMinChars = 3
)

// Provider is the places backend. pkg/client.PlacesClient satisfies it.
type Provider interface {
	Autocomplete(ctx context.Context, input, sessionToken string) ([]model.PlacePrediction, error)
	Details(ctx context.Context, placeID, sessionToken string) (*model.ResolvedAddress, error)
}

type Key string

const (
	KeyArrowDown Key = "ArrowDown"
	KeyArrowUp   Key = "ArrowUp"
	KeyEnter     Key = "Enter"
	KeyEscape    Key = "Escape"
)

type Options struct {
	Debounce time.Duration
	MinChars int
	// Token lets a caller share the session cell; a fresh one is created when nil.
	Token *SessionToken
	// OnChange receives a snapshot after every visible state change. It is
	// called without the resolver lock held.
	OnChange func(State)
	Logger   *logger.Logger
}

// State is a point-in-time copy of what the address field renders.
type State struct {
	Text        string
	Predictions []model.PlacePrediction
	Open        bool
	ActiveIndex int
	Selected    *model.ResolvedAddress
}

type Resolver struct {
	provider Provider
	token    *SessionToken
	debounce time.Duration
	minChars int
	onChange func(State)
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	text        string
	predictions []model.PlacePrediction
	open        bool
	active      int
	selected    *model.ResolvedAddress
	timer       *time.Timer
	generation  uint64 // bumped on every keystroke; only the latest schedule may fire
	issued      uint64 // sequence number of the most recent lookup sent
	applied     uint64 // highest sequence whose response was applied or invalidated
	closed      bool
}

func New(provider Provider, opts Options) *Resolver {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinChars <= 0 {
		opts.MinChars = DefaultMinChars
	}
	if opts.Token == nil {
		opts.Token = NewSessionToken()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		provider: provider,
		token:    opts.Token,
		debounce: opts.Debounce,
		minChars: opts.MinChars,
		onChange: opts.OnChange,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		active:   -1,
	}
}

// InputChange records text immediately and schedules a lookup after the
// debounce delay. Each call cancels the previously scheduled lookup. Input
// shorter than the minimum clears suggestions without a network call.
func (r *Resolver) InputChange(text string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	r.text = text
	r.selected = nil
	r.generation++
	r.stopTimerLocked()

	query := sanitizer.TrimAndNormalize(text)
	if utf8.RuneCountInString(query) < r.minChars {
		r.applied = r.issued
		r.clearLocked()
		state := r.snapshotLocked()
		r.mu.Unlock()
		r.notify(state)
		return
	}

	gen := r.generation
	r.timer = time.AfterFunc(r.debounce, func() {
		r.lookup(gen, query)
	})
	state := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(state)
}

func (r *Resolver) lookup(gen uint64, query string) {
	r.mu.Lock()
	if r.closed || gen != r.generation {
		r.mu.Unlock()
		return
	}
	r.issued++
	seq := r.issued
	r.mu.Unlock()

	predictions, err := r.provider.Autocomplete(r.ctx, query, r.token.Value())

	r.mu.Lock()
	if r.closed || seq <= r.applied {
		r.mu.Unlock()
		r.log.Debug("dropping stale autocomplete response", "seq", seq)
		return
	}
	r.applied = seq

	if err != nil {
		r.log.Warn("autocomplete lookup failed", "query", query, "error", err)
		r.clearLocked()
	} else {
		r.predictions = predictions
		r.open = len(predictions) > 0
		r.active = -1
	}
	state := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(state)
}

// Select fetches the full details for prediction. On success the session
// token is rotated and the address is returned. Failures are logged and leave
// the field editable; they are never returned as errors.
func (r *Resolver) Select(ctx context.Context, prediction model.PlacePrediction) (*model.ResolvedAddress, bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, false
	}
	r.generation++
	r.stopTimerLocked()
	r.applied = r.issued
	r.clearLocked()
	r.mu.Unlock()

	addr, err := r.provider.Details(ctx, prediction.PlaceID, r.token.Value())
	if err != nil {
		r.log.Warn("place details fetch failed", "place_id", prediction.PlaceID, "error", err)
		r.notify(r.State())
		return nil, false
	}
	r.token.Rotate()

	r.mu.Lock()
	r.text = addr.Address
	r.selected = addr
	state := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(state)

	return addr, true
}

// HandleKey applies the dropdown keyboard contract. Only Enter on an active
// prediction can produce an address.
func (r *Resolver) HandleKey(ctx context.Context, key Key) (*model.ResolvedAddress, bool) {
	r.mu.Lock()
	switch key {
	case KeyArrowDown:
		if r.active < len(r.predictions)-1 {
			r.active++
		}
	case KeyArrowUp:
		if r.active > -1 {
			r.active--
		}
	case KeyEscape:
		r.open = false
		r.active = -1
	case KeyEnter:
		if r.active < 0 || r.active >= len(r.predictions) {
			r.mu.Unlock()
			return nil, false
		}
		prediction := r.predictions[r.active]
		r.mu.Unlock()
		return r.Select(ctx, prediction)
	default:
		r.mu.Unlock()
		return nil, false
	}
	state := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(state)
	return nil, false
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Resolver) SessionToken() string {
	return r.token.Value()
}

// Close cancels any pending lookup and in-flight request. The resolver
// ignores all input afterwards.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.stopTimerLocked()
	r.cancel()
}

func (r *Resolver) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Resolver) clearLocked() {
	r.predictions = nil
	r.open = false
	r.active = -1
}

func (r *Resolver) snapshotLocked() State {
	var predictions []model.PlacePrediction
	if len(r.predictions) > 0 {
		predictions = make([]model.PlacePrediction, len(r.predictions))
		copy(predictions, r.predictions)
	}
	return State{
		Text:        r.text,
		Predictions: predictions,
		Open:        r.open,
		ActiveIndex: r.active,
		Selected:    r.selected,
	}
}

func (r *Resolver) notify(state State) {
	if r.onChange != nil {
		r.onChange(state)
	}
}
