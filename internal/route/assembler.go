// Package route keeps the ordered list of intermediate stops between a pickup
// and a drop-off. Position is not identity: every stop carries a client id
// that survives reorders and removals.
package route

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"transferly/internal/resolver"
	"transferly/pkg/logger"
	"transferly/pkg/model"

	"github.com/google/uuid"
)

const DefaultMaxStops = 5

var (
	ErrMaxStopsReached = errors.New("maximum number of stops reached")
	ErrIndexOutOfRange = errors.New("stop index out of range")
	ErrStopNotFound    = errors.New("stop not found")
)

type Options struct {
	MaxStops int
	// Provider, when set, gives every stop its own address resolver.
	Provider        resolver.Provider
	ResolverOptions resolver.Options
	Logger          *logger.Logger
}

// NumberedStop pairs a stop with its displayed number, derived from position.
type NumberedStop struct {
	Number int
	model.Stop
}

type Assembler struct {
	mu        sync.Mutex
	stops     []model.Stop
	resolvers map[string]*resolver.Resolver
	maxStops  int
	provider  resolver.Provider
	resOpts   resolver.Options
	log       *logger.Logger
}

func New(opts Options) *Assembler {
	if opts.MaxStops <= 0 {
		opts.MaxStops = DefaultMaxStops
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.ResolverOptions.Logger == nil {
		opts.ResolverOptions.Logger = opts.Logger
	}
	return &Assembler{
		resolvers: make(map[string]*resolver.Resolver),
		maxStops:  opts.MaxStops,
		provider:  opts.Provider,
		resOpts:   opts.ResolverOptions,
		log:       opts.Logger,
	}
}

// AddStop appends an empty stop with a fresh id. At the maximum the list is
// left untouched and ErrMaxStopsReached is returned.
func (a *Assembler) AddStop() (model.Stop, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.stops) >= a.maxStops {
		return model.Stop{}, ErrMaxStopsReached
	}

	stop := model.Stop{ID: uuid.NewString()}
	a.stops = append(a.stops, stop)
	if a.provider != nil {
		a.resolvers[stop.ID] = resolver.New(a.provider, a.resOpts)
	}
	return stop, nil
}

// RemoveStop deletes the stop at index. Remaining stops keep their ids and
// resolutions; only their positions shift.
func (a *Assembler) RemoveStop(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkIndexLocked(index); err != nil {
		return err
	}

	id := a.stops[index].ID
	a.stops = append(a.stops[:index:index], a.stops[index+1:]...)
	if r, ok := a.resolvers[id]; ok {
		r.Close()
		delete(a.resolvers, id)
	}
	return nil
}

// UpdateStopText replaces the raw text at index and feeds it to the stop's
// resolver. Editing the text discards any earlier resolution of that stop;
// neighbours are untouched.
func (a *Assembler) UpdateStopText(index int, text string) error {
	r, err := a.setText(index, text)
	if err != nil {
		return err
	}
	if r != nil {
		r.InputChange(text)
	}
	return nil
}

// SetStopText is UpdateStopText without the autocomplete lookup, for callers
// that only record what was typed.
func (a *Assembler) SetStopText(index int, text string) error {
	_, err := a.setText(index, text)
	return err
}

func (a *Assembler) setText(index int, text string) (*resolver.Resolver, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkIndexLocked(index); err != nil {
		return nil, err
	}
	id := a.stops[index].ID
	a.stops[index] = model.Stop{ID: id, Text: text}
	return a.resolvers[id], nil
}

// UpdateStopSelection attaches addr to the stop at index.
func (a *Assembler) UpdateStopSelection(index int, addr model.ResolvedAddress) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkIndexLocked(index); err != nil {
		return err
	}
	a.stops[index] = a.stops[index].WithResolution(addr)
	return nil
}

// SelectPrediction resolves prediction through the stop's own resolver and
// attaches the result. The stop is tracked by id, so a concurrent removal of
// an earlier stop does not misplace the address. Returns false when the
// details lookup failed; the stop stays unresolved.
func (a *Assembler) SelectPrediction(ctx context.Context, stopID string, prediction model.PlacePrediction) (bool, error) {
	r := a.Resolver(stopID)
	if r == nil {
		return false, fmt.Errorf("%w: %s", ErrStopNotFound, stopID)
	}

	addr, ok := r.Select(ctx, prediction)
	if !ok {
		return false, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	index := a.indexOfLocked(stopID)
	if index < 0 {
		return false, fmt.Errorf("%w: %s", ErrStopNotFound, stopID)
	}
	a.stops[index] = a.stops[index].WithResolution(*addr)
	return true, nil
}

// Resolver returns the resolver bound to stopID, or nil.
func (a *Assembler) Resolver(stopID string) *resolver.Resolver {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resolvers[stopID]
}

func (a *Assembler) Stops() []model.Stop {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Stop, len(a.stops))
	copy(out, a.stops)
	return out
}

// Numbered recomputes the displayed stop numbers from the current order.
func (a *Assembler) Numbered() []NumberedStop {
	stops := a.Stops()
	out := make([]NumberedStop, len(stops))
	for i, s := range stops {
		out[i] = NumberedStop{Number: i + 1, Stop: s}
	}
	return out
}

func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.stops)
}

func (a *Assembler) MaxStops() int {
	return a.maxStops
}

// Unresolved lists the positions of stops without coordinates.
func (a *Assembler) Unresolved() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []int
	for i, s := range a.stops {
		if !s.IsResolved() {
			out = append(out, i)
		}
	}
	return out
}

// Payload maps the resolved stops to their wire form with StopOrder set to
// the current position. Unresolved stops are skipped and reported through
// Unresolved; blocking submission is the caller's decision.
func (a *Assembler) Payload() []model.StopPayload {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.StopPayload, 0, len(a.stops))
	for i, s := range a.stops {
		if p, ok := s.Payload(i); ok {
			out = append(out, p)
		}
	}
	return out
}

// Close releases every per-stop resolver.
func (a *Assembler) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, r := range a.resolvers {
		r.Close()
		delete(a.resolvers, id)
	}
}

func (a *Assembler) checkIndexLocked(index int) error {
	if index < 0 || index >= len(a.stops) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(a.stops))
	}
	return nil
}

func (a *Assembler) indexOfLocked(id string) int {
	for i, s := range a.stops {
		if s.ID == id {
			return i
		}
	}
	return -1
}
