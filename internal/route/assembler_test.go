package route

import (
	"context"
	"errors"
	"testing"
	"time"
	"transferly/internal/resolver"
	"transferly/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(name string, lat, lng float64) model.ResolvedAddress {
	return model.ResolvedAddress{Address: name, Lat: lat, Lng: lng, PlaceID: "pl-" + name}
}

func TestAssembler_RemoveKeepsIdentity(t *testing.T) {
	a := New(Options{})

	var ids []string
	for i := 0; i < 3; i++ {
		stop, err := a.AddStop()
		require.NoError(t, err)
		ids = append(ids, stop.ID)
	}
	require.NoError(t, a.UpdateStopSelection(0, addr("Windsor", 51.48, -0.60)))
	require.NoError(t, a.UpdateStopSelection(2, addr("Eton", 51.49, -0.61)))

	require.NoError(t, a.RemoveStop(1))

	numbered := a.Numbered()
	require.Len(t, numbered, 2)
	assert.Equal(t, 1, numbered[0].Number)
	assert.Equal(t, ids[0], numbered[0].ID)
	assert.Equal(t, 2, numbered[1].Number)
	assert.Equal(t, ids[2], numbered[1].ID)

	require.True(t, numbered[1].IsResolved())
	assert.InDelta(t, 51.49, *numbered[1].Lat, 1e-9)
	assert.Equal(t, "Eton", numbered[1].Address)
}

func TestAssembler_IDsAreUnique(t *testing.T) {
	a := New(Options{MaxStops: 5})
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		stop, err := a.AddStop()
		require.NoError(t, err)
		assert.False(t, seen[stop.ID], "duplicate id %s", stop.ID)
		seen[stop.ID] = true
	}

	require.NoError(t, a.RemoveStop(4))
	stop, err := a.AddStop()
	require.NoError(t, err)
	assert.False(t, seen[stop.ID])
}

func TestAssembler_MaxStops(t *testing.T) {
	tests := []struct {
		name string
		max  int
		want int
	}{
		{name: "default", max: 0, want: DefaultMaxStops},
		{name: "custom", max: 2, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(Options{MaxStops: tt.max})
			for i := 0; i < tt.want; i++ {
				_, err := a.AddStop()
				require.NoError(t, err)
			}
			before := a.Stops()

			_, err := a.AddStop()
			assert.ErrorIs(t, err, ErrMaxStopsReached)
			assert.Equal(t, before, a.Stops())
			assert.Equal(t, tt.want, a.Len())
		})
	}
}

func TestAssembler_IndexOutOfRange(t *testing.T) {
	a := New(Options{})
	_, _ = a.AddStop()

	assert.ErrorIs(t, a.RemoveStop(1), ErrIndexOutOfRange)
	assert.ErrorIs(t, a.RemoveStop(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, a.UpdateStopText(3, "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, a.UpdateStopSelection(3, addr("x", 0, 0)), ErrIndexOutOfRange)
	assert.Equal(t, 1, a.Len())
}

func TestAssembler_UpdatesTouchOnlyTheTarget(t *testing.T) {
	a := New(Options{})
	for i := 0; i < 3; i++ {
		_, _ = a.AddStop()
	}
	require.NoError(t, a.UpdateStopSelection(0, addr("Windsor", 51.48, -0.60)))
	require.NoError(t, a.UpdateStopSelection(1, addr("Slough", 51.51, -0.59)))
	before := a.Stops()

	require.NoError(t, a.UpdateStopText(1, "Maidenhead"))

	after := a.Stops()
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])

	assert.Equal(t, before[1].ID, after[1].ID)
	assert.Equal(t, "Maidenhead", after[1].Text)
	assert.False(t, after[1].IsResolved(), "editing text drops the old resolution")
}

func TestAssembler_PayloadAndUnresolved(t *testing.T) {
	a := New(Options{})
	for i := 0; i < 3; i++ {
		_, _ = a.AddStop()
	}
	require.NoError(t, a.UpdateStopSelection(0, addr("Windsor", 51.48, -0.60)))
	require.NoError(t, a.UpdateStopSelection(2, addr("Eton", 51.49, -0.61)))

	assert.Equal(t, []int{1}, a.Unresolved())

	payload := a.Payload()
	require.Len(t, payload, 2)
	assert.Equal(t, 0, payload[0].StopOrder)
	assert.Equal(t, "Windsor", payload[0].Address)
	assert.Equal(t, 2, payload[1].StopOrder)

	require.NoError(t, a.RemoveStop(1))
	assert.Empty(t, a.Unresolved())
	payload = a.Payload()
	require.Len(t, payload, 2)
	assert.Equal(t, 1, payload[1].StopOrder)
	assert.Equal(t, "Eton", payload[1].Address)
}

type stubProvider struct {
	inputs    chan string
	detailErr error
}

func (s *stubProvider) Autocomplete(ctx context.Context, input, token string) ([]model.PlacePrediction, error) {
	s.inputs <- input
	return []model.PlacePrediction{{PlaceID: "p-" + input, MainText: input}}, nil
}

func (s *stubProvider) Details(ctx context.Context, placeID, token string) (*model.ResolvedAddress, error) {
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	a := addr("Resolved "+placeID, 51.5, -0.1)
	return &a, nil
}

func TestAssembler_PerStopResolvers(t *testing.T) {
	p := &stubProvider{inputs: make(chan string, 4)}
	a := New(Options{
		Provider:        p,
		ResolverOptions: resolver.Options{Debounce: 10 * time.Millisecond},
	})
	defer a.Close()

	first, _ := a.AddStop()
	second, _ := a.AddStop()
	require.NotNil(t, a.Resolver(first.ID))
	assert.NotSame(t, a.Resolver(first.ID), a.Resolver(second.ID))

	require.NoError(t, a.UpdateStopText(1, "Reading"))
	select {
	case got := <-p.inputs:
		assert.Equal(t, "Reading", got)
	case <-time.After(time.Second):
		t.Fatal("stop text did not reach its resolver")
	}

	// remove the first stop while the second is being resolved
	require.NoError(t, a.RemoveStop(0))
	assert.Nil(t, a.Resolver(first.ID))

	ok, err := a.SelectPrediction(context.Background(), second.ID, model.PlacePrediction{PlaceID: "rdg"})
	require.NoError(t, err)
	require.True(t, ok)

	stops := a.Stops()
	require.Len(t, stops, 1)
	assert.Equal(t, second.ID, stops[0].ID)
	assert.Equal(t, "Resolved rdg", stops[0].Address)
}

func TestAssembler_SetStopTextRecordsWithoutLookup(t *testing.T) {
	p := &stubProvider{inputs: make(chan string, 4)}
	a := New(Options{
		Provider:        p,
		ResolverOptions: resolver.Options{Debounce: 5 * time.Millisecond},
	})
	defer a.Close()

	_, _ = a.AddStop()
	require.NoError(t, a.UpdateStopSelection(0, addr("Windsor", 51.48, -0.6)))
	require.NoError(t, a.SetStopText(0, "Reading"))

	stop := a.Stops()[0]
	assert.Equal(t, "Reading", stop.Text)
	assert.False(t, stop.IsResolved())

	select {
	case got := <-p.inputs:
		t.Fatalf("unexpected autocomplete for %q", got)
	case <-time.After(50 * time.Millisecond):
	}
	assert.ErrorIs(t, a.SetStopText(3, "x"), ErrIndexOutOfRange)
}

func TestAssembler_SelectPredictionFailures(t *testing.T) {
	p := &stubProvider{inputs: make(chan string, 4), detailErr: errors.New("details down")}
	a := New(Options{Provider: p})
	defer a.Close()

	stop, _ := a.AddStop()

	ok, err := a.SelectPrediction(context.Background(), stop.ID, model.PlacePrediction{PlaceID: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, a.Stops()[0].IsResolved())

	_, err = a.SelectPrediction(context.Background(), "missing", model.PlacePrediction{PlaceID: "x"})
	assert.ErrorIs(t, err, ErrStopNotFound)
}
