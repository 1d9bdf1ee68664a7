package messaging

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

func syncBus() *InMemoryBus {
	return NewInMemoryBus(BusConfig{Async: false, Workers: 1})
}

func TestInMemoryBusDeliversByType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var got []shared.EventType
	err := bus.Subscribe(shared.EventLessonCompleted, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(shared.NewLessonCompletedEvent("learner-1", "solana-101", 0, 100, 3)))
	require.NoError(t, bus.Publish(shared.NewSeasonClosedEvent(1)))

	require.Len(t, got, 1)
	assert.Equal(t, shared.EventLessonCompleted, got[0])
}

func TestInMemoryBusCatchAllSeesEverything(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var count int
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewEnrolledEvent("learner-1", "solana-101", 1)))
	require.NoError(t, bus.Publish(shared.NewStreakMilestoneEvent("learner-1", 7)))

	assert.Equal(t, 2, count)
}

func TestInMemoryBusHandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var secondCalled bool
	require.NoError(t, bus.Subscribe(shared.EventStreakBroken, func(shared.Event) error {
		return errors.New("handler exploded")
	}))
	require.NoError(t, bus.Subscribe(shared.EventStreakBroken, func(shared.Event) error {
		secondCalled = true
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewStreakBrokenEvent("learner-1", 30, 4)))
	assert.True(t, secondCalled)

	snap := bus.Stats().Snapshot()
	assert.Equal(t, int64(2), snap.HandlerExecs)
	assert.Equal(t, int64(1), snap.HandlerFailures)
}

func TestInMemoryBusRejectsAfterClose(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewSeasonCreatedEvent(1, "mint-1"))
	assert.ErrorIs(t, err, ErrBusClosed)

	err = bus.Subscribe(shared.EventEnrolled, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestInMemoryBusNilArguments(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
	assert.ErrorIs(t, bus.Subscribe(shared.EventEnrolled, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.SubscribeAll(nil), ErrNilHandler)
}

func TestInMemoryBusAsyncDrainsOnClose(t *testing.T) {
	bus := NewInMemoryBus(BusConfig{Async: true, Workers: 4})

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(shared.NewStreakFreezeAwardedEvent("learner-1", uint8(i%3+1))))
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, count)
}
