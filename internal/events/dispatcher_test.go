package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var got []Event
	d.Subscribe(EventUserRegistered, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventUserDeleted, func(_ context.Context, e Event) error {
		t.Fatalf("unexpected delivery of %s", e.Type)
		return nil
	})

	event := NewEvent(EventUserRegistered, 7, nil, UserPayload{Email: "a@example.com"})
	require.NoError(t, d.Publish(context.Background(), event))

	require.Len(t, got, 1)
	assert.Equal(t, event.ID, got[0].ID)
	assert.EqualValues(t, 7, got[0].UserID)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	calls := 0
	d.Subscribe(EventUserUpdated, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(EventUserUpdated, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventUserUpdated, 1, &Actor{UserID: 2}, nil))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 2, calls)
}

func TestDispatcherRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	delivered := false
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		panic("handler bug")
	})
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventUserDeleted, 3, nil, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler bug")
	assert.True(t, delivered)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	assert.NoError(t, d.Publish(context.Background(), NewEvent(EventUserRegistered, 1, nil, nil)))
}
