package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{}

func (failing) Publish(context.Context, CampEvent) error { return errors.New("broker down") }

func TestEmitStampsTime(t *testing.T) {
	var got CampEvent
	Emit(context.Background(), Direct(func(ev CampEvent) { got = ev }), CampEvent{Type: EventRegistrationCreated, CampID: "c1"})

	assert.Equal(t, "c1", got.CampID)
	assert.False(t, got.At.IsZero())
}

func TestEmitSwallowsErrors(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(context.Background(), failing{}, CampEvent{CampID: "c1"})
		Emit(context.Background(), nil, CampEvent{CampID: "c1"})
	})
}

func TestDecode(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"registration.updated","campId":"c1","status":"Donated","actualDonors":4,"expectedDonors":10}`))
	require.NoError(t, err)
	assert.Equal(t, "Donated", ev.Status)
	assert.Equal(t, 4, ev.ActualDonors)

	_, err = Decode([]byte(`{"type":"x"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`nope`))
	assert.Error(t, err)
}
