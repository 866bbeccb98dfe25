package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := New(Settings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)
	boom := errors.New("boom")
	calls := 0
	fail := func() error { calls++; return boom }

	assert.ErrorIs(t, b.Do(fail), boom)
	assert.ErrorIs(t, b.Do(fail), boom)
	assert.ErrorIs(t, b.Do(fail), ErrOpen)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", b.State())
}

func TestBreaker_PassesSuccess(t *testing.T) {
	b := New(DefaultSettings("ok"), nil)
	assert.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b := New(Settings{Name: "recover", ConsecutiveFailures: 1, OpenTimeout: 10 * time.Millisecond, HalfOpenRequests: 1}, nil)

	assert.Error(t, b.Do(func() error { return errors.New("down") }))
	assert.ErrorIs(t, b.Do(func() error { return nil }), ErrOpen)

	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, "closed", b.State())
}
