package pairing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deckcast/deckcast/registry"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	pin          string
	challengeErr error
	verifyErr    error
	challenges   int
	verifies     int
}

func (t *fakeTransport) RequestChallenge(ctx context.Context, address string, port int) error {
	t.challenges++
	return t.challengeErr
}

func (t *fakeTransport) VerifyPIN(ctx context.Context, address string, port int, pin string) (bool, error) {
	t.verifies++
	if t.verifyErr != nil {
		return false, t.verifyErr
	}
	return pin == t.pin, nil
}

func newTestCoordinator(t *testing.T, transport Transport) (*Coordinator, *registry.Registry) {
	reg := registry.NewRegistry()
	reg.Upsert(registry.Advertisement{Name: "Living Room", Address: "10.0.0.5", Port: 7000})
	reg.Upsert(registry.Advertisement{Name: "Bedroom", Address: "10.0.0.6", Port: 7000})
	return NewCoordinator(transport, reg, nil), reg
}

func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()
	var perr *Error
	require.True(t, errors.As(err, &perr), "expected *pairing.Error, got %v", err)
	return perr.Kind
}

func TestPairSuccessFlipsExactlyOneDevice(t *testing.T) {
	c, reg := newTestCoordinator(t, &fakeTransport{pin: "1234"})
	require.NoError(t, c.Begin("10.0.0.5", 7000))
	require.NoError(t, c.Submit("10.0.0.5", 7000, "1234"))

	d, _ := reg.Get("10.0.0.5", 7000)
	require.True(t, d.Paired)
	other, _ := reg.Get("10.0.0.6", 7000)
	require.False(t, other.Paired)

	// terminal outcome destroys the attempt
	require.False(t, c.InFlight("10.0.0.5", 7000))
}

func TestInvalidPin(t *testing.T) {
	c, reg := newTestCoordinator(t, &fakeTransport{pin: "1234"})
	require.NoError(t, c.Begin("10.0.0.5", 7000))
	err := c.Submit("10.0.0.5", 7000, "9999")
	require.Equal(t, InvalidPin, kindOf(t, err))

	d, _ := reg.Get("10.0.0.5", 7000)
	require.False(t, d.Paired)
	// challenge stays open for a retry
	require.True(t, c.InFlight("10.0.0.5", 7000))
}

func TestFourthSubmitInWindowIsThrottled(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeTransport{pin: "1234"})
	require.NoError(t, c.Begin("10.0.0.5", 7000))
	for i := 0; i < 3; i++ {
		err := c.Submit("10.0.0.5", 7000, "0000")
		require.Equal(t, InvalidPin, kindOf(t, err))
	}
	// the 4th submission is rejected even with the correct PIN
	err := c.Submit("10.0.0.5", 7000, "1234")
	require.Equal(t, TooManyAttempts, kindOf(t, err))
	// the throttle destroyed the attempt
	require.False(t, c.InFlight("10.0.0.5", 7000))

	// restarting from begin does not reset the window
	require.NoError(t, c.Begin("10.0.0.5", 7000))
	err = c.Submit("10.0.0.5", 7000, "1234")
	require.Equal(t, TooManyAttempts, kindOf(t, err))
}

func TestThrottleWindowResets(t *testing.T) {
	c, reg := newTestCoordinator(t, &fakeTransport{pin: "1234"})
	c.window = 30 * time.Millisecond
	require.NoError(t, c.Begin("10.0.0.5", 7000))
	for i := 0; i < 3; i++ {
		c.Submit("10.0.0.5", 7000, "0000")
	}
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, c.Submit("10.0.0.5", 7000, "1234"))
	d, _ := reg.Get("10.0.0.5", 7000)
	require.True(t, d.Paired)
}

func TestSecondBeginWhileInFlight(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeTransport{pin: "1234"})
	require.NoError(t, c.Begin("10.0.0.5", 7000))
	err := c.Begin("10.0.0.5", 7000)
	require.Equal(t, AlreadyPairing, kindOf(t, err))

	// independent devices pair independently
	require.NoError(t, c.Begin("10.0.0.6", 7000))
}

func TestChallengeExpiry(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeTransport{pin: "1234"})
	c.expiry = 20 * time.Millisecond
	require.NoError(t, c.Begin("10.0.0.5", 7000))
	time.Sleep(30 * time.Millisecond)

	err := c.Submit("10.0.0.5", 7000, "1234")
	require.Equal(t, Expired, kindOf(t, err))

	// expiry frees the device for a fresh begin
	require.NoError(t, c.Begin("10.0.0.5", 7000))
}

func TestSubmitWithoutBegin(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeTransport{pin: "1234"})
	err := c.Submit("10.0.0.5", 7000, "1234")
	require.Equal(t, Expired, kindOf(t, err))
}

func TestBeginUnreachable(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeTransport{challengeErr: errors.New("connection refused")})
	err := c.Begin("10.0.0.5", 7000)
	require.Equal(t, Unreachable, kindOf(t, err))
	// a failed begin leaves no attempt behind
	require.False(t, c.InFlight("10.0.0.5", 7000))
}

func TestBeginUnknownDevice(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeTransport{pin: "1234"})
	err := c.Begin("10.9.9.9", 7000)
	require.Equal(t, Unreachable, kindOf(t, err))
}

func TestPairedHandlerRuns(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Upsert(registry.Advertisement{Name: "TV", Address: "10.0.0.5", Port: 7000})
	var remembered *registry.Device
	c := NewCoordinator(&fakeTransport{pin: "1234"}, reg, func(d registry.Device) {
		remembered = &d
	})
	require.NoError(t, c.Begin("10.0.0.5", 7000))
	require.NoError(t, c.Submit("10.0.0.5", 7000, "1234"))
	require.NotNil(t, remembered)
	require.Equal(t, "TV", remembered.Name)
}
