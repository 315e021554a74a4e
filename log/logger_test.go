package log

import (
	"testing"
)

func TestLogger(t *testing.T) {
	d := "Hello"
	logger := NewLogger("1234", SessionId)
	logger.Info("Test Message: ", d)

	logger = NewLogger("10.0.0.5:7000", DeviceId)
	logger.Info("Test Message: ", d)

	logger = NewLogger("abcd", AttemptId)
	logger.Info("Test Message: ", d)
}
