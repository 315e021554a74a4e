package capture

import (
	"os"

	"github.com/deckcast/deckcast/log"
	"github.com/deckcast/deckcast/utils"
)

// Available reports whether screen capture can work at all: the encoder
// binary is on PATH and a display server is reachable.
func Available() bool {
	if !utils.CommandExists(Config.FFmpegBinary) {
		log.Warn(Config.FFmpegBinary, " not found - screen capture may not work")
		return false
	}
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		log.Warn("no display environment - screen capture may not work")
		return false
	}
	return true
}
