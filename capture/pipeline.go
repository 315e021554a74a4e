package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"syscall"
	"time"

	"github.com/pixelbender/go-sdp/sdp"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/deckcast/deckcast/log"
	"github.com/deckcast/deckcast/registry"
	"github.com/deckcast/deckcast/session"
)

// FFmpegPipeline grabs the screen and encodes it toward the receiver as an
// ffmpeg subprocess. Readiness is taken from the session description ffmpeg
// writes once the output leg is negotiated.
type FFmpegPipeline struct{}

func NewFFmpegPipeline() *FFmpegPipeline {
	return &FFmpegPipeline{}
}

type processHandle struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
	out  io.Closer
}

func (h *processHandle) Done() <-chan struct{} { return h.done }

func (h *processHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Stop asks ffmpeg to finish up. SIGTERM lets it flush the output leg.
func (h *processHandle) Stop() {
	if proc := h.cmd.Process; proc != nil {
		proc.Signal(syscall.SIGTERM)
	}
}

func (h *processHandle) Kill() {
	if proc := h.cmd.Process; proc != nil {
		proc.Kill()
	}
}

// Start launches the capture process and blocks until it is ready or dead.
func (p *FFmpegPipeline) Start(ctx context.Context, device registry.Device) (session.PipelineHandle, error) {
	cfg := Config
	sdpPath := path.Join(os.TempDir(), fmt.Sprintf("deckcast-%s-%d.sdp", device.Address, device.Port))
	os.Remove(sdpPath)

	target := fmt.Sprintf("rtp://%s:%d", device.Address, device.Port)
	stream := ffmpeg.Input(cfg.Input, ffmpeg.KwArgs{
		"f":          cfg.InputFormat,
		"framerate":  cfg.Framerate,
		"video_size": cfg.VideoSize,
	}).Output(target, ffmpeg.KwArgs{
		"c:v":    cfg.VideoCodec,
		"preset": cfg.Preset,
		"f":      cfg.OutputFormat,
	}).GlobalArgs("-hide_banner", "-nostats", "-nostdin", "-loglevel", "error", "-sdp_file", sdpPath).
		OverWriteOutput()

	cmd := exec.Command(cfg.FFmpegBinary, stream.GetArgs()...)

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = os.TempDir()
	}
	out := &lumberjack.Logger{
		Filename:   path.Join(logDir, fmt.Sprintf("ffmpeg-%s-%d.log", device.Address, device.Port)),
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogBackups,
		MaxAge:     cfg.LogMaxAge,
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		out.Close()
		return nil, err
	}
	h := &processHandle{cmd: cmd, done: make(chan struct{}), out: out}
	go func() {
		h.err = cmd.Wait()
		h.out.Close()
		close(h.done)
	}()

	if err := awaitReady(ctx, h, sdpPath); err != nil {
		h.Kill()
		return nil, err
	}
	return h, nil
}

// awaitReady polls for the session description file. Its appearance means
// ffmpeg opened the output leg; its content tells us what we are sending.
func awaitReady(ctx context.Context, h *processHandle, sdpPath string) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return fmt.Errorf("capture process exited before ready: %v", h.err)
		case <-ctx.Done():
			return fmt.Errorf("capture process not ready in time: %v", ctx.Err())
		case <-ticker.C:
			desc, err := readSessionDescription(sdpPath)
			if err != nil {
				continue
			}
			for _, media := range desc.Media {
				log.Debug(fmt.Sprintf("capture ready, sending %s on port %d", media.Type, media.Port))
			}
			return nil
		}
	}
}

func readSessionDescription(sdpPath string) (*sdp.Session, error) {
	b, err := os.ReadFile(sdpPath)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("session description still empty")
	}
	return sdp.ParseString(string(b))
}
