package routers

import (
	"errors"
	"net/http"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/gin-contrib/pprof"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"github.com/deckcast/deckcast/capture"
	"github.com/deckcast/deckcast/discovery"
	"github.com/deckcast/deckcast/log"
	"github.com/deckcast/deckcast/models"
	"github.com/deckcast/deckcast/pairing"
	"github.com/deckcast/deckcast/registry"
	"github.com/deckcast/deckcast/session"
	"github.com/deckcast/deckcast/status"
)

/**
 * @apiDefine simpleSuccess
 * @apiSuccessExample Success
 * HTTP/1.1 200 OK
 */

var (
	BuildVersion  = "v1.0"
	BuildDateTime = ""
)

type APIHandler struct {
	RestartChan chan bool

	registry    *registry.Registry
	discovery   *discovery.Engine
	pairing     *pairing.Coordinator
	session     *session.Manager
	broadcaster *status.Broadcaster
}

var API *APIHandler
var Router *gin.Engine

func Init() (err error) {
	reg := registry.GetRegistry()
	engine := discovery.NewEngine(discovery.NewZeroconfBrowser(), reg, models.IsPaired)
	coordinator := pairing.NewCoordinator(pairing.NewAirPlayTransport(), reg, func(d registry.Device) {
		if err := models.RememberPaired(d.Address, d.Port, d.Name, d.Model); err != nil {
			log.Warn("persist pairing: ", err)
		}
	})
	manager := session.NewManager(capture.NewFFmpegPipeline(), reg)
	broadcaster := status.NewBroadcaster(manager.Current)
	manager.SetNotifier(broadcaster.Publish)

	API = &APIHandler{
		RestartChan: make(chan bool),
		registry:    reg,
		discovery:   engine,
		pairing:     coordinator,
		session:     manager,
		broadcaster: broadcaster,
	}

	if !utils.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	Router = gin.Default()
	pprof.Register(Router)

	wwwDir := utils.Conf().Section("http").Key("www_dir").MustString("")
	if wwwDir != "" {
		Router.Use(static.Serve("/", static.LocalFile(wwwDir, true)))
	}

	api := Router.Group("/api/v1")
	api.GET("/devices", API.Devices)
	api.GET("/device/pair/begin", API.PairBegin)
	api.GET("/device/pair", API.Pair)
	api.GET("/device/test", API.DeviceTest)
	api.GET("/stream/start", API.StreamStart)
	api.GET("/stream/stop", API.StreamStop)
	api.GET("/stream/status", API.StreamStatus)
	api.GET("/capture/check", API.CaptureCheck)
	api.GET("/sysinfo", API.SysInfo)
	api.GET("/restart", API.Restart)
	api.GET("/status/ws", API.StatusWS)
	return
}

// Manager exposes the session manager for the program's shutdown path.
func (h *APIHandler) Manager() *session.Manager {
	return h.session
}

// Discovery exposes the discovery engine for the background scan daemon.
func (h *APIHandler) Discovery() *discovery.Engine {
	return h.discovery
}

// abortWithError maps the typed failure onto a status code plus a body the
// panel can show verbatim.
func abortWithError(c *gin.Context, err error) {
	var derr *discovery.Error
	if errors.As(err, &derr) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"kind": derr.Kind.String(), "error": derr.Reason})
		return
	}
	var perr *pairing.Error
	if errors.As(err, &perr) {
		code := http.StatusBadRequest
		switch perr.Kind {
		case pairing.AlreadyPairing, pairing.TooManyAttempts:
			code = http.StatusConflict
		case pairing.Unreachable:
			code = http.StatusBadGateway
		case pairing.Expired:
			code = http.StatusGone
		}
		c.AbortWithStatusJSON(code, gin.H{"kind": perr.Kind.String(), "error": perr.Reason})
		return
	}
	var serr *session.Error
	if errors.As(err, &serr) {
		code := http.StatusBadRequest
		switch serr.Kind {
		case session.AlreadyStreaming:
			code = http.StatusConflict
		case session.PipelineError:
			code = http.StatusBadGateway
		}
		c.AbortWithStatusJSON(code, gin.H{"kind": serr.Kind.String(), "error": serr.Reason})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
