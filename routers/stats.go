package routers

import (
	"os"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/host"

	"github.com/deckcast/deckcast/capture"
	"github.com/deckcast/deckcast/log"
	"github.com/deckcast/deckcast/utils"
)

/**
 * @apiDefine stats System information
 */

/**
 * @api {get} /api/v1/capture/check Screen capture availability
 * @apiGroup stats
 * @apiName CaptureCheck
 * @apiSuccess (200) {Boolean} available
 */
func (h *APIHandler) CaptureCheck(c *gin.Context) {
	c.IndentedJSON(200, gin.H{"available": capture.Available()})
}

/**
 * @api {get} /api/v1/sysinfo Platform and tooling descriptor
 * @apiGroup stats
 * @apiName SysInfo
 * @apiSuccess (200) {String} platform
 * @apiSuccess (200) {String} kernel
 * @apiSuccess (200) {String} architecture
 * @apiSuccess (200) {String} displayEnv
 * @apiSuccess (200) {String} waylandDisplay
 * @apiSuccess (200) {Object} availableTools
 */
func (h *APIHandler) SysInfo(c *gin.Context) {
	info := gin.H{
		"platform":       runtime.GOOS,
		"kernel":         "",
		"architecture":   runtime.GOARCH,
		"displayEnv":     os.Getenv("DISPLAY"),
		"waylandDisplay": os.Getenv("WAYLAND_DISPLAY"),
		"version":        BuildVersion,
	}
	if hostInfo, err := host.Info(); err == nil {
		info["platform"] = hostInfo.Platform
		info["kernel"] = hostInfo.KernelVersion
		info["hostname"] = hostInfo.Hostname
	} else {
		log.Warn("host info: ", err)
	}

	tools := gin.H{}
	for _, tool := range []string{"ffmpeg", "gst-launch-1.0", "xwininfo"} {
		tools[tool] = utils.CommandExists(tool)
	}
	info["availableTools"] = tools
	c.IndentedJSON(200, info)
}

/**
 * @api {get} /api/v1/restart Soft-restart the servers
 * @apiGroup stats
 * @apiName Restart
 * @apiUse simpleSuccess
 */
func (h *APIHandler) Restart(c *gin.Context) {
	log.Info("restart requested")
	c.IndentedJSON(200, "OK")
	go func() {
		h.RestartChan <- true
	}()
}
