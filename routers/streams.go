package routers

import (
	"fmt"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/gin-gonic/gin"

	"github.com/deckcast/deckcast/log"
)

/**
 * @apiDefine stream Stream management
 */

/**
 * @api {get} /api/v1/stream/start Start mirroring to a receiver
 * @apiGroup stream
 * @apiName StreamStart
 * @apiParam {String} address receiver address
 * @apiParam {Number} [port=7000] receiver port
 * @apiSuccess (200) {Boolean} success
 * @apiSuccess (200) {String} device name of the connected receiver
 */
func (h *APIHandler) StreamStart(c *gin.Context) {
	type Form struct {
		Address string `form:"address" binding:"required"`
		Port    int    `form:"port"`
	}
	var form Form
	if err := c.Bind(&form); err != nil {
		log.Error("stream start bind err: ", err)
		return
	}
	port := defaultPort(form.Port)
	if err := h.session.Start(form.Address, port); err != nil {
		log.Error("stream start err: ", err)
		abortWithError(c, err)
		return
	}
	snap := h.session.Current()
	name := ""
	if snap.Device != nil {
		name = snap.Device.Name
	}
	log.Info(fmt.Sprintf("started stream to %s (%s:%d)", name, form.Address, port))
	c.IndentedJSON(200, gin.H{"success": true, "device": name})
}

/**
 * @api {get} /api/v1/stream/stop Stop the active stream
 * @apiGroup stream
 * @apiName StreamStop
 * @apiSuccess (200) {Boolean} success
 */
func (h *APIHandler) StreamStop(c *gin.Context) {
	if err := h.session.Stop(); err != nil {
		log.Error("stream stop err: ", err)
		abortWithError(c, err)
		return
	}
	log.Info("stream stopped")
	c.IndentedJSON(200, gin.H{"success": true})
}

/**
 * @api {get} /api/v1/stream/status Current streaming status
 * @apiGroup stream
 * @apiName StreamStatus
 * @apiSuccess (200) {Boolean} streaming
 * @apiSuccess (200) {Object} device the connected receiver, null when idle
 * @apiSuccess (200) {String} startAt session start time, empty when idle
 */
func (h *APIHandler) StreamStatus(c *gin.Context) {
	snap := h.broadcaster.Snapshot()
	body := gin.H{
		"streaming": snap.Streaming,
		"device":    snap.Device,
		"startAt":   "",
	}
	if s, ok := h.session.CurrentSession(); ok {
		body["startAt"] = utils.DateTime(s.StartedAt)
		body["state"] = s.State.String()
	}
	c.IndentedJSON(200, body)
}
