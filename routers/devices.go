package routers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/gin-gonic/gin"

	"github.com/deckcast/deckcast/log"
	deckutils "github.com/deckcast/deckcast/utils"
)

/**
 * @apiDefine device Device management
 */

/**
 * @api {get} /api/v1/devices Discover receivers
 * @apiGroup device
 * @apiName Devices
 * @apiParam {Number} [timeout] scan window in seconds
 * @apiSuccess (200) {Array} rows known receivers in first-seen order
 * @apiSuccess (200) {String} rows.name
 * @apiSuccess (200) {String} rows.address
 * @apiSuccess (200) {Number} rows.port
 * @apiSuccess (200) {String} rows.model
 * @apiSuccess (200) {Boolean} rows.paired
 */
func (h *APIHandler) Devices(c *gin.Context) {
	type Form struct {
		Timeout int `form:"timeout"`
	}
	var form Form
	if err := c.Bind(&form); err != nil {
		log.Error("discover bind err: ", err)
		return
	}
	if form.Timeout <= 0 {
		form.Timeout = utils.Conf().Section("discovery").Key("scan_timeout_sec").MustInt(5)
	}
	devices, err := h.discovery.Scan(time.Duration(form.Timeout) * time.Second)
	if err != nil {
		log.Error("discover err: ", err)
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(200, devices)
}

/**
 * @api {get} /api/v1/device/pair/begin Trigger the receiver's PIN screen
 * @apiGroup device
 * @apiName PairBegin
 * @apiParam {String} address receiver address
 * @apiParam {Number} [port=7000] receiver port
 * @apiUse simpleSuccess
 */
func (h *APIHandler) PairBegin(c *gin.Context) {
	type Form struct {
		Address string `form:"address" binding:"required"`
		Port    int    `form:"port"`
	}
	var form Form
	if err := c.Bind(&form); err != nil {
		log.Error("pair begin bind err: ", err)
		return
	}
	port := defaultPort(form.Port)
	if err := h.pairing.Begin(form.Address, port); err != nil {
		log.Error("pair begin err: ", err)
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(200, "OK")
}

/**
 * @api {get} /api/v1/device/pair Pair with a receiver
 * @apiGroup device
 * @apiName Pair
 * @apiParam {String} address receiver address
 * @apiParam {Number} [port=7000] receiver port
 * @apiParam {String} pin PIN shown by the receiver
 * @apiSuccess (200) {Boolean} success
 */
func (h *APIHandler) Pair(c *gin.Context) {
	type Form struct {
		Address string `form:"address" binding:"required"`
		Port    int    `form:"port"`
		Pin     string `form:"pin" binding:"required"`
	}
	var form Form
	if err := c.Bind(&form); err != nil {
		log.Error("pair bind err: ", err)
		return
	}
	port := defaultPort(form.Port)
	// the panel may call this without an explicit begin; open the
	// challenge on its behalf then
	if !h.pairing.InFlight(form.Address, port) {
		if err := h.pairing.Begin(form.Address, port); err != nil {
			log.Error("pair err: ", err)
			abortWithError(c, err)
			return
		}
	}
	if err := h.pairing.Submit(form.Address, port, form.Pin); err != nil {
		log.Error("pair err: ", err)
		abortWithError(c, err)
		return
	}
	log.Info(fmt.Sprintf("paired with %s:%d", form.Address, port))
	c.IndentedJSON(200, gin.H{"success": true})
}

/**
 * @api {get} /api/v1/device/test Test receiver reachability
 * @apiGroup device
 * @apiName DeviceTest
 * @apiParam {String} address receiver address
 * @apiParam {Number} [port=7000] receiver port
 * @apiSuccess (200) {Boolean} reachable
 */
func (h *APIHandler) DeviceTest(c *gin.Context) {
	type Form struct {
		Address string `form:"address" binding:"required"`
		Port    int    `form:"port"`
	}
	var form Form
	if err := c.Bind(&form); err != nil {
		log.Error("device test bind err: ", err)
		return
	}
	port := defaultPort(form.Port)
	reachable := deckutils.IsReachable(form.Address, port, 3*time.Second)
	c.IndentedJSON(http.StatusOK, gin.H{"reachable": reachable})
}

func defaultPort(port int) int {
	if port > 0 {
		return port
	}
	return utils.Conf().Section("stream").Key("default_port").MustInt(7000)
}
