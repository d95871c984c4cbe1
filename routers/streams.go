package routers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/StreamKeeper/StreamKeeper/log"
	"github.com/StreamKeeper/StreamKeeper/stream"
	myutils "github.com/StreamKeeper/StreamKeeper/utils"
	"github.com/gin-gonic/gin"
)

/**
 * @apiDefine stream Stream management
 */

/**
 * @api {get} /api/v1/stream/add Register a livestream URL
 * @apiGroup stream
 * @apiName StreamAdd
 * @apiParam {String} url The livestream page URL (YouTube, Facebook, Twitch or direct)
 * @apiSuccess (200) {String} ID The stream ID used by every other operation
 */
func (h *APIHandler) StreamAdd(c *gin.Context) {
	type Form struct {
		URL string `form:"url" binding:"required"`
	}
	var form Form
	err := c.Bind(&form)
	if err != nil {
		log.Error("stream add bind err: ", err)
		return
	}
	id, err := stream.GetSupervisor().AddURL(c.Request.Context(), form.URL)
	if err != nil {
		if errors.Is(err, stream.ErrNotLive) {
			c.IndentedJSON(526, "Stream is not live")
			return
		}
		log.Error("stream add err: ", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, err.Error())
		return
	}
	c.IndentedJSON(200, id)
}

/**
 * @api {get} /api/v1/stream/delete Stop and remove a stream
 * @apiGroup stream
 * @apiName StreamDelete
 * @apiParam {String} id The stream ID
 * @apiUse simpleSuccess
 */
func (h *APIHandler) StreamDelete(c *gin.Context) {
	type Form struct {
		ID string `form:"id" binding:"required"`
	}
	var form Form
	err := c.Bind(&form)
	if err != nil {
		log.Error("stream delete bind err: ", err)
		return
	}
	stream.GetSupervisor().Cleanup(form.ID)
	c.IndentedJSON(200, "OK")
}

/**
 * @api {get} /api/v1/streams List supervised streams
 * @apiGroup stream
 * @apiName Streams
 * @apiParam {Number} [start] Paging offset, zero based
 * @apiParam {Number} [limit] Page size
 * @apiParam {String} [sort] Sort field
 * @apiParam {String=ascending,descending} [order] Sort order
 * @apiParam {String} [q] Query filter, matched against the URL
 * @apiSuccess (200) {Number} total
 * @apiSuccess (200) {Array} rows Stream list
 * @apiSuccess (200) {String} rows.id
 * @apiSuccess (200) {String} rows.url
 * @apiSuccess (200) {String} rows.kind
 * @apiSuccess (200) {String} rows.title
 * @apiSuccess (200) {String} rows.status
 * @apiSuccess (200) {String} rows.proxyUrl Rolling HLS playlist URL, when proxying
 * @apiSuccess (200) {String} rows.recordingPath Recording file, when recording
 */
func (h *APIHandler) Streams(c *gin.Context) {
	form := utils.NewPageForm()
	if err := c.Bind(form); err != nil {
		return
	}
	base := myutils.GetHostName()
	rows := make([]interface{}, 0)
	for _, s := range stream.GetSupervisor().Streams() {
		if form.Q != "" && !strings.Contains(strings.ToLower(s.Source.URL), strings.ToLower(form.Q)) {
			continue
		}
		proxyURL := s.ProxyURL
		if proxyURL != "" {
			proxyURL = base + s.ProxyURL
		}
		rows = append(rows, map[string]interface{}{
			"id":            s.ID,
			"url":           s.Source.URL,
			"kind":          s.Source.Kind.String(),
			"externalId":    s.Source.ExternalId,
			"title":         s.Source.Title,
			"embedUrl":      s.Source.EmbedURL,
			"status":        s.Status.String(),
			"proxyUrl":      proxyURL,
			"recordingPath": s.RecordingPath,
		})
	}
	pr := utils.NewPageResult(rows)
	if form.Sort != "" {
		pr.Sort(form.Sort, form.Order)
	}
	pr.Slice(form.Start, form.Limit)
	c.IndentedJSON(200, pr)
}

/**
 * @api {get} /api/v1/proxy/start Start the HLS relay for a stream
 * @apiGroup stream
 * @apiName ProxyStart
 * @apiParam {String} id The stream ID
 * @apiSuccess (200) {String} url The rolling playlist path
 */
func (h *APIHandler) ProxyStart(c *gin.Context) {
	type Form struct {
		ID string `form:"id" binding:"required"`
	}
	var form Form
	err := c.Bind(&form)
	if err != nil {
		log.Error("proxy start bind err: ", err)
		return
	}
	playlist, err := stream.GetSupervisor().StartProxy(form.ID)
	if err != nil {
		switch {
		case errors.Is(err, stream.ErrNotFound):
			c.IndentedJSON(526, "Stream not found")
		case errors.Is(err, stream.ErrAlreadyRunning):
			c.IndentedJSON(526, "Proxy already running")
		default:
			log.Error("proxy start err: ", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, err.Error())
		}
		return
	}
	c.IndentedJSON(200, playlist)
}
