package routers

import (
	"runtime"
	"time"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/StreamKeeper/StreamKeeper/stream"
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

/**
 * @apiDefine stats Statistics
 */

var startedAt = time.Now()

/**
 * @api {get} /api/v1/serverinfo Server info
 * @apiGroup stats
 * @apiName ServerInfo
 * @apiSuccess (200) {String} hardware
 * @apiSuccess (200) {String} runningTime Time since the service started
 * @apiSuccess (200) {Number} cpuUsage CPU usage percentage
 * @apiSuccess (200) {Number} memUsage Memory usage percentage
 * @apiSuccess (200) {Number} streams Number of supervised streams
 * @apiSuccess (200) {Number} processes Number of live child processes
 */
func (h *APIHandler) ServerInfo(c *gin.Context) {
	cpuUsage := float64(0)
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		cpuUsage = percents[0]
	}
	memUsage := float64(0)
	if vm, err := mem.VirtualMemory(); err == nil {
		memUsage = vm.UsedPercent
	}
	sup := stream.GetSupervisor()
	c.IndentedJSON(200, map[string]interface{}{
		"hardware":    runtime.GOARCH,
		"server":      "StreamKeeper/" + BuildVersion,
		"runningTime": time.Since(startedAt).Round(time.Second).String(),
		"cpuUsage":    cpuUsage,
		"memUsage":    memUsage,
		"streams":     len(sup.Streams()),
		"processes":   len(sup.Handles()),
	})
}

/**
 * @api {get} /api/v1/processes List live child processes
 * @apiGroup stats
 * @apiName Processes
 * @apiParam {Number} [start] Paging offset, zero based
 * @apiParam {Number} [limit] Page size
 * @apiParam {String} [sort] Sort field
 * @apiParam {String=ascending,descending} [order] Sort order
 * @apiSuccess (200) {Number} total
 * @apiSuccess (200) {Array} rows Process list
 * @apiSuccess (200) {String} rows.id
 * @apiSuccess (200) {String} rows.streamId
 * @apiSuccess (200) {String} rows.role
 * @apiSuccess (200) {Number} rows.pid
 * @apiSuccess (200) {String} rows.startAt
 * @apiSuccess (200) {String} rows.output
 */
func (h *APIHandler) Processes(c *gin.Context) {
	form := utils.NewPageForm()
	if err := c.Bind(form); err != nil {
		return
	}
	rows := make([]interface{}, 0)
	for _, handle := range stream.GetSupervisor().Handles() {
		rows = append(rows, map[string]interface{}{
			"id":       handle.ID,
			"streamId": handle.StreamID,
			"role":     handle.Role.String(),
			"pid":      handle.PID,
			"startAt":  utils.DateTime(handle.StartedAt),
			"output":   handle.OutputPath,
		})
	}
	pr := utils.NewPageResult(rows)
	if form.Sort != "" {
		pr.Sort(form.Sort, form.Order)
	}
	pr.Slice(form.Start, form.Limit)
	c.IndentedJSON(200, pr)
}
