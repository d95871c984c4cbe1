package routers

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/StreamKeeper/StreamKeeper/log"
	"github.com/StreamKeeper/StreamKeeper/stream"
	"github.com/gin-gonic/gin"
)

/**
 * @apiDefine record Recording
 */

/**
 * @api {get} /api/v1/record/start Start recording a stream
 * @apiGroup record
 * @apiName RecordStart
 * @apiParam {String} id The stream ID
 * @apiSuccess (200) {String} file The recording file path
 */
func (h *APIHandler) RecordStart(c *gin.Context) {
	type Form struct {
		ID string `form:"id" binding:"required"`
	}
	var form = Form{}
	err := c.Bind(&form)
	if err != nil {
		log.Error("record bind err: ", err)
		c.IndentedJSON(http.StatusBadRequest, "request error")
		return
	}

	f, err := stream.GetSupervisor().StartRecording(form.ID)
	if err != nil {
		switch {
		case errors.Is(err, stream.ErrNotFound):
			c.IndentedJSON(526, "Stream not found")
		case errors.Is(err, stream.ErrAlreadyRunning):
			c.IndentedJSON(526, "Recording already running")
		case errors.Is(err, stream.ErrNotActive):
			c.IndentedJSON(526, "Stream not active")
		default:
			log.Error("record start err: ", err)
			c.IndentedJSON(526, err.Error())
		}
		return
	}
	c.IndentedJSON(200, f)
}

/**
 * @api {get} /api/v1/record/stop Stop recording a stream
 * @apiGroup record
 * @apiName RecordStop
 * @apiParam {String} id The stream ID
 * @apiSuccess (200) {String} file The recording file path
 * @apiSuccess (200) {Boolean} usable Whether the artifact survived
 * @apiSuccess (200) {Boolean} fixAttempted
 * @apiSuccess (200) {Boolean} fixSucceeded
 */
func (h *APIHandler) RecordStop(c *gin.Context) {
	type Form struct {
		ID string `form:"id" binding:"required"`
	}
	var form = Form{}
	err := c.Bind(&form)
	if err != nil {
		log.Error("record bind err: ", err)
		c.IndentedJSON(http.StatusBadRequest, "request error")
		return
	}

	result, err := stream.GetSupervisor().StopRecording(form.ID)
	if err != nil {
		switch {
		case errors.Is(err, stream.ErrNotFound):
			c.IndentedJSON(526, "Stream not found")
		case errors.Is(err, stream.ErrNotRecording):
			c.IndentedJSON(526, "Stream not recording")
		default:
			log.Error("record stop err: ", err)
			c.IndentedJSON(526, err.Error())
		}
		return
	}
	c.IndentedJSON(200, map[string]interface{}{
		"file":         result.RecordingPath,
		"usable":       result.Usable,
		"fixAttempted": result.FixAttempted,
		"fixSucceeded": result.FixSucceeded,
	})
}

/**
 * @api {get} /api/v1/record/transcribe Transcribe the live recording
 * @apiGroup record
 * @apiName RecordTranscribe
 * @apiParam {String} id The stream ID
 * @apiSuccess (200) {String} taskId The transcription task ID
 */
func (h *APIHandler) RecordTranscribe(c *gin.Context) {
	type Form struct {
		ID string `form:"id" binding:"required"`
	}
	var form = Form{}
	err := c.Bind(&form)
	if err != nil {
		log.Error("transcribe bind err: ", err)
		c.IndentedJSON(http.StatusBadRequest, "request error")
		return
	}

	sec := utils.Conf().Section("record")
	binary := sec.Key("transcriber_binary").MustString("")
	if binary == "" {
		c.IndentedJSON(526, "Transcription not configured")
		return
	}
	args := strings.Fields(sec.Key("transcriber_args").MustString(""))
	taskID, err := stream.GetSupervisor().StartTranscription(form.ID, stream.NewCommandTranscriber(binary, args...))
	if err != nil {
		switch {
		case errors.Is(err, stream.ErrNotFound):
			c.IndentedJSON(526, "Stream not found")
		case errors.Is(err, stream.ErrNotRecording):
			c.IndentedJSON(526, "No recording to transcribe")
		default:
			log.Error("transcribe err: ", err)
			c.IndentedJSON(526, err.Error())
		}
		return
	}
	c.IndentedJSON(200, taskID)
}

/**
 * @api {get} /api/v1/record/files List finished recording files
 * @apiGroup record
 * @apiName RecordFiles
 * @apiParam {Number} [start] Paging offset, zero based
 * @apiParam {Number} [limit] Page size
 * @apiParam {String} [sort] Sort field
 * @apiParam {String=ascending,descending} [order] Sort order
 * @apiSuccess (200) {Number} total
 * @apiSuccess (200) {Array} rows File list
 * @apiSuccess (200) {String} rows.path Relative path under http[s]://host:port/record/
 * @apiSuccess (200) {String} rows.duration Formatted duration
 * @apiSuccess (200) {Number} rows.durationMillis Duration in milliseconds
 */
func (h *APIHandler) RecordFiles(c *gin.Context) {
	var form = utils.NewPageForm()
	form.Limit = math.MaxUint32
	err := c.Bind(form)
	if err != nil {
		log.Error("record file bind err: ", err)
		return
	}

	files := make([]interface{}, 0)
	recordDir := utils.Conf().Section("record").Key("output_dir_path").MustString("recordings")
	ffprobe := utils.Conf().Section("stream").Key("ffprobe_binary").MustString("ffprobe")
	visit := func(files *[]interface{}) filepath.WalkFunc {
		return func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if info.Size() == 0 {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(info.Name()), ".mp4") {
				return nil
			}
			duration, durationStr := probeDuration(ffprobe, path)
			*files = append(*files, map[string]interface{}{
				"path":           strings.TrimPrefix(path[len(recordDir):], "/"),
				"size":           info.Size(),
				"durationMillis": duration / time.Millisecond,
				"duration":       durationStr})
			return nil
		}
	}
	err = filepath.Walk(recordDir, visit(&files))
	if err != nil && !os.IsNotExist(err) {
		log.Error("Query RecordFiles err: ", err)
	}

	pr := utils.NewPageResult(files)
	if form.Sort != "" {
		pr.Sort(form.Sort, form.Order)
	}
	pr.Slice(form.Start, form.Limit)
	c.IndentedJSON(200, pr)
}

var durationPattern = regexp.MustCompile(`Duration: ((\d+):(\d+):(\d+).(\d+))`)

// probeDuration scrapes the Duration line out of ffprobe's banner output.
func probeDuration(ffprobe, path string) (time.Duration, string) {
	cmd := exec.Command(ffprobe, "-i", path)
	cmdOutput := &bytes.Buffer{}
	cmd.Stderr = cmdOutput
	_ = cmd.Run()
	result := durationPattern.FindStringSubmatch(cmdOutput.String())
	duration := time.Duration(0)
	durationStr := ""
	if len(result) > 0 {
		durationStr = result[1]
		h, _ := strconv.Atoi(result[2])
		duration += time.Duration(h) * time.Hour
		m, _ := strconv.Atoi(result[3])
		duration += time.Duration(m) * time.Minute
		s, _ := strconv.Atoi(result[4])
		duration += time.Duration(s) * time.Second
		millis, _ := strconv.Atoi(result[5])
		duration += time.Duration(millis) * time.Millisecond
	}
	return duration, durationStr
}
