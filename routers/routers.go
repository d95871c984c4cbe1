package routers

import (
	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/gin-contrib/pprof"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	cors "github.com/itsjamie/gin-cors"
)

var (
	BuildVersion  = "v1.0"
	BuildDateTime = ""
)

type APIHandler struct {
	RestartChan chan bool
}

var API = &APIHandler{
	RestartChan: make(chan bool),
}

var Router *gin.Engine

func Init() (err error) {
	if utils.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	Router = gin.New()
	pprof.Register(Router)
	Router.Use(gin.Recovery())
	Router.Use(cors.Middleware(cors.Config{
		Origins:         "*",
		ValidateHeaders: false,
		RequestHeaders:  "Origin, Authorization, X-Requested-With, Content-Type, Accept",
		Methods:         "GET, POST, OPTIONS",
	}))

	hlsDir := utils.Conf().Section("hls").Key("dir_path").MustString("hls")
	recordDir := utils.Conf().Section("record").Key("output_dir_path").MustString("recordings")
	Router.Use(static.Serve("/hls", static.LocalFile(hlsDir, false)))
	Router.Use(static.Serve("/record", static.LocalFile(recordDir, false)))

	api := Router.Group("/api/v1")
	{
		api.GET("/stream/add", API.StreamAdd)
		api.GET("/stream/delete", API.StreamDelete)
		api.GET("/streams", API.Streams)
		api.GET("/proxy/start", API.ProxyStart)
		api.GET("/record/start", API.RecordStart)
		api.GET("/record/stop", API.RecordStop)
		api.GET("/record/files", API.RecordFiles)
		api.GET("/record/transcribe", API.RecordTranscribe)
		api.GET("/serverinfo", API.ServerInfo)
		api.GET("/processes", API.Processes)
		api.GET("/restart", API.Restart)
	}
	return
}

/**
 * @api {get} /api/v1/restart Restart the service
 * @apiGroup sys
 * @apiName Restart
 */
func (h *APIHandler) Restart(c *gin.Context) {
	c.IndentedJSON(200, "OK")
	go func() {
		h.RestartChan <- true
	}()
}
