package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/MeloQi/service"
	"github.com/StreamKeeper/StreamKeeper/extension"
	"github.com/StreamKeeper/StreamKeeper/log"
	"github.com/StreamKeeper/StreamKeeper/models"
	"github.com/StreamKeeper/StreamKeeper/routers"
	"github.com/StreamKeeper/StreamKeeper/stream"
	myutils "github.com/StreamKeeper/StreamKeeper/utils"
	"github.com/common-nighthawk/go-figure"
)

var (
	gitCommitCode string
	buildDateTime string
)

type program struct {
	httpPort   int
	httpServer *http.Server
	supervisor *stream.Supervisor
	hlsServer  *extension.HlsServer
}

func (p *program) StopHTTP() (err error) {
	if p.httpServer == nil {
		err = fmt.Errorf("HTTP Server Not Found")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = p.httpServer.Shutdown(ctx); err != nil {
		return
	}
	return
}

func (p *program) StartHTTP() (err error) {
	p.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", p.httpPort),
		Handler:           routers.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	link := fmt.Sprintf("http://%s:%d", utils.LocalIP(), p.httpPort)
	log.Info("http server start -->", link)
	go func() {
		if err := p.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("start http server error: ", err)
		}
		log.Info("http server end")
	}()
	return
}

func (p *program) StartHlsServer() (err error) {
	if p.hlsServer.Enabled && p.hlsServer.Embedded {
		p.hlsServer.Start()
	}
	return nil
}

func (p *program) StopHlsServer() (err error) {
	if p.hlsServer.Enabled && p.hlsServer.Embedded {
		p.hlsServer.Stop()
	}
	return nil
}

func (p *program) Start(s service.Service) (err error) {
	log.Info("********** START **********")
	if utils.IsPortInUse(p.httpPort) {
		err = fmt.Errorf("HTTP port[%d] In Use", p.httpPort)
		return
	}
	for _, binary := range []string{
		utils.Conf().Section("codec").Key("ffmpeg_binary").MustString("ffmpeg"),
		utils.Conf().Section("stream").Key("ytdlp_binary").MustString("yt-dlp"),
		utils.Conf().Section("stream").Key("ffprobe_binary").MustString("ffprobe"),
	} {
		if !myutils.CommandExists(binary) {
			log.Error("command not found in PATH: ", binary)
		}
	}
	err = models.Init()
	if err != nil {
		return
	}
	err = routers.Init()
	if err != nil {
		return
	}
	p.supervisor = stream.GetSupervisor()
	p.supervisor.SetStore(models.NewStore())
	p.StartHTTP()
	p.StartHlsServer()

	if !utils.Debug {
		log.Debug("log files -->", utils.LogDir())
		log.SetOutput(utils.GetLogWriter())
	}
	go func() {
		for range routers.API.RestartChan {
			p.StopHTTP()
			p.StopHlsServer()
			utils.ReloadConf()
			p.StartHTTP()
			p.StartHlsServer()
		}
	}()

	go func() {
		log.Info("starting daemon for re-adopting streams")
		for {
			rows, err := models.AllStreams()
			if err != nil {
				log.Error("find stream err: ", err)
				return
			}
			for i := len(rows) - 1; i > -1; i-- {
				v := rows[i]
				if _, ok := p.supervisor.Get(v.ID); ok {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if err := p.supervisor.Readopt(ctx, v.ID, v.URL); err != nil {
					log.Error("re-adopt stream err: ", err)
				}
				cancel()
			}
			time.Sleep(10 * time.Second)
		}
	}()
	return
}

func (p *program) Stop(s service.Service) (err error) {
	defer log.Info("********** STOP **********")
	defer utils.CloseLogWriter()
	if p.supervisor != nil {
		p.supervisor.ShutdownAll()
	}
	p.StopHTTP()
	p.StopHlsServer()
	models.Close()
	return
}

func main() {
	flag.StringVar(&utils.FlagVarConfFile, "config", "", "configure file path")
	flag.Parse()
	tail := flag.Args()

	log.Info("git commit code: ", gitCommitCode)
	log.Info("build date: ", buildDateTime)
	routers.BuildVersion = fmt.Sprintf("%s.%s", routers.BuildVersion, gitCommitCode)
	routers.BuildDateTime = buildDateTime

	sec := utils.Conf().Section("service")
	svcConfig := &service.Config{
		Name:        sec.Key("name").MustString("StreamKeeper_Service"),
		DisplayName: sec.Key("display_name").MustString("StreamKeeper_Service"),
		Description: sec.Key("description").MustString("StreamKeeper_Service"),
	}

	httpPort := utils.Conf().Section("http").Key("port").MustInt(10008)
	p := &program{
		httpPort:  httpPort,
		hlsServer: extension.GetHlsServer(),
	}
	s, err := service.New(p, svcConfig)
	if err != nil {
		log.Error(err)
		utils.PauseExit()
	}
	if len(tail) > 0 {
		cmd := strings.ToLower(tail[0])
		if cmd == "install" || cmd == "stop" || cmd == "start" || cmd == "uninstall" {
			figure.NewFigure("StreamKeeper", "", false).Print()
			log.Info(svcConfig.Name, cmd, "...")
			if err = service.Control(s, cmd); err != nil {
				log.Error(err)
				utils.PauseExit()
			}
			log.Info(svcConfig.Name, cmd, "ok")
			return
		}
	}
	figure.NewFigure("StreamKeeper", "", false).Print()
	if err = s.Run(); err != nil {
		log.Error(err)
		utils.PauseExit()
	}
}
