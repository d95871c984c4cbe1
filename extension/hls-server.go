package extension

import (
	"fmt"
	"net"
	"net/http"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/MeloQi/EasyGoLib/utils"
	myutils "github.com/StreamKeeper/StreamKeeper/utils"
	log "github.com/sirupsen/logrus"
)

// HlsServer re-hosts the rolling HLS proxy directory on its own listener,
// separate from the main API port.
type HlsServer struct {
	HlsAddr      string
	HlsDir       string
	Enabled      bool
	Embedded     bool
	LogLevel     string
	ReadTimeout  int
	WriteTimeout int
	HlsListener  *net.TCPListener
}

var instance *HlsServer = nil

func GetHlsServer() *HlsServer {
	if instance == nil {
		instance = &HlsServer{
			Enabled:      utils.Conf().Section("hls").Key("enabled").MustBool(true),
			Embedded:     utils.Conf().Section("hls").Key("embedded_server").MustBool(true),
			LogLevel:     utils.Conf().Section("hls").Key("log_level").MustString("info"),
			HlsAddr:      utils.Conf().Section("hls").Key("hls_addr").MustString(":7002"),
			HlsDir:       utils.Conf().Section("hls").Key("dir_path").MustString("hls"),
			ReadTimeout:  utils.Conf().Section("hls").Key("read_timeout").MustInt(10),
			WriteTimeout: utils.Conf().Section("hls").Key("write_timeout").MustInt(10),
			HlsListener:  nil,
		}

		Config.Set("level", instance.LogLevel)
		Config.Set("hls_addr", instance.HlsAddr)
		Config.Set("hls_dir", instance.HlsDir)
		Config.Set("read_timeout", instance.ReadTimeout)
		Config.Set("write_timeout", instance.WriteTimeout)

		// Log
		if l, err := log.ParseLevel(Config.GetString("level")); err == nil {
			log.SetLevel(l)
			log.SetReportCaller(l == log.DebugLevel)
		}
	}
	return instance
}

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := path.Base(f.File)
			return fmt.Sprintf("%s()", f.Function), fmt.Sprintf(" %s:%d", filename, f.Line)
		},
	})
}

func (s *HlsServer) handler() http.Handler {
	fs := http.FileServer(http.Dir(s.HlsDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		switch {
		case strings.HasSuffix(r.URL.Path, ".m3u8"):
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			w.Header().Set("Cache-Control", "no-cache")
		case strings.HasSuffix(r.URL.Path, ".ts"):
			w.Header().Set("Content-Type", "video/mp2t")
		}
		fs.ServeHTTP(w, r)
	})
}

func (s *HlsServer) Start() {
	addr, err := net.ResolveTCPAddr("tcp", s.HlsAddr)
	if err != nil {
		log.Fatal(err)
	}
	hlsListen, err := net.ListenTCP("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	s.HlsListener = hlsListen
	server := &http.Server{
		Handler:      s.handler(),
		ReadTimeout:  time.Duration(s.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.WriteTimeout) * time.Second,
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("HLS server panic: ", r)
			}
		}()
		log.Info("HLS server start --> http://", myutils.GetFullAddress(s.HlsAddr))
		server.Serve(hlsListen)
	}()
}

func (s *HlsServer) Stop() {
	if s.HlsListener != nil {
		s.HlsListener.Close()
	}
}
