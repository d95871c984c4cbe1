package extension

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type ServerCfg struct {
	Level        string `json:"level"`
	HLSAddr      string `json:"hls_addr"`
	HLSDir       string `json:"hls_dir"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// default config
var defaultConf = ServerCfg{
	Level:        "info",
	HLSAddr:      ":7002",
	HLSDir:       "hls",
	WriteTimeout: 10,
	ReadTimeout:  10,
}

var Config = viper.New()

func init() {
	// Default config
	b, _ := json.Marshal(defaultConf)
	defaultConfig := bytes.NewReader(b)
	Config.SetConfigType("json")
	Config.ReadConfig(defaultConfig)

	// Environment
	replacer := strings.NewReplacer(".", "_")
	Config.SetEnvKeyReplacer(replacer)
	Config.AllowEmptyEnv(true)
	Config.AutomaticEnv()

	// Log
	if l, err := log.ParseLevel(Config.GetString("level")); err == nil {
		log.SetLevel(l)
		log.SetReportCaller(l == log.DebugLevel)
	}

	c := ServerCfg{}
	Config.Unmarshal(&c)
	log.Debugf("Current configurations: \n%# v", pretty.Formatter(c))
}
