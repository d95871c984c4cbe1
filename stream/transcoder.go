package stream

import (
	"fmt"
	"os/exec"
	"path"
	"strconv"

	config "github.com/MeloQi/EasyGoLib/utils"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Transcoder builds ready-to-start child process invocations. The exact
// command line is a collaborator concern; the supervisor only relies on the
// behavioral contract (a resilient recording container, a rolling self-pruning
// HLS window for proxies).
type Transcoder interface {
	ProxyCommand(inputURL, playlistPath string) *exec.Cmd
	RecordCommand(inputURL, outputPath string) *exec.Cmd
	RepairCommand(inputPath, outputPath string) *exec.Cmd
}

// FFmpegTranscoder builds ffmpeg invocations with ffmpeg-go and rotates each
// process's error output into its own log file.
type FFmpegTranscoder struct {
	Binary  string
	LogDir  string
	HLSTime int // segment duration in seconds
	HLSSize int // playlist window in segments
}

func NewFFmpegTranscoder() *FFmpegTranscoder {
	sec := config.Conf().Section("codec")
	return &FFmpegTranscoder{
		Binary:  sec.Key("ffmpeg_binary").MustString("ffmpeg"),
		LogDir:  sec.Key("ffmpeg_log_dir").MustString(config.CWD()),
		HLSTime: config.Conf().Section("hls").Key("segment_duration_second").MustInt(4),
		HLSSize: config.Conf().Section("hls").Key("window_size").MustInt(10),
	}
}

func (t *FFmpegTranscoder) compile(s *ffmpeg.Stream, logName string) *exec.Cmd {
	compiled := s.Compile()
	cmd := exec.Command(t.Binary, compiled.Args[1:]...)
	cmd.Stderr = &lumberjack.Logger{
		Filename:   path.Join(t.LogDir, fmt.Sprintf("ffmpeg-%s.log", logName)),
		MaxSize:    config.Conf().Section("codec").Key("ffmpeg_log_max_size").MustInt(100), // MB
		MaxBackups: config.Conf().Section("codec").Key("ffmpeg_log_max_backups").MustInt(10),
		MaxAge:     config.Conf().Section("codec").Key("ffmpeg_log_max_age").MustInt(30), // days
		Compress:   config.Conf().Section("codec").Key("ffmpeg_log_compress").MustBool(false),
	}
	return cmd
}

// ProxyCommand re-encodes the input into a rolling HLS playlist with stale
// segments pruned and keyframes aligned to the segment duration, so players
// can seek near the live edge.
func (t *FFmpegTranscoder) ProxyCommand(inputURL, playlistPath string) *exec.Cmd {
	// Keyframe interval: ~3s of frames at 30fps keeps every segment
	// independently decodable.
	gop := 96
	s := ffmpeg.Input(inputURL, ffmpeg.KwArgs{"fflags": "+genpts"}).
		Output(playlistPath, ffmpeg.KwArgs{
			"c:v": "libx264", "preset": "veryfast", "tune": "zerolatency",
			"profile:v": "main", "level": "4.1", "crf": "23",
			"c:a": "aac", "b:a": "192k", "ar": "48000", "strict": "experimental",
			"hls_time":      strconv.Itoa(t.HLSTime),
			"hls_list_size": strconv.Itoa(t.HLSSize),
			"hls_flags":     "delete_segments+program_date_time",
			"start_number":  "0",
			"g":             strconv.Itoa(gop),
			"keyint_min":    strconv.Itoa(gop),
			"sc_threshold":  "0",
			"f":             "hls",
		}).
		GlobalArgs("-hide_banner", "-nostdin", "-loglevel", "warning")
	return t.compile(s, "proxy-"+path.Base(path.Dir(playlistPath)))
}

// RecordCommand copies video and re-encodes audio to AAC into a fragmented
// MP4, so an abrupt transcoder death still leaves a repairable artifact.
func (t *FFmpegTranscoder) RecordCommand(inputURL, outputPath string) *exec.Cmd {
	s := ffmpeg.Input(inputURL, ffmpeg.KwArgs{"fflags": "+genpts"}).
		Output(outputPath, recordOutputArgs()).
		GlobalArgs("-hide_banner", "-nostdin", "-loglevel", "warning")
	return t.compile(s, "record")
}

// RepairCommand re-multiplexes an existing artifact with the same output
// contract as RecordCommand, rebuilding the container index.
func (t *FFmpegTranscoder) RepairCommand(inputPath, outputPath string) *exec.Cmd {
	s := ffmpeg.Input(inputPath).
		Output(outputPath, recordOutputArgs()).
		OverWriteOutput().
		GlobalArgs("-hide_banner", "-nostdin", "-loglevel", "warning")
	return t.compile(s, "repair")
}

func recordOutputArgs() ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"c:v": "copy",
		"c:a": "aac", "b:a": "192k", "ar": "48000", "strict": "experimental",
		"movflags":          "+faststart+frag_keyframe+empty_moov",
		"avoid_negative_ts": "make_zero",
		"map":               "0",
		"f":                 "mp4",
	}
}
