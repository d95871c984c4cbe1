package stream

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Prober is the external collaborator that answers liveness questions about
// a source. The concrete implementation shells out; tests supply fakes.
type Prober interface {
	// IsLive reports whether the platform considers the stream live.
	IsLive(ctx context.Context, url string) (bool, error)
	// Title returns the stream title.
	Title(ctx context.Context, url string) (string, error)
	// PlayableURL resolves a directly playable media URL.
	PlayableURL(ctx context.Context, url string) (string, error)
	// VideoCodec probes the URL for a decodable video stream and returns
	// its codec name.
	VideoCodec(ctx context.Context, url string) (string, error)
}

// CommandProber probes with yt-dlp and ffprobe subprocesses, each bounded
// by Timeout.
type CommandProber struct {
	YtDlp   string
	FFprobe string
	Timeout time.Duration
}

func NewCommandProber(ytdlp, ffprobe string, timeout time.Duration) *CommandProber {
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CommandProber{YtDlp: ytdlp, FFprobe: ffprobe, Timeout: timeout}
}

func (p *CommandProber) run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (p *CommandProber) IsLive(ctx context.Context, url string) (bool, error) {
	out, err := p.run(ctx, p.YtDlp, "--skip-download", "--no-warnings", "--print", "is_live", url)
	if err != nil {
		return false, err
	}
	return out == "True", nil
}

func (p *CommandProber) Title(ctx context.Context, url string) (string, error) {
	return p.run(ctx, p.YtDlp, "--skip-download", "--no-warnings", "--print", "title", url)
}

func (p *CommandProber) PlayableURL(ctx context.Context, url string) (string, error) {
	out, err := p.run(ctx, p.YtDlp, "-g", "--no-warnings", url)
	if err != nil {
		return "", err
	}
	// yt-dlp may print one URL per selected format; the first is enough.
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	return out, nil
}

func (p *CommandProber) VideoCodec(ctx context.Context, url string) (string, error) {
	return p.run(ctx, p.FFprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name",
		"-of", "default=nw=1:nk=1",
		url)
}
