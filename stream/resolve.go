package stream

import "context"

// Resolver turns a source URL into a directly playable media URL that the
// transcoder can consume.
type Resolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// YtDlpResolver resolves through yt-dlp, letting it pick the format.
type YtDlpResolver struct {
	prober *CommandProber
}

func NewYtDlpResolver(p *CommandProber) *YtDlpResolver {
	return &YtDlpResolver{prober: p}
}

func (r *YtDlpResolver) Resolve(ctx context.Context, url string) (string, error) {
	return r.prober.PlayableURL(ctx, url)
}
