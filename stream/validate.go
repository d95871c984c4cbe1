package stream

import (
	"context"
	"fmt"

	"github.com/StreamKeeper/StreamKeeper/log"
)

// Validator confirms a classified source is currently live. All probe
// failures are reported as "not live"; no error escapes this boundary.
type Validator struct {
	prober Prober
}

func NewValidator(p Prober) *Validator {
	return &Validator{prober: p}
}

// Validate checks liveness for src and fills in its title on success.
func (v *Validator) Validate(ctx context.Context, src *Source) bool {
	log.Info(fmt.Sprintf("validating stream %s (kind %s)", src.URL, src.Kind))
	switch src.Kind {
	case KindYouTube:
		live, err := v.prober.IsLive(ctx, src.URL)
		if err != nil {
			log.Warn("youtube liveness check failed: ", err)
			return false
		}
		if !live {
			log.Warn("youtube stream is not live: ", src.URL)
			return false
		}
		if title, err := v.prober.Title(ctx, src.URL); err == nil && title != "" {
			src.Title = title
		} else {
			log.Warn("could not extract youtube title: ", err)
		}
		return true

	case KindTwitch:
		// Getting a playable URL out of the channel means it is live
		// enough to try.
		u, err := v.prober.PlayableURL(ctx, src.URL)
		if err != nil || u == "" {
			log.Warn("failed to resolve twitch media url: ", err)
			return false
		}
		src.Title = fmt.Sprintf("Twitch Stream: %s", src.ExternalId)
		return true

	case KindFacebook:
		// Facebook liveness cannot be probed reliably; a supplied URL is
		// assumed live. Known approximation, not a guarantee.
		log.Warn("facebook stream validation is unreliable, assuming active: ", src.URL)
		id := src.ExternalId
		if id == "" {
			id = "Unknown ID"
		}
		src.Title = fmt.Sprintf("Facebook Stream (%s)", id)
		return true
	}

	codec, err := v.prober.VideoCodec(ctx, src.URL)
	if err != nil || codec == "" {
		log.Warn("stream probe found no video stream: ", err)
		return false
	}
	log.Info("stream probe found video stream, codec: ", codec)
	src.Title = fmt.Sprintf("Livestream (%s)", src.Kind)
	return true
}
