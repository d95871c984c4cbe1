package stream

import (
	"fmt"
	"os"
	"regexp"
)

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([^&?/]+)`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/live/([^?/]+)`),
	regexp.MustCompile(`(?:https?://)?youtu\.be/([^?/]+)`),
}

var facebookPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.)?facebook\.com/(?:[^/]+)/videos/(\d+)`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?facebook\.com/watch/?(?:\?v=(\d+)|live/?\?v=(\d+))`),
}

var twitchPattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?twitch\.tv/([a-zA-Z0-9_]+)$`)

// Detect classifies a raw URL into a platform kind and extracts the stable
// identifier the platform uses. Platforms are tried in a fixed priority order
// and the first matching pattern wins; anything unrecognized is KindOther.
// Detect never fails and performs no I/O.
func Detect(url string) Source {
	for _, p := range youtubePatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return Source{
				URL:        url,
				Kind:       KindYouTube,
				ExternalId: m[1],
				EmbedURL:   fmt.Sprintf("https://www.youtube.com/embed/%s?autoplay=1", m[1]),
			}
		}
	}
	for _, p := range facebookPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			id := ""
			for _, g := range m[1:] {
				if g != "" {
					id = g
					break
				}
			}
			return Source{URL: url, Kind: KindFacebook, ExternalId: id, EmbedURL: url}
		}
	}
	if m := twitchPattern.FindStringSubmatch(url); m != nil {
		parent := os.Getenv("PLAYER_PARENT_DOMAIN")
		if parent == "" {
			parent = "localhost"
		}
		return Source{
			URL:        url,
			Kind:       KindTwitch,
			ExternalId: m[1],
			EmbedURL:   fmt.Sprintf("https://player.twitch.tv/?channel=%s&parent=%s", m[1], parent),
		}
	}
	return Source{URL: url, Kind: KindOther}
}
