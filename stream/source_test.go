package stream

import (
	"strings"
	"testing"
)

func TestDetectYouTube(t *testing.T) {
	for _, url := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=10s",
		"https://www.youtube.com/live/dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
	} {
		src := Detect(url)
		if src.Kind != KindYouTube {
			t.Errorf("Detect(%q).Kind = %v, want youtube", url, src.Kind)
		}
		if src.ExternalId != "dQw4w9WgXcQ" {
			t.Errorf("Detect(%q).ExternalId = %q, want dQw4w9WgXcQ", url, src.ExternalId)
		}
		if !strings.Contains(src.EmbedURL, "youtube.com/embed/dQw4w9WgXcQ") {
			t.Errorf("Detect(%q).EmbedURL = %q", url, src.EmbedURL)
		}
	}
}

func TestDetectFacebook(t *testing.T) {
	src := Detect("https://www.facebook.com/somepage/videos/123456789")
	if src.Kind != KindFacebook {
		t.Fatalf("Kind = %v, want facebook", src.Kind)
	}
	if src.ExternalId != "123456789" {
		t.Errorf("ExternalId = %q, want 123456789", src.ExternalId)
	}
	if src.EmbedURL != src.URL {
		t.Errorf("EmbedURL = %q, want original url", src.EmbedURL)
	}

	src = Detect("https://www.facebook.com/watch?v=987654321")
	if src.Kind != KindFacebook || src.ExternalId != "987654321" {
		t.Errorf("watch form: kind %v id %q", src.Kind, src.ExternalId)
	}
}

func TestDetectTwitch(t *testing.T) {
	src := Detect("https://www.twitch.tv/somechannel")
	if src.Kind != KindTwitch {
		t.Fatalf("Kind = %v, want twitch", src.Kind)
	}
	if src.ExternalId != "somechannel" {
		t.Errorf("ExternalId = %q, want somechannel", src.ExternalId)
	}
	if !strings.Contains(src.EmbedURL, "channel=somechannel") {
		t.Errorf("EmbedURL = %q", src.EmbedURL)
	}
	// A path below the channel is not a channel page.
	if got := Detect("https://www.twitch.tv/somechannel/clips"); got.Kind != KindOther {
		t.Errorf("clip url classified as %v, want other", got.Kind)
	}
}

func TestDetectOther(t *testing.T) {
	src := Detect("https://example.com/live/stream.m3u8")
	if src.Kind != KindOther {
		t.Fatalf("Kind = %v, want other", src.Kind)
	}
	if src.ExternalId != "" {
		t.Errorf("ExternalId = %q, want empty", src.ExternalId)
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{PendingValidation, Active, true},
		{Active, Recording, true},
		{Active, Errored, true},
		{Recording, Active, true},
		{Recording, Errored, true},
		{Errored, Active, true},
		{PendingValidation, Recording, false},
		{Errored, Recording, false},
		{Recording, PendingValidation, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Errorf("CanTransition(%v -> %v) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}
