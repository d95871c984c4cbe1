package stream

import (
	"context"
	"errors"
	"testing"
)

type fakeProber struct {
	live     bool
	liveErr  error
	title    string
	titleErr error
	url      string
	urlErr   error
	codec    string
	codecErr error
}

func (f *fakeProber) IsLive(ctx context.Context, url string) (bool, error) {
	return f.live, f.liveErr
}

func (f *fakeProber) Title(ctx context.Context, url string) (string, error) {
	return f.title, f.titleErr
}

func (f *fakeProber) PlayableURL(ctx context.Context, url string) (string, error) {
	return f.url, f.urlErr
}

func (f *fakeProber) VideoCodec(ctx context.Context, url string) (string, error) {
	return f.codec, f.codecErr
}

func TestValidateYouTube(t *testing.T) {
	v := NewValidator(&fakeProber{live: true, title: "My Show"})
	src := Detect("https://www.youtube.com/watch?v=abc123xyz00")
	if !v.Validate(context.Background(), &src) {
		t.Fatal("live youtube stream rejected")
	}
	if src.Title != "My Show" {
		t.Errorf("Title = %q, want My Show", src.Title)
	}

	v = NewValidator(&fakeProber{live: false})
	src = Detect("https://www.youtube.com/watch?v=abc123xyz00")
	if v.Validate(context.Background(), &src) {
		t.Error("offline youtube stream accepted")
	}

	v = NewValidator(&fakeProber{liveErr: errors.New("probe timed out")})
	src = Detect("https://www.youtube.com/watch?v=abc123xyz00")
	if v.Validate(context.Background(), &src) {
		t.Error("probe failure treated as live")
	}
}

func TestValidateTwitch(t *testing.T) {
	v := NewValidator(&fakeProber{url: "https://edge.example/playlist.m3u8"})
	src := Detect("https://www.twitch.tv/somechannel")
	if !v.Validate(context.Background(), &src) {
		t.Fatal("resolvable twitch channel rejected")
	}
	if src.Title != "Twitch Stream: somechannel" {
		t.Errorf("Title = %q", src.Title)
	}

	v = NewValidator(&fakeProber{urlErr: errors.New("no playable url")})
	src = Detect("https://www.twitch.tv/somechannel")
	if v.Validate(context.Background(), &src) {
		t.Error("unresolvable twitch channel accepted")
	}
}

func TestValidateFacebookAssumedLive(t *testing.T) {
	// Facebook cannot be probed; a supplied URL passes with a placeholder
	// title even when every probe would fail.
	v := NewValidator(&fakeProber{liveErr: errors.New("nope"), urlErr: errors.New("nope")})
	src := Detect("https://www.facebook.com/somepage/videos/123456789")
	if !v.Validate(context.Background(), &src) {
		t.Fatal("facebook stream rejected")
	}
	if src.Title != "Facebook Stream (123456789)" {
		t.Errorf("Title = %q", src.Title)
	}
}

func TestValidateOther(t *testing.T) {
	v := NewValidator(&fakeProber{codec: "h264"})
	src := Detect("https://example.com/live/stream.m3u8")
	if !v.Validate(context.Background(), &src) {
		t.Fatal("direct stream with video codec rejected")
	}
	if src.Title != "Livestream (other)" {
		t.Errorf("Title = %q", src.Title)
	}

	v = NewValidator(&fakeProber{codec: ""})
	src = Detect("https://example.com/live/stream.m3u8")
	if v.Validate(context.Background(), &src) {
		t.Error("stream without video codec accepted")
	}
}
