package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/MeloQi/EasyGoLib/db"
	"github.com/StreamKeeper/StreamKeeper/stream"
)

func initTestDB(t *testing.T) {
	t.Helper()
	err := db.Init(&db.DBConfig{
		Type:     db.SQLite,
		File:     filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	db.SQL.AutoMigrate(Stream{}, Recording{})
	t.Cleanup(db.Close)
}

func TestStoreStreamRoundTrip(t *testing.T) {
	initTestDB(t)
	s := NewStore()
	st := stream.Stream{
		ID: "abc123",
		Source: stream.Source{
			URL:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			Kind:       stream.KindYouTube,
			ExternalId: "dQw4w9WgXcQ",
			Title:      "Test Stream",
		},
		Status: stream.Active,
	}
	if err := s.SaveStream(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	st.Status = stream.Recording
	if err := s.SaveStream(st); err != nil {
		t.Fatalf("resave: %v", err)
	}
	rows, err := AllStreams()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Status != stream.Recording {
		t.Errorf("status = %v, want %v", rows[0].Status, stream.Recording)
	}
	if err := s.UpdateStreamStatus("abc123", stream.Active); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteStream("abc123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, _ = AllStreams()
	if len(rows) != 0 {
		t.Errorf("got %d rows after delete, want 0", len(rows))
	}
}

func TestStoreRecordingLifecycle(t *testing.T) {
	initTestDB(t)
	s := NewStore()
	start := time.Now()
	if err := s.CreateRecording("rec1", "abc123", "/tmp/out.mp4", start); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.FinishRecording("rec1", true); err != nil {
		t.Fatalf("finish: %v", err)
	}
	rows, err := RecordingsOf("abc123")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d recordings, want 1", len(rows))
	}
	if rows[0].EndTime == nil || !rows[0].Fixed {
		t.Errorf("recording not closed out: %+v", rows[0])
	}
}

func TestCloseDanglingRecordings(t *testing.T) {
	initTestDB(t)
	db.SQL.Create(&Recording{Id: "rec1", StreamId: "s1", Path: "/tmp/a.mp4", StartTime: time.Now()})
	db.SQL.Create(&Stream{ID: "s1", URL: "https://example.com/live", Status: stream.Recording})
	closeDanglingRecordings()
	var rec Recording
	db.SQL.First(&rec, "id = ?", "rec1")
	if rec.EndTime == nil {
		t.Error("dangling recording still open")
	}
	var row Stream
	db.SQL.First(&row, "id = ?", "s1")
	if row.Status != stream.Errored {
		t.Errorf("stream status = %v, want %v", row.Status, stream.Errored)
	}
}
