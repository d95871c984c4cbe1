package models

import (
	"errors"
	"time"

	"github.com/MeloQi/EasyGoLib/db"
	"github.com/StreamKeeper/StreamKeeper/stream"
	"gorm.io/gorm"
)

// Store persists supervised streams and their recordings through the
// shared gorm handle.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) SaveStream(st stream.Stream) error {
	row := Stream{
		ID:         st.ID,
		URL:        st.Source.URL,
		Kind:       st.Source.Kind.String(),
		ExternalId: st.Source.ExternalId,
		Title:      st.Source.Title,
		Status:     st.Status,
	}
	var existing Stream
	err := db.SQL.Where("id = ?", st.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.SQL.Create(&row).Error
	}
	if err != nil {
		return err
	}
	return db.SQL.Model(Stream{}).Where("id = ?", st.ID).Updates(map[string]interface{}{
		"url":         row.URL,
		"kind":        row.Kind,
		"external_id": row.ExternalId,
		"title":       row.Title,
		"status":      row.Status,
	}).Error
}

func (s *Store) UpdateStreamStatus(id string, status stream.Status) error {
	return db.SQL.Model(Stream{}).Where("id = ?", id).Update("status", status).Error
}

func (s *Store) DeleteStream(id string) error {
	return db.SQL.Where("id = ?", id).Delete(Stream{}).Error
}

func (s *Store) CreateRecording(id, streamID, path string, start time.Time) error {
	return db.SQL.Create(&Recording{
		Id:        id,
		StreamId:  streamID,
		Path:      path,
		StartTime: start,
	}).Error
}

func (s *Store) FinishRecording(id string, fixed bool) error {
	now := time.Now()
	return db.SQL.Model(Recording{}).Where("id = ?", id).Updates(map[string]interface{}{
		"end_time": &now,
		"fixed":    fixed,
	}).Error
}

// AllStreams returns every persisted stream, for re-adoption at startup.
func AllStreams() (rows []Stream, err error) {
	err = db.SQL.Find(&rows).Error
	return
}

// RecordingsOf lists the finished recordings of one stream, newest first.
func RecordingsOf(streamID string) (rows []Recording, err error) {
	err = db.SQL.Where("stream_id = ?", streamID).Order("start_time desc").Find(&rows).Error
	return
}
