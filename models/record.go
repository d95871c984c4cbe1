package models

import "time"

type Recording struct {
	Id        string     `gorm:"type:varchar(16);primary_key"`
	StreamId  string     `gorm:"type:varchar(16);index:idx_recording_stream"`
	Path      string     `gorm:"type:varchar(512)"`
	Fixed     bool
	StartTime time.Time  `gorm:"type:datetime"`
	EndTime   *time.Time `gorm:"type:datetime"`
}
