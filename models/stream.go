package models

import "github.com/StreamKeeper/StreamKeeper/stream"

type Stream struct {
	ID         string `gorm:"type:varchar(16);primary_key"`
	URL        string `gorm:"type:varchar(512);uniqueIndex"`
	Kind       string `gorm:"type:varchar(16)"`
	ExternalId string `gorm:"type:varchar(64)"`
	Title      string `gorm:"type:varchar(256)"`
	Status     stream.Status
}
