package models

import (
	"strings"
	"time"

	"github.com/MeloQi/EasyGoLib/db"
	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/StreamKeeper/StreamKeeper/stream"
)

func Init() (err error) {
	err = db.Init(&db.DBConfig{
		Type:     getDBType(utils.Conf().Section("db").Key("db_type").MustString("sqlite")),
		File:     utils.Conf().Section("db").Key("db_datafile").MustString(""),
		URI:      utils.Conf().Section("db").Key("db_uri").MustString(""),
		LogLevel: utils.Conf().Section("db").Key("db_log_level").MustString("silent"),
	})
	if err != nil {
		return
	}
	db.SQL.AutoMigrate(Stream{}, Recording{})
	closeDanglingRecordings()
	return
}

// closeDanglingRecordings settles rows left open by a previous crash. Any
// recording with no end time gets one now, and streams still marked as
// recording fall back to errored so a later re-adoption starts clean.
func closeDanglingRecordings() {
	now := time.Now()
	db.SQL.Model(Recording{}).Where("end_time IS NULL").Updates(map[string]interface{}{
		"end_time": &now,
		"fixed":    false,
	})
	db.SQL.Model(Stream{}).Where("status = ?", stream.Recording).
		Update("status", stream.Errored)
}

func getDBType(t string) db.DBType {
	st := strings.ToLower(t)
	switch st {
	case "mysql":
		return db.MySQL
	case "postgres":
		return db.Postgres
	default:
		return db.SQLite
	}

}

func Close() {
	db.Close()
}
