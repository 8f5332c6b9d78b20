package persistence

import (
	"database/sql"
	"time"
)

// Story - stories table, one row per generation request
// written by the entry layer on create and by the pipeline afterwards
type Story struct {
	ID         string
	OwnerID    string
	Topic      string
	Doubt      string
	Complexity string
	Status     string
	StoryText  sql.NullString
	AudioURL   sql.NullString
	Duration   sql.NullInt32
	Error      sql.NullString
	Created    time.Time
	Updated    time.Time
}
