package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CaseRecord struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId   string    `gorm:"type:uuid;index"`
	Language    string
	Transcript  datatypes.JSON
	Hits        datatypes.JSON
	Degraded    bool
	NoteText    string
	Explanation string
	Outcome     string `gorm:"index"`
	Reason      string
	Disclaimer  string
	FinalizedAt time.Time
	CreatedAt   time.Time
}
