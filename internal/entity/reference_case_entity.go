package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ReferenceCase is one anonymized dermatology case in the retrieval corpus.
type ReferenceCase struct {
	Id        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RecordId  string          `gorm:"uniqueIndex"`
	Diagnosis string
	IcdCode   string
	Embedding pgvector.Vector `gorm:"type:vector(768)"`
	Metadata  datatypes.JSON
	CreatedAt time.Time
}
