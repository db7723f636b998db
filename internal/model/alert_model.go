package model

import (
	"time"

	"github.com/google/uuid"
)

// Alert is the clinician-facing payload pushed over the websocket feed when a
// triage session escalates or finalizes.
type Alert struct {
	Id        uuid.UUID              `json:"id"`
	Code      string                 `json:"code"`
	SessionId string                 `json:"session_id"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
