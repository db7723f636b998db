package dto

import (
	"time"
)

type CreateSessionRequest struct {
	Language string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}

type CreateSessionResponse struct {
	Id       string `json:"id"`
	Stage    string `json:"stage"`
	Language string `json:"language"`
}

type UtteranceRequest struct {
	Text     string `json:"text" validate:"required,max=4096"`
	Language string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}

type UtteranceResponse struct {
	SessionId    string `json:"session_id"`
	ResponseText string `json:"response_text"`
	Stage        string `json:"stage"`
	Escalated    bool   `json:"escalated"`
	Degraded     bool   `json:"degraded,omitempty"`
}

type ConsentRequest struct {
	Granted *bool `json:"granted" validate:"required"`
}

type SubmitImageRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required,base64"`
}

type StageResponse struct {
	SessionId    string `json:"session_id"`
	Stage        string `json:"stage"`
	Consent      string `json:"consent"`
	ResponseText string `json:"response_text,omitempty"`
}

type SessionSnapshotResponse struct {
	Id               string    `json:"id"`
	Stage            string    `json:"stage"`
	Language         string    `json:"language"`
	Consent          string    `json:"consent"`
	TurnCount        int       `json:"turn_count"`
	PatientTurnCount int       `json:"patient_turn_count"`
	Escalated        bool      `json:"escalated"`
	EscalationReason string    `json:"escalation_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CaseHitDTO struct {
	RecordId  string  `json:"record_id"`
	Score     float32 `json:"score"`
	Diagnosis string  `json:"diagnosis,omitempty"`
	IcdCode   string  `json:"icd_code,omitempty"`
}

type TranscriptTurnDTO struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

type CaseRecordResponse struct {
	CaseId           string              `json:"case_id"`
	SessionId        string              `json:"session_id"`
	Language         string              `json:"language"`
	Transcript       []TranscriptTurnDTO `json:"transcript"`
	Hits             []CaseHitDTO        `json:"hits"`
	Degraded         bool                `json:"degraded"`
	NoteText         string              `json:"note_text"`
	Explanation      string              `json:"explanation"`
	Outcome          string              `json:"outcome"`
	EscalationReason string              `json:"escalation_reason,omitempty"`
	Disclaimer       string              `json:"disclaimer"`
	FinalizedAt      time.Time           `json:"finalized_at"`
}

type CaseSummaryResponse struct {
	CaseId           string    `json:"case_id"`
	SessionId        string    `json:"session_id"`
	Language         string    `json:"language"`
	Outcome          string    `json:"outcome"`
	EscalationReason string    `json:"escalation_reason,omitempty"`
	Degraded         bool      `json:"degraded"`
	FinalizedAt      time.Time `json:"finalized_at"`
}

type EscalatedCasesResponse struct {
	Items  []CaseSummaryResponse `json:"items"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// PublishEmbedCaseMessage is the async task payload queued after finalize so
// the completed case note gets embedded and added to the retrieval corpus.
type PublishEmbedCaseMessage struct {
	CaseId    string `json:"case_id"`
	SessionId string `json:"session_id"`
	NoteText  string `json:"note_text"`
	Diagnosis string `json:"diagnosis,omitempty"`
	IcdCode   string `json:"icd_code,omitempty"`
}
