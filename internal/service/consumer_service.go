package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"derm-triage-be/internal/dto"
	"derm-triage-be/internal/entity"
	"derm-triage-be/internal/repository/contract"
	"derm-triage-be/pkg/embedding"
	"derm-triage-be/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService embeds finalized case notes in the background and adds them
// to the retrieval corpus, so future sessions can match against past cases.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	index             *vectorindex.Index
	embeddingProvider embedding.Provider
	referenceRepo     contract.ReferenceCaseRepository // nil when no DB is configured
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	index *vectorindex.Index,
	embeddingProvider embedding.Provider,
	referenceRepo contract.ReferenceCaseRepository,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		index:             index,
		embeddingProvider: embeddingProvider,
		referenceRepo:     referenceRepo,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedCaseMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Indexing case note for CaseId: %s", payload.CaseId)

	vector, err := cs.embeddingProvider.EmbedText(ctx, payload.NoteText)
	if err != nil {
		log.Printf("[ERROR] Failed to embed case note %s: %v", payload.CaseId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	metadata := map[string]interface{}{
		"source":     "finalized_case",
		"session_id": payload.SessionId,
	}
	if payload.Diagnosis != "" {
		metadata["diagnosis"] = payload.Diagnosis
	}
	if payload.IcdCode != "" {
		metadata["icd_code"] = payload.IcdCode
	}

	if err := cs.index.Add([]vectorindex.Record{{
		RecordID: payload.CaseId,
		Vector:   vector,
		Metadata: metadata,
	}}); err != nil {
		log.Printf("[ERROR] Failed to index case note %s: %v", payload.CaseId, err)
		msg.Ack() // Dimension mismatch will not fix itself on retry
		return
	}

	if cs.referenceRepo != nil {
		metadataJson, _ := json.Marshal(metadata)
		ref := &entity.ReferenceCase{
			Id:        uuid.New(),
			RecordId:  payload.CaseId,
			Diagnosis: payload.Diagnosis,
			IcdCode:   payload.IcdCode,
			Embedding: pgvector.NewVector(vector),
			Metadata:  metadataJson,
			CreatedAt: time.Now(),
		}
		if err := cs.referenceRepo.Create(ctx, ref); err != nil {
			log.Printf("[ERROR] Failed to persist reference case %s: %v", payload.CaseId, err)
			// Index entry survives; persistence catches up on the next run.
		}
	}

	msg.Ack()
}
