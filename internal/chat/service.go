package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/tenantrag-go/internal/rag"
)

// ConversationRecorder persists question/answer exchanges for the admin
// review surface. Recording is best-effort and never fails an answer.
type ConversationRecorder interface {
	RecordConversation(ctx context.Context, tenantID, question, answer string, citations []string) error
}

// Answer is the result of one question. Citations list the source documents
// the answer drew from, or the Error sentinel when generation failed.
type Answer struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// Service answers tenant questions over their indexed documents.
type Service struct {
	retriever rag.Retriever
	chatModel model.ToolCallingChatModel
	records   ConversationRecorder
	topK      int
	log       *slog.Logger
}

// NewService wires a chat service. Retriever and chat model are required;
// records may be nil to skip conversation logging, and topK <= 0 falls back
// to the retriever's default.
func NewService(retriever rag.Retriever, chatModel model.ToolCallingChatModel, records ConversationRecorder, topK int, log *slog.Logger) (*Service, error) {
	if retriever == nil {
		return nil, fmt.Errorf("chat: retriever is required")
	}
	if chatModel == nil {
		return nil, fmt.Errorf("chat: chat model is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		retriever: retriever,
		chatModel: chatModel,
		records:   records,
		topK:      topK,
		log:       log,
	}, nil
}

// Ask answers a tenant's question. It never returns an error: retrieval or
// generation failures degrade to an apologetic answer with the Error
// citation, and an empty retrieval degrades to the fixed refusal. Every
// outcome is recorded.
func (s *Service) Ask(ctx context.Context, tenantID, question string) Answer {
	question = strings.TrimSpace(question)
	if question == "" {
		return s.finish(ctx, tenantID, question, Answer{
			Answer:    RefusalAnswer,
			Citations: []string{},
		})
	}

	chunks, err := s.retriever.Retrieve(ctx, tenantID, question, s.topK)
	if err != nil {
		s.log.Error("chat: retrieval failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		return s.finish(ctx, tenantID, question, Answer{
			Answer:    "An error occurred while searching the tenant's documents. Please try again.",
			Citations: []string{ErrorCitation},
		})
	}

	contextText, citations := AssembleContext(chunks)
	if contextText == "" {
		s.log.Info("chat: no context retrieved",
			slog.String("tenant_id", tenantID))
		return s.finish(ctx, tenantID, question, Answer{
			Answer:    RefusalAnswer,
			Citations: []string{},
		})
	}

	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt(contextText, question)),
	}
	resp, err := s.chatModel.Generate(ctx, msgs)
	if err != nil {
		s.log.Error("chat: generation failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		return s.finish(ctx, tenantID, question, Answer{
			Answer:    "An error occurred while generating the answer. Please try again.",
			Citations: []string{ErrorCitation},
		})
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		answer = RefusalAnswer
		citations = []string{}
	}
	return s.finish(ctx, tenantID, question, Answer{
		Answer:    answer,
		Citations: citations,
	})
}

// finish records the exchange and returns it. Recording failures are logged
// and swallowed so the caller always gets the answer.
func (s *Service) finish(ctx context.Context, tenantID, question string, a Answer) Answer {
	if s.records != nil {
		if err := s.records.RecordConversation(ctx, tenantID, question, a.Answer, a.Citations); err != nil {
			s.log.Warn("chat: recording conversation failed",
				slog.String("tenant_id", tenantID),
				slog.String("error", err.Error()))
		}
	}
	return a
}
