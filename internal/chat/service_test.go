package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/tenantrag-go/internal/rag"
)

type fakeRetriever struct {
	chunks []rag.Chunk
	err    error
}

func (r *fakeRetriever) Retrieve(ctx context.Context, tenantID, query string, topK int) ([]rag.Chunk, error) {
	return r.chunks, r.err
}

type fakeModel struct {
	reply string
	err   error
	msgs  []*schema.Message
}

func (m *fakeModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.msgs = in
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *fakeModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type recordedLog struct {
	tenantID  string
	question  string
	answer    string
	citations []string
}

type fakeRecorder struct {
	logs []recordedLog
	err  error
}

func (r *fakeRecorder) RecordConversation(ctx context.Context, tenantID, question, answer string, citations []string) error {
	r.logs = append(r.logs, recordedLog{tenantID, question, answer, citations})
	return r.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, ret rag.Retriever, m model.ToolCallingChatModel, rec ConversationRecorder) *Service {
	t.Helper()
	s, err := NewService(ret, m, rec, 0, quietLogger())
	require.NoError(t, err)
	return s
}

func TestAskAnswersFromContext(t *testing.T) {
	t.Parallel()

	ret := &fakeRetriever{chunks: []rag.Chunk{
		{Source: "handbook.pdf", Page: 4, Text: "Vacation is 25 days per year."},
	}}
	m := &fakeModel{reply: "Employees get 25 vacation days per year."}
	rec := &fakeRecorder{}

	a := newTestService(t, ret, m, rec).Ask(context.Background(), "tenantA", "How many vacation days?")

	assert.Equal(t, "Employees get 25 vacation days per year.", a.Answer)
	assert.Equal(t, []string{"handbook.pdf (Page 4)"}, a.Citations)

	require.Len(t, m.msgs, 2)
	assert.Equal(t, schema.System, m.msgs[0].Role)
	assert.Contains(t, m.msgs[1].Content, "Vacation is 25 days per year.")
	assert.Contains(t, m.msgs[1].Content, "Question: How many vacation days?")

	require.Len(t, rec.logs, 1)
	assert.Equal(t, "tenantA", rec.logs[0].tenantID)
}

func TestAskRefusesOnEmptyRetrieval(t *testing.T) {
	t.Parallel()

	m := &fakeModel{reply: "should never be called"}
	rec := &fakeRecorder{}
	a := newTestService(t, &fakeRetriever{}, m, rec).Ask(context.Background(), "tenantA", "anything?")

	assert.Equal(t, RefusalAnswer, a.Answer)
	assert.Empty(t, a.Citations)
	assert.Nil(t, m.msgs, "model must not be called without context")

	require.Len(t, rec.logs, 1, "refusals are still recorded")
	assert.Equal(t, RefusalAnswer, rec.logs[0].answer)
}

func TestAskDegradesOnRetrievalError(t *testing.T) {
	t.Parallel()

	ret := &fakeRetriever{err: errors.New("qdrant unreachable")}
	a := newTestService(t, ret, &fakeModel{}, &fakeRecorder{}).Ask(context.Background(), "tenantA", "q")

	assert.Equal(t, []string{ErrorCitation}, a.Citations)
	assert.NotEmpty(t, a.Answer)
	assert.NotEqual(t, RefusalAnswer, a.Answer)
}

func TestAskDegradesOnGenerationError(t *testing.T) {
	t.Parallel()

	ret := &fakeRetriever{chunks: []rag.Chunk{{Source: "a.txt", Text: "context"}}}
	m := &fakeModel{err: errors.New("model overloaded")}
	rec := &fakeRecorder{}

	a := newTestService(t, ret, m, rec).Ask(context.Background(), "tenantA", "q")

	assert.Equal(t, []string{ErrorCitation}, a.Citations)
	require.Len(t, rec.logs, 1, "failures are still recorded")
	assert.Equal(t, []string{ErrorCitation}, rec.logs[0].citations)
}

func TestAskRefusesOnBlankQuestion(t *testing.T) {
	t.Parallel()

	ret := &fakeRetriever{chunks: []rag.Chunk{{Source: "a.txt", Text: "context"}}}
	m := &fakeModel{reply: "should never be called"}
	a := newTestService(t, ret, m, &fakeRecorder{}).Ask(context.Background(), "tenantA", "   ")

	assert.Equal(t, RefusalAnswer, a.Answer)
	assert.Nil(t, m.msgs)
}

func TestAskSurvivesRecorderFailure(t *testing.T) {
	t.Parallel()

	ret := &fakeRetriever{chunks: []rag.Chunk{{Source: "a.txt", Text: "context"}}}
	rec := &fakeRecorder{err: errors.New("db locked")}
	a := newTestService(t, ret, &fakeModel{reply: "fine"}, rec).Ask(context.Background(), "tenantA", "q")

	assert.Equal(t, "fine", a.Answer)
}
