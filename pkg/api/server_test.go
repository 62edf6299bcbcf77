package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent/orchestrator"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/config"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/conversation"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/metrics"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/tools"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/vector"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type scriptedStrategy struct {
	events []agent.StrategyEvent
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) ExecuteIteration(ctx context.Context, messages []models.Message, defs []llm.ToolSchema, ic agent.IterationContext) (<-chan agent.StrategyEvent, error) {
	ch := make(chan agent.StrategyEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type noopProvider struct{}

func (noopProvider) Chat(ctx context.Context, m []models.Message, t []llm.ToolSchema, cfg llm.RequestConfig) (*llm.ProviderMessage, error) {
	return nil, errors.New("not used")
}

func (noopProvider) ChatStream(ctx context.Context, m []models.Message, t []llm.ToolSchema, cfg llm.RequestConfig) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	close(ch)
	return ch, nil
}

func (noopProvider) Info() llm.ProviderInfo { return llm.ProviderInfo{Name: "noop"} }

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}

type stubVectorStore struct {
	healthErr error
}

func (s *stubVectorStore) Search(ctx context.Context, v []float32, limit int) ([]vector.SearchResult, error) {
	return nil, nil
}

func (s *stubVectorStore) Health(ctx context.Context) error { return s.healthErr }

type testServer struct {
	router  *gin.Engine
	manager *conversation.Manager
}

func newTestServer(t *testing.T, strategy agent.Strategy, vectors *stubVectorStore) *testServer {
	t.Helper()

	manager := conversation.NewManager(conversation.NewMemoryStore(), 20)
	rag := tools.NewRAGTool(stubEmbedder{}, vectors)
	registry := tools.NewRegistry(rag, tools.NewFinalizeTool())

	loopCfg := config.LoopConfig{
		MaxIterations:        5,
		ShowReasoning:        true,
		ShowReasoningTraces:  true,
		TurnTimeout:          5 * time.Second,
		WorkingMessagesLimit: 200,
	}
	orch := orchestrator.New(manager, registry, rag, strategy, noopProvider{}, loopCfg,
		config.FinalizerModeDirect, metrics.New(prometheus.NewRegistry()))

	srv := NewServer(orch, manager, registry, vectors, ":0")
	return &testServer{router: srv.Router(), manager: manager}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) createConversation(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/chat/conversations", `{"callerId":"a@b"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	return conv.ConversationID
}

func finalAnswerStrategy(answer string) *scriptedStrategy {
	return &scriptedStrategy{events: []agent.StrategyEvent{
		agent.FinalResponse{Content: answer, TokensUsed: 5},
		agent.IterationComplete{TokensUsed: 5, ShouldContinue: false},
	}}
}

func TestCreateConversation(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{})

	w := ts.do(t, http.MethodPost, "/api/v1/chat/conversations",
		`{"callerId":"a@b","initialMessage":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var conv models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.NotEmpty(t, conv.ConversationID)
	assert.Equal(t, "a@b", conv.CallerID)
	assert.Equal(t, 1, conv.MessageCount)
}

func TestCreateConversationRequiresCaller(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{})

	w := ts.do(t, http.MethodPost, "/api/v1/chat/conversations", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
	assert.Equal(t, "/api/v1/chat/conversations", resp.Path)
}

func TestGetConversation(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{})
	id := ts.createConversation(t)

	w := ts.do(t, http.MethodGet, "/api/v1/chat/conversations/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	var detail ConversationDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, id, detail.Conversation.ConversationID)

	w = ts.do(t, http.MethodGet, "/api/v1/chat/conversations/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListConversations(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{})
	ts.createConversation(t)
	ts.createConversation(t)

	w := ts.do(t, http.MethodGet, "/api/v1/chat/conversations?callerId=a@b", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
		Count         int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	// limit is clamped, not rejected.
	w = ts.do(t, http.MethodGet, "/api/v1/chat/conversations?callerId=a@b&limit=1000", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/chat/conversations?callerId=a@b&limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/chat/conversations", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamMessage(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("The answer is 4."), &stubVectorStore{})
	id := ts.createConversation(t)

	w := ts.do(t, http.MethodPost, "/api/v1/chat/conversations/"+id+"/messages/stream",
		`{"message":"What is 2+2?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	assert.Contains(t, body, "event:StatusUpdate")
	assert.Contains(t, body, "event:ResponseChunk")
	assert.Contains(t, body, `"isFinalAnswer":true`)
	assert.Contains(t, body, "The answer is 4.")

	// The stream ends with the terminal event.
	idx := strings.LastIndex(body, "event:")
	assert.True(t, strings.HasPrefix(body[idx:], "event:Completed"))
}

func TestStreamMessageValidation(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{})
	id := ts.createConversation(t)

	w := ts.do(t, http.MethodPost, "/api/v1/chat/conversations/"+id+"/messages/stream",
		`{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/chat/conversations/missing/messages/stream",
		`{"message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamMessageOnArchivedConversation(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{})
	id := ts.createConversation(t)

	w := ts.do(t, http.MethodDelete, "/api/v1/chat/conversations/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/chat/conversations/"+id+"/messages/stream",
		`{"message":"hi"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSendMessageSync(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("sync answer"), &stubVectorStore{})
	id := ts.createConversation(t)

	w := ts.do(t, http.MethodPost, "/api/v1/chat/conversations/"+id+"/messages",
		`{"message":"question"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res orchestrator.SyncResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "sync answer", res.Content)
	assert.Equal(t, 1, res.IterationsUsed)
	assert.Equal(t, id, res.ConversationID)
}

func TestListTools(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{})

	w := ts.do(t, http.MethodGet, "/api/v1/agent/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tools []llm.ToolSchema `json:"tools"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, tools.RAGToolName, resp.Tools[0].Name)
	assert.Equal(t, tools.FinalizeToolName, resp.Tools[1].Name)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{})
	w := ts.do(t, http.MethodGet, "/api/v1/agent/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestHealthReportsVectorStoreFailure(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{healthErr: errors.New("qdrant unreachable")})
	w := ts.do(t, http.MethodGet, "/api/v1/agent/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "qdrant unreachable")
}

func TestPing(t *testing.T) {
	ts := newTestServer(t, finalAnswerStrategy("ok"), &stubVectorStore{})
	w := ts.do(t, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
