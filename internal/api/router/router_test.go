package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scout-go/internal/agent"
	"talent-scout-go/internal/api/handler"
	"talent-scout-go/internal/metrics"
	"talent-scout-go/internal/parser"
	"talent-scout-go/internal/session"
	"talent-scout-go/internal/types"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(_ context.Context, r io.Reader, _ string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return f.text, f.err
}

type countingSaver struct{ calls int }

func (s *countingSaver) Save(_ context.Context, _ types.CandidateProfile, _ []*schema.Message) (string, error) {
	s.calls++
	return "ts_aaaaaaaaaaaa", nil
}

type testServer struct {
	h     *server.Hertz
	saver *countingSaver
}

func newTestServer(t *testing.T, opts Options, extractor *fakeExtractor) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	saver := &countingSaver{}

	components := session.Components{
		Completer: agent.NewChatCompleter(agent.NewMockChatClient("Nice to meet you, Jane! What's your email?", nil)),
		Saver:     saver,
		Options:   []session.Option{session.WithRecorder(recorder)},
	}
	registry := session.NewRegistry(components.Factory(), time.Hour)

	var textExtractor parser.TextExtractor
	if extractor != nil {
		textExtractor = extractor
	}
	sh := handler.NewSessionHandler(registry, textExtractor)

	opts.Gatherer = reg
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	RegisterRoutes(h, sh, opts)
	return &testServer{h: h, saver: saver}
}

func (s *testServer) do(method, url string, body []byte, headers ...ut.Header) *ut.ResponseRecorder {
	var b *ut.Body
	if body != nil {
		b = &ut.Body{Body: bytes.NewReader(body), Len: len(body)}
	}
	return ut.PerformRequest(s.h.Engine, method, url, b, headers...)
}

func (s *testServer) createSession(t *testing.T, headers ...ut.Header) handler.CreateSessionResponse {
	t.Helper()
	resp := s.do(http.MethodPost, "/api/v1/sessions", nil, headers...)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created handler.CreateSessionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return created
}

var jsonHeader = ut.Header{Key: "Content-Type", Value: "application/json"}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, Options{}, nil)

	created := s.createSession(t)
	assert.NotEmpty(t, created.ConversationID)
	assert.Contains(t, created.Greeting, "TalentScout")
	assert.Equal(t, "greeting", created.Status.Stage)
	assert.Equal(t, 10, created.Status.Percent)

	base := "/api/v1/sessions/" + created.ConversationID

	resp := s.do(http.MethodPost, base+"/messages", []byte(`{"message":"Jane Doe"}`), jsonHeader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var msg handler.MessageResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &msg))
	assert.Contains(t, msg.Reply, "Jane")
	assert.Equal(t, "gathering_info", msg.Status.Stage)
	assert.True(t, msg.Status.Fields[types.FieldFullName])

	resp = s.do(http.MethodGet, base+"/status", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var st session.Status
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &st))
	assert.Equal(t, "Gathering Info", st.Label)
	assert.Equal(t, created.ConversationID, st.ConversationID)

	resp = s.do(http.MethodPost, base+"/messages", []byte(`{"message":"bye"}`), jsonHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &msg))
	assert.Contains(t, msg.Reply, "Thank you, Jane!")
	assert.True(t, msg.Status.Ended)
	assert.Equal(t, "ts_aaaaaaaaaaaa", msg.Status.SessionID)
	assert.Equal(t, 1, s.saver.calls)

	resp = s.do(http.MethodPost, base+"/messages", []byte(`{"message":"hello?"}`), jsonHeader)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = s.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = s.do(http.MethodGet, base+"/status", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, 1, s.saver.calls, "删除会话不触发持久化")
}

func TestSendMessage_Validation(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	created := s.createSession(t)
	url := "/api/v1/sessions/" + created.ConversationID + "/messages"

	resp := s.do(http.MethodPost, url, []byte(`{"message":""}`), jsonHeader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "message")

	resp = s.do(http.MethodPost, url, []byte(`{"message":"   "}`), jsonHeader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(http.MethodPost, "/api/v1/sessions/unknown/messages", []byte(`{"message":"hi"}`), jsonHeader)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func multipartResume(t *testing.T, filename string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func TestUploadResume(t *testing.T) {
	extractor := &fakeExtractor{text: "Jane Doe\njane@example.com\n7 years with Go, Docker and Kafka"}
	s := newTestServer(t, Options{}, extractor)
	created := s.createSession(t)
	url := "/api/v1/sessions/" + created.ConversationID + "/resume"

	body, contentType := multipartResume(t, "resume.pdf")
	resp := s.do(http.MethodPost, url, body, ut.Header{Key: "Content-Type", Value: contentType})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out handler.ResumeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.ElementsMatch(t, []types.ProfileField{types.FieldEmail, types.FieldYearsExperience}, out.UpdatedFields)
	assert.False(t, out.Status.Fields[types.FieldFullName], "简历不推断姓名")
	assert.Equal(t, []string{"GO", "Docker", "Kafka"}, out.Status.TechStack)

	body, contentType = multipartResume(t, "resume.docx")
	resp = s.do(http.MethodPost, url, body, ut.Header{Key: "Content-Type", Value: contentType})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.Code)

	extractor.err = errors.New("broken pdf")
	body, contentType = multipartResume(t, "resume.pdf")
	resp = s.do(http.MethodPost, url, body, ut.Header{Key: "Content-Type", Value: contentType})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestUploadResume_Disabled(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	created := s.createSession(t)

	body, contentType := multipartResume(t, "resume.pdf")
	resp := s.do(http.MethodPost, "/api/v1/sessions/"+created.ConversationID+"/resume", body,
		ut.Header{Key: "Content-Type", Value: contentType})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t, Options{APIKeys: []string{"secret-key"}}, nil)

	resp := s.do(http.MethodPost, "/api/v1/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = s.do(http.MethodPost, "/api/v1/sessions", nil, ut.Header{Key: APIKeyHeader, Value: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	s.createSession(t, ut.Header{Key: APIKeyHeader, Value: "secret-key"})

	resp = s.do(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, resp.Code, "健康检查不需要鉴权")
	assert.Contains(t, resp.Body.String(), `"active_sessions":1`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, Options{MetricsPath: "/metrics"}, nil)
	s.createSession(t)

	resp := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "screening_sessions_started_total 1")
}
