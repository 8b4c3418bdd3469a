package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	eventbusmock "gitlab.com/manasline/api/wa-helpline-bot/internal/eventbus/mock"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	storagemock "gitlab.com/manasline/api/wa-helpline-bot/internal/storage/mock"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/usecase"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
)

type workerMock struct {
	mock.Mock
}

func (m *workerMock) SubmitTask(taskData usecase.InboundTaskData) error {
	args := m.Called(taskData)
	return args.Error(0)
}

func (m *workerMock) Stop() {
	m.Called()
}

type serverFixture struct {
	worker      *workerMock
	userRepo    *storagemock.UserRepoMock
	sessionRepo *storagemock.SessionRepoMock
	flowRepo    *storagemock.SessionFlowRepoMock
	messageRepo *storagemock.ChatMessageRepoMock
	eventRepo   *storagemock.AnalyticsEventRepoMock
	metricRepo  *storagemock.DashboardMetricRepoMock
	server      *Server
}

func newServerFixture(t *testing.T) *serverFixture {
	log := zaptest.NewLogger(t).Named("test")
	logger.Log = log

	f := &serverFixture{
		worker:      new(workerMock),
		userRepo:    new(storagemock.UserRepoMock),
		sessionRepo: new(storagemock.SessionRepoMock),
		flowRepo:    new(storagemock.SessionFlowRepoMock),
		messageRepo: new(storagemock.ChatMessageRepoMock),
		eventRepo:   new(storagemock.AnalyticsEventRepoMock),
		metricRepo:  new(storagemock.DashboardMetricRepoMock),
	}
	publisher := new(eventbusmock.PublisherMock)
	publisher.On("PublishEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	sessionService := usecase.NewSessionService(f.userRepo, f.sessionRepo, f.eventRepo, publisher)
	aggregator := usecase.NewAggregator(f.userRepo, f.sessionRepo, f.flowRepo, f.messageRepo, f.eventRepo, f.metricRepo)
	f.server = NewServer("8080", "secret-token", f.worker, sessionService, aggregator, log)
	return f
}

func (f *serverFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Verify(t *testing.T) {
	f := newServerFixture(t)

	t.Run("EchoesChallenge", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "12345", rec.Body.String())
	})

	t.Run("RejectsBadToken", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("RejectsBadMode", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/webhook?hub.mode=unsubscribe&hub.verify_token=secret-token", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func inboundPayload(from, text, buttonID, listID string) string {
	msg := map[string]interface{}{"from": from}
	if text != "" {
		msg["type"] = "text"
		msg["text"] = map[string]string{"body": text}
	}
	if buttonID != "" {
		msg["type"] = "interactive"
		msg["interactive"] = map[string]interface{}{
			"type":         "button_reply",
			"button_reply": map[string]string{"id": buttonID},
		}
	}
	if listID != "" {
		msg["type"] = "interactive"
		msg["interactive"] = map[string]interface{}{
			"type":       "list_reply",
			"list_reply": map[string]string{"id": listID},
		}
	}
	payload := map[string]interface{}{
		"entry": []interface{}{map[string]interface{}{
			"changes": []interface{}{map[string]interface{}{
				"value": map[string]interface{}{
					"messages": []interface{}{msg},
				},
			}},
		}},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestServer_Inbound_SubmitsNormalizedEvent(t *testing.T) {
	f := newServerFixture(t)

	var submitted usecase.InboundTaskData
	f.worker.On("SubmitTask", mock.AnythingOfType("usecase.InboundTaskData")).
		Run(func(args mock.Arguments) { submitted = args.Get(0).(usecase.InboundTaskData) }).
		Return(nil)

	rec := f.do(http.MethodPost, "/webhook", inboundPayload("919876543210", "  Hello THERE  ", "", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	f.worker.AssertExpectations(t)
	assert.Equal(t, "919876543210", submitted.Event.From)
	assert.Equal(t, "hello there", submitted.Event.Text)
	require.NotNil(t, submitted.Ctx)
	assert.NotEmpty(t, logger.RequestIDFromContext(submitted.Ctx))
}

func TestServer_Inbound_ButtonReply(t *testing.T) {
	f := newServerFixture(t)

	var submitted usecase.InboundTaskData
	f.worker.On("SubmitTask", mock.AnythingOfType("usecase.InboundTaskData")).
		Run(func(args mock.Arguments) { submitted = args.Get(0).(usecase.InboundTaskData) }).
		Return(nil)

	rec := f.do(http.MethodPost, "/webhook", inboundPayload("919876543210", "", "BTN_MAIN_MENU", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTN_MAIN_MENU", submitted.Event.ButtonID)
}

func TestServer_Inbound_AlwaysAcks(t *testing.T) {
	f := newServerFixture(t)

	t.Run("MalformedBody", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/webhook", "{not json")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("StatusCallback", func(t *testing.T) {
		body := `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.X","status":"delivered"}]}}]}]}`
		rec := f.do(http.MethodPost, "/webhook", body)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("SubmitFailure", func(t *testing.T) {
		f.worker.On("SubmitTask", mock.AnythingOfType("usecase.InboundTaskData")).Return(errSubmit)
		rec := f.do(http.MethodPost, "/webhook", inboundPayload("919876543210", "hi", "", ""))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	f.worker.AssertNumberOfCalls(t, "SubmitTask", 1)
}

// statusRecorder signals as soon as the handler commits a status code.
type statusRecorder struct {
	*httptest.ResponseRecorder
	wrote chan int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.ResponseRecorder.WriteHeader(code)
	select {
	case r.wrote <- code:
	default:
	}
}

func TestServer_Inbound_AcksWhileSubmitPending(t *testing.T) {
	f := newServerFixture(t)

	release := make(chan struct{})
	f.worker.On("SubmitTask", mock.AnythingOfType("usecase.InboundTaskData")).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(inboundPayload("919876543210", "hi", "", "")))
	rec := &statusRecorder{ResponseRecorder: httptest.NewRecorder(), wrote: make(chan int, 1)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.server.Handler().ServeHTTP(rec, req)
	}()

	select {
	case code := <-rec.wrote:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(2 * time.Second):
		t.Fatal("no status committed while the submit was still pending")
	}
	close(release)
	<-done
	f.worker.AssertExpectations(t)
}

func TestServer_SessionStats(t *testing.T) {
	f := newServerFixture(t)

	f.sessionRepo.On("Stats", mock.Anything).Return(&model.SessionStats{
		Total:       120,
		Active:      3,
		BySource:    map[string]int64{"ORGANIC": 100, "QR_CODE": 20},
		AvgDuration: 95,
	}, nil)

	rec := f.do(http.MethodGet, "/api/sessions/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats model.SessionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(120), stats.Total)
	assert.Equal(t, int64(3), stats.Active)
	assert.Equal(t, int64(100), stats.BySource["ORGANIC"])
}

func TestServer_ActiveUsers(t *testing.T) {
	f := newServerFixture(t)

	f.eventRepo.On("ActiveUsers", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(9), nil)

	rec := f.do(http.MethodGet, "/api/analytics/active-users?minutes=10", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(9), resp["active_users"])
	assert.Equal(t, float64(10), resp["minutes"])
}

func TestServer_ActiveUsers_InvalidRange(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/api/analytics/active-users?minutes=-5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Funnel(t *testing.T) {
	f := newServerFixture(t)

	f.flowRepo.On("CountByStepInRange", mock.Anything, mock.AnythingOfType("model.FlowStep"), mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return(int64(5), nil)

	rec := f.do(http.MethodGet, "/api/dashboard/funnel?days=7", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var stages []model.FunnelStage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stages))
	require.Len(t, stages, len(model.FunnelStages))
	assert.Equal(t, model.FlowWelcome, stages[0].Step)
}

func TestServer_CreateSession(t *testing.T) {
	f := newServerFixture(t)
	user := model.FakeUser()

	f.userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.sessionRepo.On("ForceCloseActive", mock.Anything, user.ID, mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	f.sessionRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.Session")).Return(nil)
	f.eventRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)

	rec := f.do(http.MethodPost, "/api/sessions", `{"user_id":"`+user.ID+`","source":"QR_CODE"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var session model.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, model.SourceQRCode, session.Source)
}

func TestServer_CreateSession_BadRequests(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/api/sessions", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/sessions", `{"source":"QR_CODE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_EndSession(t *testing.T) {
	f := newServerFixture(t)
	session := model.FakeSession(&model.Session{IsActive: true})

	f.sessionRepo.On("FindByID", mock.Anything, session.ID).Return(session, nil)
	f.sessionRepo.On("EndSession", mock.Anything, session).Return(nil)
	f.eventRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)

	rec := f.do(http.MethodPost, "/api/sessions/"+session.ID+"/end", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var ended model.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ended))
	assert.False(t, ended.IsActive)
}

func TestServer_EndSession_NotFound(t *testing.T) {
	f := newServerFixture(t)

	f.sessionRepo.On("FindByID", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound)

	rec := f.do(http.MethodPost, "/api/sessions/missing/end", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DailyMetrics_BadDate(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/api/metrics/daily?date=30-08-2026", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Probes(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "UP")

	rec = f.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "READY")
}

var errSubmit = apperrors.ErrTimeout
