package gateway

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"flowbot/pkg/agent"
	"flowbot/pkg/channel"
	"flowbot/pkg/channel/messenger"
	"flowbot/pkg/config"
	"flowbot/pkg/intent"
	"flowbot/pkg/model"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []messenger.MessageObject
}

func (s *recordingSender) Send(_ context.Context, _ string, message messenger.MessageObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, message)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestService(t *testing.T) (*Service, *recordingSender, *model.MemStore) {
	t.Helper()

	store := model.NewMemStore()
	matcher, err := intent.DefaultMatcher()
	require.NoError(t, err)

	dispatcher, err := agent.NewDispatcher(agent.Options{
		Store:       store,
		Rand:        rand.New(rand.NewPCG(5, 5)),
		LinkBaseURL: "https://flow.example",
	})
	require.NoError(t, err)

	sender := &recordingSender{}
	adapter, err := messenger.NewAdapter(&channel.Engine{Matcher: matcher, Dispatcher: dispatcher}, store, sender, nil)
	require.NoError(t, err)

	cfg := &config.Config{
		Channels: config.ChannelsConfig{
			Messenger: config.MessengerConfig{Enabled: true, VerifyToken: "verify-me"},
		},
	}

	svc, err := NewService(cfg, adapter, nil, nil)
	require.NoError(t, err)

	return svc, sender, store
}

func TestNewServiceRequiresChannel(t *testing.T) {
	_, err := NewService(&config.Config{}, nil, nil, nil)
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	svc, _, _ := newTestService(t)

	recorder := httptest.NewRecorder()
	svc.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "ok")
}

func TestWebhookVerification(t *testing.T) {
	svc, _, _ := newTestService(t)
	router := svc.Router()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		"/webhook/messenger?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "12345", recorder.Body.String())

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		"/webhook/messenger?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil))
	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestWebhookDelivery(t *testing.T) {
	svc, sender, store := newTestService(t)

	user, err := store.CreateUser(context.Background(), &model.User{Name: "Jo Doe", Timezone: "UTC"})
	require.NoError(t, err)
	user.SetChannelID(channel.Messenger, "psid-1")
	require.NoError(t, store.PutUser(context.Background(), user))

	body := `{"object":"page","entry":[{"messaging":[{"sender":{"id":"psid-1"},"message":{"text":"my tasks"}}]}]}`
	recorder := httptest.NewRecorder()
	svc.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/webhook/messenger", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 1, sender.count())
}

func TestWebhookMalformedBodyStillAccepted(t *testing.T) {
	svc, sender, _ := newTestService(t)

	recorder := httptest.NewRecorder()
	svc.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/webhook/messenger", strings.NewReader(`{"nope":true}`)))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 0, sender.count())
}
