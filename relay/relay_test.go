package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHub_BroadcastsFramesToAllClients(t *testing.T) {
	hub, srv := startHub(t)
	first := dial(t, srv)
	second := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 5*time.Second, 10*time.Millisecond)

	hub.Publish(EventSubscriptions, SubscriptionEvent{Action: ActionJoin, TournamentID: "t1", UserID: "u1"})
	hub.Publish(EventLeaderboard, LeaderboardEvent{Username: "neo"})

	for _, conn := range []*websocket.Conn{first, second} {
		f := readFrame(t, conn)
		assert.Equal(t, EventSubscriptions, f.Event)
		var payload SubscriptionEvent
		require.NoError(t, json.Unmarshal(f.Payload, &payload))
		assert.Equal(t, SubscriptionEvent{Action: ActionJoin, TournamentID: "t1", UserID: "u1"}, payload)

		f = readFrame(t, conn)
		assert.Equal(t, EventLeaderboard, f.Event)
		assert.JSONEq(t, `{"username":"neo"}`, string(f.Payload))
	}
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)

	// публикация без клиентов не блокирует
	hub.Publish(EventMemory, MemoryEvent{Action: ActionShare, MemoryID: "m"})
}

func TestHub_PublishAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, hub.Run(ctx))

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastQueue*2; i++ {
			hub.Publish(EventUser, UserEvent{Action: ActionUpdate, UserID: "u"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a stopped hub")
	}
}

func TestFanoutAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Fanout{a, nil, b, Nop{}}.Publish(EventProfile, UserEvent{Action: ActionUpdate, UserID: "u"})

	require.Len(t, a.Messages(), 1)
	require.Len(t, b.Events(EventProfile), 1)
	assert.Empty(t, b.Events(EventUser))
}

type fakeWebhook struct {
	mu     sync.Mutex
	calls  []*discordgo.WebhookParams
	err    error
	called chan struct{}
}

func (f *fakeWebhook) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, data)
	f.mu.Unlock()
	f.called <- struct{}{}
	return nil, f.err
}

func TestDiscordAnnouncer_AnnouncesOnlyCreatedTournaments(t *testing.T) {
	hook := &fakeWebhook{called: make(chan struct{}, 4)}
	announcer := NewDiscordAnnouncer(hook, "id", "token", "https://arena.example.com/", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = announcer.Run(ctx) }()

	startsAt := time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC)
	announcer.Publish(EventTournaments, TournamentEvent{Action: ActionStatus, TournamentID: "t0"})
	announcer.Publish(EventSubscriptions, SubscriptionEvent{Action: ActionJoin})
	announcer.Publish(EventTournaments, TournamentEvent{
		Action: ActionCreate, TournamentID: "t1", Title: "Winter Cup", Slug: "winter-cup", StartsAt: &startsAt,
	})

	select {
	case <-hook.called:
	case <-time.After(5 * time.Second):
		t.Fatal("announcement was not posted")
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	require.Len(t, hook.calls, 1)
	params := hook.calls[0]
	assert.Contains(t, params.Content, "Winter Cup")
	require.Len(t, params.Embeds, 1)
	assert.Equal(t, "https://arena.example.com/tournaments/winter-cup", params.Embeds[0].URL)
	require.Len(t, params.Embeds[0].Fields, 1)
	assert.Equal(t, "<t:1796148000:F>", params.Embeds[0].Fields[0].Value)
}

func TestDiscordAnnouncer_ErrorIsLoggedNotPropagated(t *testing.T) {
	hook := &fakeWebhook{called: make(chan struct{}, 1), err: errors.New("429")}
	announcer := NewDiscordAnnouncer(hook, "id", "token", "", discardLogger())
	announcer.Publish(EventTournaments, &TournamentEvent{Action: ActionCreate, TournamentID: "t1", Title: "Cup"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- announcer.Run(ctx) }()
	<-hook.called
	cancel()
	assert.NoError(t, <-done)
}

func TestRedisPublisher_ForwardsToHub(t *testing.T) {
	uri := os.Getenv("REDIS_TEST_URL")
	if uri == "" {
		t.Skip("REDIS_TEST_URL not set, skipping redis integration test")
	}
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	hub, srv := startHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	channel := "arena-hub:test:" + time.Now().Format("150405.000000")
	publisher := NewRedisPublisher(client, channel, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = publisher.Run(ctx, hub) }()

	// подписка асинхронная: публикуем, пока кадр не дойдёт
	received := make(chan frame, 1)
	go func() {
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var f frame
		if err := conn.ReadJSON(&f); err == nil {
			received <- f
		}
	}()
	deadline := time.After(10 * time.Second)
	for {
		publisher.Publish(EventLeaderboard, LeaderboardEvent{Username: "trinity"})
		select {
		case f := <-received:
			assert.Equal(t, EventLeaderboard, f.Event)
			assert.JSONEq(t, `{"username":"trinity"}`, string(f.Payload))
			return
		case <-deadline:
			t.Fatal("frame did not arrive through redis")
		case <-time.After(200 * time.Millisecond):
		}
	}
}
