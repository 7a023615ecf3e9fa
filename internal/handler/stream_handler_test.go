package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TPI-Manager/TPI-Manager/internal/realtime"
)

func newStreamServer(t *testing.T, broker *realtime.Broker, heartbeat time.Duration) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewStreamHandler(broker, heartbeat)
	r.GET("/stream", h.Stream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func openStream(t *testing.T, ctx context.Context, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestStreamRejectsMalformedTopics(t *testing.T) {
	broker := realtime.NewBroker(zap.NewNop(), 0)
	defer broker.Close()
	srv := newStreamServer(t, broker, 0)

	resp, err := http.Get(srv.URL + "/stream?topics=chat/CST")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/stream?topics=")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamDeliversEvents(t *testing.T) {
	broker := realtime.NewBroker(zap.NewNop(), 0)
	defer broker.Close()
	srv := newStreamServer(t, broker, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp := openStream(t, ctx, srv.URL+"/stream?topics=announcements///")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	topic := realtime.Topic{Kind: realtime.KindAnnouncements}
	deadline := time.Now().Add(2 * time.Second)
	for broker.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, broker.Publish(context.Background(), topic, realtime.Event{Action: realtime.ActionCreate, ID: "a1"}))

	scanner := bufio.NewScanner(resp.Body)
	var sawMessage bool
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") && strings.Contains(line, "message") {
			sawMessage = true
		}
		if sawMessage && strings.Contains(line, "a1") {
			return
		}
	}
	t.Fatal("stream closed before delivering the published event")
}

func TestStreamHeartbeatUsesConfiguredInterval(t *testing.T) {
	broker := realtime.NewBroker(zap.NewNop(), 0)
	defer broker.Close()
	srv := newStreamServer(t, broker, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp := openStream(t, ctx, srv.URL+"/stream?topics=announcements///")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") && strings.Contains(line, "ping") {
			return
		}
	}
	t.Fatal("no heartbeat within the request deadline")
}
