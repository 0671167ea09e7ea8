package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dmfesta/tradeacademy/internal/models"
)

type stubFeed struct {
	price float64
}

func (f *stubFeed) NudgePrices(ctx context.Context) ([]models.MarketPrice, error) {
	f.price++
	return []models.MarketPrice{{Symbol: "BTC", Name: "Bitcoin", Price: f.price}}, nil
}

func TestHubBroadcastsTicks(t *testing.T) {
	hub := NewHub(&stubFeed{price: 100}, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Serve(conn)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var tick struct {
		Type   string `json:"type"`
		Quotes []struct {
			Symbol string  `json:"symbol"`
			Price  float64 `json:"price"`
		} `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(frame, &tick))
	require.Equal(t, "market_tick", tick.Type)
	require.Len(t, tick.Quotes, 1)
	require.Equal(t, "BTC", tick.Quotes[0].Symbol)
	require.Greater(t, tick.Quotes[0].Price, 100.0)
}

func TestHubShutdownReleasesClients(t *testing.T) {
	hub := NewHub(&stubFeed{price: 100}, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	served := make(chan struct{}, 2)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Serve(conn)
		served <- struct{}{}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// Stopping the hub must unwind Serve even though the run loop no
	// longer drains the unregister channel.
	cancel()
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after hub shutdown")
	}

	// Late connections are refused instead of blocking on register.
	lateConn, lateResp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		defer lateResp.Body.Close()
		defer lateConn.Close()
		require.NoError(t, lateConn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err = lateConn.ReadMessage()
		require.Error(t, err)
	}
}

func TestHubDefaultsInterval(t *testing.T) {
	hub := NewHub(&stubFeed{}, 0)
	require.Equal(t, 3*time.Second, hub.interval)
}
