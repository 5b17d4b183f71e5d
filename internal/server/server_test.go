package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/george-m2/cobra/internal/config"
	"github.com/george-m2/cobra/internal/session"
	"github.com/george-m2/cobra/internal/storage"
)

func testFactory() (*session.Session, error) {
	st := config.Default()
	st.Depth = 1
	return session.New(session.Options{Settings: st, Logger: zerolog.Nop()})
}

func openStore(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestPing(t *testing.T) {
	ts := httptest.NewServer(New(testFactory, nil, zerolog.Nop()).Handler())
	defer ts.Close()

	var body map[string]bool
	if code := getJSON(t, ts.URL+"/api/ping", &body); code != http.StatusOK || !body["ok"] {
		t.Errorf("ping = %d %v", code, body)
	}
}

func TestStatsWithoutStorage(t *testing.T) {
	ts := httptest.NewServer(New(testFactory, nil, zerolog.Nop()).Handler())
	defer ts.Close()

	for _, path := range []string{"/api/stats", "/api/games", "/api/games/1", "/api/settings"} {
		if code := getJSON(t, ts.URL+path, nil); code != http.StatusServiceUnavailable {
			t.Errorf("%s = %d, want 503", path, code)
		}
	}
}

func TestGamesAndStats(t *testing.T) {
	store := openStore(t)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, result := range []string{"0-1", "1-0"} {
		err := store.RecordGame(&storage.GameRecord{
			PGN:           "1. e4 e5 *",
			Result:        result,
			Engine:        "cobra",
			EngineColor:   "black",
			Plies:         2,
			BestMoveCount: 1,
			StartedAt:     start.Add(time.Duration(i) * time.Hour),
			FinishedAt:    start.Add(time.Duration(i)*time.Hour + time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	ts := httptest.NewServer(New(testFactory, store, zerolog.Nop()).Handler())
	defer ts.Close()

	var stats map[string]any
	if code := getJSON(t, ts.URL+"/api/stats", &stats); code != http.StatusOK {
		t.Fatalf("stats = %d", code)
	}
	if stats["games_played"] != float64(2) || stats["engine_win_rate"] != float64(50) || stats["accuracy"] != float64(100) {
		t.Errorf("stats = %v", stats)
	}

	var games []storage.GameRecord
	if code := getJSON(t, ts.URL+"/api/games?limit=1", &games); code != http.StatusOK || len(games) != 1 {
		t.Fatalf("games = %d, %d records", code, len(games))
	}
	if games[0].Result != "1-0" {
		t.Errorf("newest game result = %q, want 1-0", games[0].Result)
	}

	var rec storage.GameRecord
	if code := getJSON(t, ts.URL+"/api/games/"+games[0].ID, &rec); code != http.StatusOK || rec.ID != games[0].ID {
		t.Errorf("game = %d %+v", code, rec)
	}
	if code := getJSON(t, ts.URL+"/api/games/nope", nil); code != http.StatusNotFound {
		t.Errorf("missing game = %d, want 404", code)
	}
	if code := getJSON(t, ts.URL+"/api/games?limit=x", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", code)
	}
}

func TestSettingsFromSession(t *testing.T) {
	store := openStore(t)
	factory := func() (*session.Session, error) {
		st := config.Default()
		st.Depth = 1
		return session.New(session.Options{Settings: st, Recorder: store, Logger: zerolog.Nop()})
	}
	ts := httptest.NewServer(New(factory, store, zerolog.Nop()).Handler())
	defer ts.Close()

	if code := getJSON(t, ts.URL+"/api/settings", nil); code != http.StatusNotFound {
		t.Fatalf("settings before any session = %d, want 404", code)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	msg := `SETTINGS {"selectedEngine": "Cobra", "depth": 2, "ACPL": false}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatal(err)
	}
	var reply session.Reply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Status != "ok" {
		t.Fatalf("settings reply = %+v", reply)
	}

	var st config.Settings
	if code := getJSON(t, ts.URL+"/api/settings", &st); code != http.StatusOK {
		t.Fatalf("settings = %d", code)
	}
	if st.Depth != 2 || st.Engine != config.EngineCobra {
		t.Errorf("saved settings = %+v", st)
	}
}

func TestWebSocketSession(t *testing.T) {
	srv := New(testFactory, nil, zerolog.Nop())
	shutdown := make(chan struct{}, 1)
	srv.OnShutdown = func() { shutdown <- struct{}{} }

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send := func(msg string) session.Reply {
		t.Helper()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatal(err)
		}
		var reply session.Reply
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatal(err)
		}
		return reply
	}

	if r := send("e4"); r.Move == "" {
		t.Errorf("e4 reply = %+v, want a move", r)
	}
	if r := send("Ke2e4"); r.Error == "" {
		t.Errorf("bad move reply = %+v, want an error", r)
	}
	if r := send(session.CmdShutdown); r.Status != "shutdown" {
		t.Errorf("shutdown reply = %+v", r)
	}

	select {
	case <-shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("OnShutdown not called")
	}

	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("after shutdown: %v, want normal closure", err)
	}
}
