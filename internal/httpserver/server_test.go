package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/neuroprime/internal/broker"
	"github.com/robalobadob/neuroprime/internal/faces"
	"github.com/robalobadob/neuroprime/internal/game"
	"github.com/robalobadob/neuroprime/internal/loop"
	"github.com/robalobadob/neuroprime/internal/metrics"
	"github.com/robalobadob/neuroprime/internal/shell"
	"github.com/robalobadob/neuroprime/internal/store"
)

const testSecret = "test-secret"

type fixedCoach struct{ text string }

func (c fixedCoach) Tip(context.Context, game.Type, int) string { return c.text }

type testEnv struct {
	ts      *httptest.Server
	clock   *loop.Manual
	store   *store.Memory
	broker  *broker.Broker
	metrics *metrics.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat, err := faces.New([]string{"a", "b", "c", "d", "e", "f", "g", "h"})
	if err != nil {
		t.Fatalf("faces: %v", err)
	}
	env := &testEnv{
		clock:   loop.NewManual(),
		broker:  broker.New(),
		metrics: metrics.NewRecorder(),
	}
	env.store = store.NewMemoryStore(store.Options{
		IdleTTL: time.Hour,
		OnEvict: func(id string) { env.broker.Close(id) },
	})
	logger := zerolog.Nop()
	srv := New(Options{
		Store:         env.store,
		Broker:        env.broker,
		Faces:         cat,
		Coach:         fixedCoach{text: "Breathe, then chunk the sequence."},
		Metrics:       env.metrics,
		Shell:         shell.DefaultConfig(),
		SessionSecret: testSecret,
		SessionTTL:    time.Hour,
		Logger:        &logger,
		Scheduler:     env.clock,
	})
	env.ts = httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		env.ts.Close()
		env.store.Close()
	})
	return env
}

// call sends a JSON request with an optional bearer token and returns the
// status and raw body.
func (e *testEnv) call(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

func (e *testEnv) newSession(t *testing.T) newSessionRes {
	t.Helper()
	status, body := e.call(t, http.MethodPost, "/sessions", "", nil)
	if status != http.StatusCreated {
		t.Fatalf("POST /sessions = %d %s", status, body)
	}
	var res newSessionRes
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res
}

func errCode(t *testing.T, body []byte) string {
	t.Helper()
	var m map[string]string
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return m["error"]
}

func decodeView(t *testing.T, body []byte) shell.View {
	t.Helper()
	var v shell.View
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode view %q: %v", body, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.call(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || !strings.Contains(string(body), `"ok":true`) {
		t.Fatalf("GET /health = %d %s", status, body)
	}
}

func TestIndexListsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.call(t, http.MethodGet, "/", "", nil)
	if status != http.StatusOK || !strings.Contains(string(body), "POST /session/memory/flip") {
		t.Fatalf("GET / = %d %s", status, body)
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.call(t, http.MethodGet, "/nope", "", nil)
	if status != http.StatusNotFound || errCode(t, body) != "not_found" {
		t.Fatalf("GET /nope = %d %s", status, body)
	}
}

func TestDebugFaces(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.call(t, http.MethodGet, "/debug/faces", "", nil)
	if status != http.StatusOK || !strings.Contains(string(body), `"count":8`) {
		t.Fatalf("GET /debug/faces = %d %s", status, body)
	}
}

func TestNewSessionSetsCookie(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.ts.Client().Post(env.ts.URL+"/sessions", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res newSessionRes
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.SessionID == "" || res.Token == "" {
		t.Fatalf("res = %+v", res)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "neuroprime_session" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != res.Token || !cookie.HttpOnly {
		t.Fatalf("cookie = %+v", cookie)
	}
	if env.store.Len() != 1 {
		t.Errorf("store has %d sessions, want 1", env.store.Len())
	}

	// The cookie alone authenticates.
	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/session", nil)
	req.AddCookie(cookie)
	resp2, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("GET /session with cookie = %d", resp2.StatusCode)
	}
}

func TestSessionRoutesNeedToken(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.call(t, http.MethodGet, "/session", "", nil)
	if status != http.StatusUnauthorized || errCode(t, body) != "unauthorized" {
		t.Fatalf("no token = %d %s", status, body)
	}
	status, body = env.call(t, http.MethodGet, "/session", "not-a-jwt", nil)
	if status != http.StatusUnauthorized || errCode(t, body) != "invalid_token" {
		t.Fatalf("bad token = %d %s", status, body)
	}

	// A well-signed token for a session that does not exist.
	other := New(Options{Store: env.store, SessionSecret: testSecret})
	tok, _, err := other.signToken("ghost")
	if err != nil {
		t.Fatal(err)
	}
	status, body = env.call(t, http.MethodGet, "/session", tok, nil)
	if status != http.StatusNotFound || errCode(t, body) != "session_not_found" {
		t.Fatalf("unknown session = %d %s", status, body)
	}

	// Signed with a different secret.
	forged := New(Options{Store: env.store, SessionSecret: "other"})
	tok, _, _ = forged.signToken(env.newSession(t).SessionID)
	status, _ = env.call(t, http.MethodGet, "/session", tok, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("forged token = %d", status)
	}
}

func TestFreshSessionIsOnMenu(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSession(t)
	status, body := env.call(t, http.MethodGet, "/session", s.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("GET /session = %d %s", status, body)
	}
	v := decodeView(t, body)
	if v.Screen != game.ScreenMenu || v.Game != game.TypeNone || v.Score != 0 {
		t.Fatalf("view = %+v", v)
	}
}

func TestStartRejections(t *testing.T) {
	env := newTestEnv(t)
	tok := env.newSession(t).Token

	status, body := env.call(t, http.MethodPost, "/session/start", tok, startReq{Game: "chess"})
	if status != http.StatusBadRequest || errCode(t, body) != "unknown_game" {
		t.Fatalf("unknown game = %d %s", status, body)
	}
	status, body = env.call(t, http.MethodPost, "/session/again", tok, nil)
	if status != http.StatusConflict || errCode(t, body) != "invalid_transition" {
		t.Fatalf("again from menu = %d %s", status, body)
	}
	status, _ = env.call(t, http.MethodPost, "/session/start", tok, startReq{Game: "simon"})
	if status != http.StatusOK {
		t.Fatalf("start = %d", status)
	}
	status, body = env.call(t, http.MethodPost, "/session/start", tok, startReq{Game: "memory"})
	if status != http.StatusConflict || errCode(t, body) != "invalid_transition" {
		t.Fatalf("start while playing = %d %s", status, body)
	}
}

func TestSimonPress(t *testing.T) {
	env := newTestEnv(t)
	tok := env.newSession(t).Token

	status, body := env.call(t, http.MethodPost, "/session/start", tok, startReq{Game: "SIMON"})
	if status != http.StatusOK {
		t.Fatalf("start = %d %s", status, body)
	}
	v := decodeView(t, body)
	if v.Screen != game.ScreenPlaying || v.Simon == nil || v.Label != "Sequence Memory" {
		t.Fatalf("view = %+v", v)
	}

	status, body = env.call(t, http.MethodPost, "/session/simon/press", tok, pressReq{Color: "green"})
	if status != http.StatusConflict || errCode(t, body) != "input_ignored" {
		t.Fatalf("press during playback = %d %s", status, body)
	}
	status, body = env.call(t, http.MethodPost, "/session/memory/flip", tok, map[string]int{"cardId": 0})
	if status != http.StatusConflict || errCode(t, body) != "wrong_game" {
		t.Fatalf("flip during simon = %d %s", status, body)
	}

	env.clock.Advance(time.Minute)

	status, body = env.call(t, http.MethodPost, "/session/simon/press", tok, pressReq{Color: "purple"})
	if status != http.StatusBadRequest || errCode(t, body) != "unknown_color" {
		t.Fatalf("unknown color = %d %s", status, body)
	}
	status, body = env.call(t, http.MethodPost, "/session/simon/press", tok, pressReq{Color: " Green "})
	if status != http.StatusOK {
		t.Fatalf("press = %d %s", status, body)
	}
	var res pressRes
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Feedback.Round != 1 {
		t.Errorf("feedback round = %d, want 1", res.Feedback.Round)
	}
	if !res.Feedback.Correct && res.View.Screen != game.ScreenGameOver {
		t.Errorf("a miss should end the game, view = %+v", res.View)
	}
}

func TestMemoryFlipErrors(t *testing.T) {
	env := newTestEnv(t)
	tok := env.newSession(t).Token

	status, body := env.call(t, http.MethodPost, "/session/start", tok, startReq{Game: "memory"})
	if status != http.StatusOK {
		t.Fatalf("start = %d %s", status, body)
	}
	v := decodeView(t, body)
	if v.Memory == nil || len(v.Memory.Cards) != 12 || v.Memory.TimeLeft != 60 {
		t.Fatalf("view = %+v", v)
	}
	for _, c := range v.Memory.Cards {
		if c.Face != "" {
			t.Fatalf("face-down card %d leaks its face %q", c.ID, c.Face)
		}
	}

	status, body = env.call(t, http.MethodPost, "/session/memory/flip", tok, map[string]int{"cardId": 0})
	if status != http.StatusOK {
		t.Fatalf("flip = %d %s", status, body)
	}
	var res flipRes
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Result.Card.Flipped || res.Result.Card.Face == "" {
		t.Errorf("flipped card = %+v", res.Result.Card)
	}

	cases := []struct {
		body any
		code string
		want int
	}{
		{map[string]int{"cardId": 0}, "card_unavailable", http.StatusConflict},
		{map[string]int{"cardId": 99}, "unknown_card", http.StatusBadRequest},
		{map[string]string{}, "bad_json", http.StatusBadRequest},
	}
	for _, tc := range cases {
		status, body := env.call(t, http.MethodPost, "/session/memory/flip", tok, tc.body)
		if status != tc.want || errCode(t, body) != tc.code {
			t.Errorf("flip %v = %d %s, want %d %s", tc.body, status, body, tc.want, tc.code)
		}
	}
	status, body = env.call(t, http.MethodPost, "/session/simon/press", tok, pressReq{Color: "red"})
	if status != http.StatusConflict || errCode(t, body) != "wrong_game" {
		t.Errorf("press during memory = %d %s", status, body)
	}
}

func TestMemoryTimeoutShowsScoreThenTip(t *testing.T) {
	env := newTestEnv(t)
	tok := env.newSession(t).Token

	if status, body := env.call(t, http.MethodPost, "/session/start", tok, startReq{Game: "memory"}); status != http.StatusOK {
		t.Fatalf("start = %d %s", status, body)
	}
	env.clock.Advance(61 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	var v shell.View
	for {
		_, body := env.call(t, http.MethodGet, "/session", tok, nil)
		v = decodeView(t, body)
		if !v.TipLoading || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if v.Screen != game.ScreenGameOver || v.Game != game.TypeMemory || v.Score != 0 {
		t.Fatalf("view = %+v", v)
	}
	if v.Tip != "Breathe, then chunk the sequence." {
		t.Errorf("tip = %q", v.Tip)
	}

	status, body := env.call(t, http.MethodPost, "/session/again", tok, nil)
	if status != http.StatusOK {
		t.Fatalf("again = %d %s", status, body)
	}
	if v := decodeView(t, body); v.Screen != game.ScreenPlaying || v.Tip != "" {
		t.Errorf("view after again = %+v", v)
	}
}

func TestQuitReturnsToMenu(t *testing.T) {
	env := newTestEnv(t)
	tok := env.newSession(t).Token

	env.call(t, http.MethodPost, "/session/start", tok, startReq{Game: "memory", Daily: true})
	status, body := env.call(t, http.MethodPost, "/session/quit", tok, nil)
	if status != http.StatusOK {
		t.Fatalf("quit = %d %s", status, body)
	}
	v := decodeView(t, body)
	if v.Screen != game.ScreenMenu || v.Memory != nil || v.Daily {
		t.Fatalf("view = %+v", v)
	}

	// The abandoned countdown must not end a game that no longer exists.
	env.clock.Advance(2 * time.Minute)
	_, body = env.call(t, http.MethodGet, "/session", tok, nil)
	if v := decodeView(t, body); v.Screen != game.ScreenMenu || v.TipLoading {
		t.Errorf("view after countdown = %+v", v)
	}
}

func TestEndSession(t *testing.T) {
	env := newTestEnv(t)
	tok := env.newSession(t).Token

	status, _ := env.call(t, http.MethodDelete, "/session", tok, nil)
	if status != http.StatusOK {
		t.Fatalf("DELETE /session = %d", status)
	}
	status, body := env.call(t, http.MethodGet, "/session", tok, nil)
	if status != http.StatusNotFound || errCode(t, body) != "session_not_found" {
		t.Fatalf("after delete = %d %s", status, body)
	}
	if env.store.Len() != 0 {
		t.Errorf("store has %d sessions", env.store.Len())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	tok := env.newSession(t).Token
	env.call(t, http.MethodPost, "/session/start", tok, startReq{Game: "memory"})

	status, body := env.call(t, http.MethodGet, "/metrics", "", nil)
	if status != http.StatusOK {
		t.Fatalf("GET /metrics = %d", status)
	}
	for _, want := range []string{
		`neuroprime_games_started_total{game="MEMORY"} 1`,
		`neuroprime_sessions_active 1`,
		`neuroprime_http_requests_total{method="POST",route="/sessions",status="201"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodOptions, env.ts.URL+"/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow-origin = %q", got)
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials not allowed")
	}
}
