package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HakkanShah/WeMakeLessons-sub002/internal/config"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/observability"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/session"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/settings"
)

func newTestServer(t *testing.T, name string) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Config{
		SessionInactivityTimeout: 2 * time.Minute,
		SpeechLocale:             "en-US",
		VoiceRetryInterval:       250 * time.Millisecond,
		VoiceRetryMaxAttempts:    10,
	}
	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	metrics := observability.NewMetrics("test_httpapi_" + name + "_" + time.Now().Format("150405000000000"))
	srv := New(cfg, sessions, settings.NewInMemoryStore(), metrics)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func createSession(t *testing.T, ts *httptest.Server, userID string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"user_id": userID})
	res, err := http.Post(ts.URL+"/v1/speech/session", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create session request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var created map[string]any
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	id, _ := created["session_id"].(string)
	if id == "" {
		t.Fatalf("missing session_id in create response: %+v", created)
	}
	return id
}

func TestCreateAndEndSession(t *testing.T) {
	_, ts := newTestServer(t, "lifecycle")

	sessionID := createSession(t, ts, "user-1")

	endRes, err := http.Post(ts.URL+"/v1/speech/session/"+sessionID+"/end", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("end session request error = %v", err)
	}
	defer endRes.Body.Close()
	if endRes.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want %d", endRes.StatusCode, http.StatusOK)
	}

	var ended session.Session
	if err := json.NewDecoder(endRes.Body).Decode(&ended); err != nil {
		t.Fatalf("decode end response: %v", err)
	}
	if ended.Status != session.StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, session.StatusEnded)
	}
}

func TestEndUnknownSession(t *testing.T) {
	_, ts := newTestServer(t, "unknown")

	res, err := http.Post(ts.URL+"/v1/speech/session/no-such-id/end", "application/json", nil)
	if err != nil {
		t.Fatalf("end session request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("end status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestUIRoutes(t *testing.T) {
	_, ts := newTestServer(t, "ui")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	rootRes, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer rootRes.Body.Close()
	if rootRes.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("GET / status = %d, want %d", rootRes.StatusCode, http.StatusTemporaryRedirect)
	}
	if got := rootRes.Header.Get("Location"); got != "/ui/" {
		t.Fatalf("GET / location = %q, want %q", got, "/ui/")
	}

	uiRes, err := http.Get(ts.URL + "/ui/")
	if err != nil {
		t.Fatalf("GET /ui/ error = %v", err)
	}
	defer uiRes.Body.Close()
	if uiRes.StatusCode != http.StatusOK {
		t.Fatalf("GET /ui/ status = %d, want %d", uiRes.StatusCode, http.StatusOK)
	}

	var body bytes.Buffer
	if _, err := body.ReadFrom(uiRes.Body); err != nil {
		t.Fatalf("reading /ui/ body failed: %v", err)
	}
	if !strings.Contains(body.String(), "speak_request") {
		t.Fatalf("GET /ui/ body missing adapter script")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, "settings")

	body, _ := json.Marshal(settings.VoicePrefs{
		UserID:           "user-2",
		VoiceModeEnabled: false,
		PreferredVoice:   "Samantha",
	})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/v1/speech/settings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	putRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT settings error = %v", err)
	}
	defer putRes.Body.Close()
	if putRes.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", putRes.StatusCode, http.StatusOK)
	}

	getRes, err := http.Get(ts.URL + "/v1/speech/settings?user_id=user-2")
	if err != nil {
		t.Fatalf("GET settings error = %v", err)
	}
	defer getRes.Body.Close()
	var prefs settings.VoicePrefs
	if err := json.NewDecoder(getRes.Body).Decode(&prefs); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if prefs.VoiceModeEnabled || prefs.PreferredVoice != "Samantha" {
		t.Fatalf("settings = %+v, want saved prefs", prefs)
	}
}

func TestVoicesRequiresLiveConnection(t *testing.T) {
	_, ts := newTestServer(t, "voices")

	sessionID := createSession(t, ts, "user-3")

	res, err := http.Get(ts.URL + "/v1/speech/voices?session_id=" + sessionID)
	if err != nil {
		t.Fatalf("GET voices error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("voices status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func dialWS(t *testing.T, ts *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/speech/session/ws?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil drains the socket until a message of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read waiting for %q: %v", wantType, err)
		}
		if msg["type"] == wantType {
			return msg
		}
	}
	t.Fatalf("no %q message before deadline", wantType)
	return nil
}

func TestWSSpeakFlow(t *testing.T) {
	_, ts := newTestServer(t, "speak")

	sessionID := createSession(t, ts, "user-4")
	conn := dialWS(t, ts, sessionID)

	send := func(msg any) {
		t.Helper()
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write error = %v", err)
		}
	}

	send(map[string]any{"type": "client_hello", "synthesis_supported": true, "recognition_supported": true})
	send(map[string]any{"type": "voice_catalog", "voices": []map[string]string{
		{"name": "Samantha", "lang": "en-US"},
		{"name": "Daniel", "lang": "en-GB"},
	}})
	send(map[string]any{"type": "user_interaction", "kind": "pointer"})

	state := readUntil(t, conn, "state_update")["state"].(map[string]any)
	if state["has_user_interaction"] != true {
		t.Fatalf("state after interaction = %+v, want has_user_interaction true", state)
	}

	send(map[string]any{"type": "speak_request", "text": "Hello! Is this working?"})

	first := readUntil(t, conn, "speak_utterance")
	if first["text"] != "Hello!" {
		t.Fatalf("first chunk text = %v, want %q", first["text"], "Hello!")
	}
	if first["voice_name"] != "Samantha" {
		t.Fatalf("first chunk voice = %v, want Samantha", first["voice_name"])
	}
	if first["pitch"] != 1.1 || first["rate"] != 1.1 {
		t.Fatalf("first chunk prosody = %v/%v, want 1.1/1.1", first["pitch"], first["rate"])
	}

	send(map[string]any{"type": "utterance_done", "utterance_id": first["utterance_id"]})

	second := readUntil(t, conn, "speak_utterance")
	if second["text"] != "Is this working?" {
		t.Fatalf("second chunk text = %v, want %q", second["text"], "Is this working?")
	}
	if second["pitch"] != 1.15 {
		t.Fatalf("second chunk pitch = %v, want 1.15", second["pitch"])
	}

	send(map[string]any{"type": "utterance_done", "utterance_id": second["utterance_id"]})

	state = readUntil(t, conn, "state_update")["state"].(map[string]any)
	if state["selected_voice"] != "Samantha" {
		t.Fatalf("selected_voice = %v, want Samantha", state["selected_voice"])
	}
}

func TestWSPreInteractionSpeakIsNoop(t *testing.T) {
	srv, ts := newTestServer(t, "gate")

	sessionID := createSession(t, ts, "user-5")
	conn := dialWS(t, ts, sessionID)

	if err := conn.WriteJSON(map[string]any{"type": "client_hello", "synthesis_supported": true, "recognition_supported": true}); err != nil {
		t.Fatalf("write error = %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "speak_request", "text": "Too early."}); err != nil {
		t.Fatalf("write error = %v", err)
	}

	readUntil(t, conn, "state_update")
	state := readUntil(t, conn, "state_update")["state"].(map[string]any)
	if state["is_speaking"] != false {
		t.Fatalf("is_speaking = %v before any interaction, want false", state["is_speaking"])
	}

	lc := srv.liveFor(sessionID)
	if lc == nil {
		t.Fatalf("no live connection registered for session")
	}
	if lc.engine.Speaker.IsSpeaking() {
		t.Fatalf("speaker started draining before first interaction")
	}
}
