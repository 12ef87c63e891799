package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/HakkanShah/WeMakeLessons-sub002/internal/config"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/observability"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/protocol"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/reliability"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/session"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/settings"
	"github.com/HakkanShah/WeMakeLessons-sub002/internal/speech"
)

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	prefs    settings.Store
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	static   http.Handler

	mu   sync.Mutex
	live map[string]*liveConn
}

// liveConn is one websocket-attached session: the speech engine driving it
// plus the platform adapter relaying its commands to the browser.
type liveConn struct {
	engine   *speech.Engine
	platform *remotePlatform
}

func New(cfg config.Config, sessions *session.Manager, prefs settings.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		prefs:    prefs,
		metrics:  metrics,
		static:   newStaticHandler(),
		live:     make(map[string]*liveConn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin. This prevents other websites from driving the
				// user's mic session if the service is ever exposed beyond
				// localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/speech/session", s.handleCreateSession)
	r.Post("/v1/speech/session/{id}/end", s.handleEndSession)
	r.Get("/v1/speech/session/ws", s.handleSessionWS)
	r.Get("/v1/speech/voices", s.handleListVoices)
	r.Get("/v1/speech/settings", s.handleGetSettings)
	r.Put("/v1/speech/settings", s.handlePutSettings)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"settings_store": s.settingsStoreMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"settings_store": s.settingsStoreMode(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}
	if strings.TrimSpace(req.Locale) == "" {
		req.Locale = s.cfg.SpeechLocale
	}

	sess := s.sessions.Create(req.UserID, req.Locale)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Status:          sess.Status,
		Locale:          sess.Locale,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if lc := s.liveFor(id); lc != nil {
		lc.engine.Speaker.Cancel()
		lc.engine.Listener.StopListening()
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

type voicesResponse struct {
	Voices        []speech.Voice `json:"voices"`
	SelectedVoice string         `json:"selected_voice,omitempty"`
	Exhausted     bool           `json:"exhausted"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	lc := s.liveFor(sessionID)
	if lc == nil {
		respondError(w, http.StatusNotFound, "session_not_connected", "no live websocket for session")
		return
	}

	resp := voicesResponse{
		Voices:    lc.platform.Voices(),
		Exhausted: lc.engine.Resolver.Exhausted(),
	}
	if v := lc.engine.Resolver.Selected(); v != nil {
		resp.SelectedVoice = v.Name
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "query parameter user_id is required")
		return
	}
	prefs, err := s.prefs.Get(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "settings_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var prefs settings.VoicePrefs
	if err := decodeJSON(r, &prefs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(prefs.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}
	prefs.UpdatedAt = time.Now().UTC()
	if err := s.prefs.Save(r.Context(), prefs); err != nil {
		respondError(w, http.StatusInternalServerError, "settings_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if sess.Status != session.StatusActive {
		respondError(w, http.StatusConflict, "session_ended", "session is no longer active")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 256)
	platform := newRemotePlatform(outbound, s.metrics)
	engine := speech.NewEngine(platform, remoteRecognizerFactory{platform}, speech.Options{
		Locale: sess.Locale,
		VoiceRetry: reliability.RetryPolicy{
			Interval:    s.cfg.VoiceRetryInterval,
			MaxAttempts: s.cfg.VoiceRetryMaxAttempts,
		},
		TrailingPause: s.cfg.TrailingChunkPause,
		Metrics:       s.metrics,
	})
	if prefs, err := s.prefs.Get(ctx, sess.UserID); err == nil {
		engine.Speaker.SetVoiceMode(prefs.VoiceModeEnabled)
	}
	engine.Start(ctx)

	s.registerLive(sess.ID, &liveConn{engine: engine, platform: platform})
	defer s.dropLive(sess.ID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.queueOutbound(outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			})
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		_ = s.sessions.Touch(sess.ID)
		s.dispatch(sess, engine, platform, parsed)
		s.queueOutbound(outbound, protocol.StateUpdate{
			Type:  protocol.TypeStateUpdate,
			State: engine.Snapshot(),
		})
	}

	cancel()
	<-writerDone
	engine.Speaker.Cancel()
	engine.Listener.StopListening()
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

// dispatch routes one parsed client message. Application commands drive the
// engine; platform events relayed by the browser adapter feed back into the
// platform so pending callbacks resolve.
func (s *Server) dispatch(sess *session.Session, engine *speech.Engine, platform *remotePlatform, parsed any) {
	switch m := parsed.(type) {
	case protocol.ClientHello:
		platform.setSupport(m.SynthesisSupported, m.RecognitionSupported)
	case protocol.SpeakRequest:
		engine.Speaker.Speak(m.Text)
	case protocol.PlayIntro:
		engine.Speaker.PlayIntro(m.Key, m.Text)
	case protocol.CancelSpeech:
		engine.Speaker.Cancel()
	case protocol.SetVoiceMode:
		engine.Speaker.SetVoiceMode(m.Enabled)
		s.persistVoiceMode(sess.UserID, m.Enabled)
	case protocol.StartListening:
		engine.Listener.StartListening()
	case protocol.StopListening:
		engine.Listener.StopListening()
	case protocol.ClearTranscript:
		engine.Listener.ClearTranscript()
	case protocol.UserInteraction:
		engine.Gate.NotifyInteraction()
	case protocol.VoiceCatalog:
		platform.handleVoiceCatalog(m.Voices)
	case protocol.UtteranceDone:
		platform.handleUtteranceDone(m.UtteranceID)
	case protocol.UtteranceError:
		platform.handleUtteranceError(m.UtteranceID, m.Code)
	case protocol.RecognitionResultSet:
		platform.handleRecognitionResults(m.SessionID, m.Results)
	case protocol.RecognitionError:
		platform.handleRecognitionError(m.SessionID, m.Code)
	case protocol.RecognitionEnd:
		platform.handleRecognitionEnd(m.SessionID)
	}
}

// persistVoiceMode writes the toggle through to the settings store without
// blocking the websocket read loop.
func (s *Server) persistVoiceMode(userID string, enabled bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		prefs, err := s.prefs.Get(ctx, userID)
		if err != nil {
			prefs = settings.DefaultPrefs(userID)
		}
		prefs.VoiceModeEnabled = enabled
		prefs.UpdatedAt = time.Now().UTC()
		_ = s.prefs.Save(ctx, prefs)
	}()
}

func (s *Server) queueOutbound(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		// Keep websocket writes single-threaded; drop if outbound queue is
		// saturated.
		s.metrics.WSMessages.WithLabelValues("outbound", "drop_full").Inc()
	}
}

func (s *Server) registerLive(sessionID string, lc *liveConn) {
	s.mu.Lock()
	s.live[sessionID] = lc
	s.mu.Unlock()
}

func (s *Server) dropLive(sessionID string) {
	s.mu.Lock()
	delete(s.live, sessionID)
	s.mu.Unlock()
}

func (s *Server) liveFor(sessionID string) *liveConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[sessionID]
}

func (s *Server) settingsStoreMode() string {
	switch s.prefs.(type) {
	case *settings.PostgresStore:
		return "postgres"
	case nil:
		return "disabled"
	default:
		return "in-memory"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientHello:
		return m.Type, true
	case protocol.SpeakRequest:
		return m.Type, true
	case protocol.PlayIntro:
		return m.Type, true
	case protocol.CancelSpeech:
		return m.Type, true
	case protocol.SetVoiceMode:
		return m.Type, true
	case protocol.StartListening:
		return m.Type, true
	case protocol.StopListening:
		return m.Type, true
	case protocol.ClearTranscript:
		return m.Type, true
	case protocol.UserInteraction:
		return m.Type, true
	case protocol.VoiceCatalog:
		return m.Type, true
	case protocol.UtteranceDone:
		return m.Type, true
	case protocol.UtteranceError:
		return m.Type, true
	case protocol.RecognitionResultSet:
		return m.Type, true
	case protocol.RecognitionError:
		return m.Type, true
	case protocol.RecognitionEnd:
		return m.Type, true
	case protocol.SpeakUtterance:
		return m.Type, true
	case protocol.CancelAll:
		return m.Type, true
	case protocol.RecognitionStart:
		return m.Type, true
	case protocol.RecognitionStop:
		return m.Type, true
	case protocol.RecognitionAbort:
		return m.Type, true
	case protocol.StateUpdate:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
