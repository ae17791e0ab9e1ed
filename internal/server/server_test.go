package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/hablo/internal/auth"
	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/dictionary"
	"github.com/example/hablo/internal/excel"
	"github.com/example/hablo/internal/flashcards"
	"github.com/example/hablo/internal/game"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/internal/progress"
	"github.com/example/hablo/internal/speech"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	text string
	err  error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, audio []byte, mimeType string) (speech.Transcript, error) {
	if f.err != nil {
		return speech.Transcript{}, f.err
	}
	return speech.Transcript{Text: f.text, Confidence: 0.9}, nil
}

func (f *fakeRecognizer) Close() error { return nil }

type fakeDictionary struct{}

func (fakeDictionary) Lookup(ctx context.Context, word string) ([]dictionary.Entry, error) {
	if word == "zzz" {
		return nil, &dictionary.LookupError{Word: word, Problem: dictionary.Problem{Title: "No Definitions Found"}}
	}
	return []dictionary.Entry{{Word: word}}, nil
}

type testAPI struct {
	handler    http.Handler
	recognizer *fakeRecognizer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	ctx := context.Background()

	db, err := database.Connect("sqlite3", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	catalog, err := content.Load()
	require.NoError(t, err)

	topics := database.NewTopicRepository(db)
	words := database.NewWordRepository(db)
	_, err = excel.NewImporter(topics, words, log).ImportRows(ctx, excel.SeedRows(catalog.Vocabulary()))
	require.NoError(t, err)

	docs := database.NewDocumentRepository(db)
	persister := progress.NewPersister(progress.DocumentWriter{Docs: docs}, 5*time.Second, log)
	t.Cleanup(func() { _ = persister.Close(context.Background()) })
	store := progress.NewStore(docs, persister, catalog.Successors, log)

	results := database.NewGameResultRepository(db)
	vocab := game.NewVocabularyBuilder(database.NewVocabularyStore(db), game.DefaultVocabularyConfig(), rand.New(rand.NewSource(1)))
	manager := game.NewManager(catalog, store, results, vocab, log)

	users := database.NewUserRepository(db)
	recognizer := &fakeRecognizer{text: "Una mesa para dos, por favor"}

	srv, err := New(Options{Version: "test"}, Deps{
		Identity:   auth.NewService(users, auth.NewMemoryDenylist(), "secret", time.Hour, log),
		Progress:   store,
		Games:      manager,
		Catalog:    catalog,
		Recognizer: recognizer,
		Dictionary: fakeDictionary{},
		Flashcards: flashcards.NewService(database.NewWordProgressRepository(db), words, topics, log),
		Topics:     topics,
		Words:      words,
		Users:      users,
		Statistics: database.NewStatisticsRepository(db),
		Results:    results,
	}, log)
	require.NoError(t, err)
	return &testAPI{handler: srv.Handler(), recognizer: recognizer}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testAPI) signup(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/signup", "", gin.H{"email": email, "password": "secreto"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env ErrorEnvelope
	decode(t, w, &env)
	return env.Error.Code
}

func TestHealthAndRoot(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/healthcheck", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = api.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorCode(t, w))

	w = api.do(t, http.MethodPost, "/api/signup", "", gin.H{"email": "ana@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := api.signup(t, "ana@example.com")

	w = api.do(t, http.MethodPost, "/api/signup", "", gin.H{"email": "ana@example.com", "password": "secreto"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email_taken", errorCode(t, w))

	w = api.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "ana@example.com", "password": "wrong!!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, w))

	w = api.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		Progress struct {
			Lives          int      `json:"lives"`
			UnlockedLevels []string `json:"unlockedLevels"`
		} `json:"progress"`
	}
	decode(t, w, &me)
	assert.Equal(t, "ana@example.com", me.User.Email)
	assert.Equal(t, 3, me.Progress.Lives)
	assert.Equal(t, []string{"level1"}, me.Progress.UnlockedLevels)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(t, http.MethodPut, "/api/me/notifications", token, gin.H{"enabled": true, "hour": 25})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(t, http.MethodPut, "/api/me/notifications", token, gin.H{"enabled": true, "hour": 9, "telegram_chat_id": 77})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"telegram_chat_id":77`)

	w = api.do(t, http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "ANA@example.com", "password": "secreto"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProgressEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ana@example.com")

	type record struct {
		TotalScore      int      `json:"totalScore"`
		Lives           int      `json:"lives"`
		UnlockedLevels  []string `json:"unlockedLevels"`
		CompletedLevels []string `json:"completedLevels"`
		CurrentLevel    int      `json:"currentLevel"`
	}
	var p record

	w := api.do(t, http.MethodPost, "/api/progress/score", token, gin.H{"points": 15})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &p)
	assert.Equal(t, 15, p.TotalScore)

	w = api.do(t, http.MethodPost, "/api/progress/score", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/progress/lives", token, gin.H{"delta": -5})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &p)
	assert.Equal(t, 0, p.Lives)

	w = api.do(t, http.MethodPost, "/api/progress/unlock", token, gin.H{"level_id": "Level 9!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/progress/complete", token, gin.H{"level_id": "level1", "score": 20})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &p)
	assert.Equal(t, 35, p.TotalScore)
	assert.Equal(t, []string{"level1"}, p.CompletedLevels)
	assert.Equal(t, []string{"level1", "level2"}, p.UnlockedLevels)
	assert.Equal(t, 2, p.CurrentLevel)

	w = api.do(t, http.MethodPost, "/api/progress/flush", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/api/progress/reset", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &p)
	assert.Equal(t, 0, p.TotalScore)
	assert.Equal(t, []string{"level1"}, p.UnlockedLevels)
}

func TestLearnShowsLocks(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ana@example.com")

	w := api.do(t, http.MethodGet, "/api/learn", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Lessons []struct {
			ID       string `json:"id"`
			Locked   bool   `json:"locked"`
			Playable bool   `json:"playable"`
		} `json:"lessons"`
		Categories map[string][]json.RawMessage `json:"categories"`
	}
	decode(t, w, &resp)
	locked := map[string]bool{}
	for _, l := range resp.Lessons {
		locked[l.ID] = l.Locked
	}
	assert.False(t, locked["level1"])
	assert.True(t, locked["level2"])
	assert.False(t, locked["speaking_1"])
	assert.Len(t, resp.Categories["vocabulary"], 4)

	w = api.do(t, http.MethodGet, "/api/practice", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "roleplay_restaurant")
	assert.NotContains(t, w.Body.String(), "grammar_subjunctive")
}

func TestGameSessionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ana@example.com")

	w := api.do(t, http.MethodPost, "/api/games/level3/sessions", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "lesson_locked", errorCode(t, w))

	w = api.do(t, http.MethodPost, "/api/games/nope/sessions", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_lesson", errorCode(t, w))

	w = api.do(t, http.MethodPost, "/api/games/level1/sessions", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var state game.State
	decode(t, w, &state)
	assert.Equal(t, game.StatusPlaying, state.Status)
	assert.Len(t, state.Cards, 12)
	path := "/api/sessions/" + state.SessionID

	w = api.do(t, http.MethodPost, path+"/answer", token, gin.H{"first": "spanish-1", "second": "english-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out game.Outcome
	decode(t, w, &out)
	assert.True(t, out.Correct)
	assert.Equal(t, 10, out.Points)

	w = api.do(t, http.MethodPost, path+"/timeout", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_timed", errorCode(t, w))

	other := api.signup(t, "luis@example.com")
	w = api.do(t, http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPost, path+"/restart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var restarted game.State
	decode(t, w, &restarted)
	assert.Equal(t, 0, restarted.Matched)
	assert.Equal(t, 3, restarted.Lives)

	w = api.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"game_id":"greetings"`)
}

func TestTypedAnswerSession(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ana@example.com")

	w := api.do(t, http.MethodPost, "/api/games/speaking_1/sessions", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var state game.State
	decode(t, w, &state)
	require.NotNil(t, state.Question)
	assert.True(t, state.Question.FreeText)

	w = api.do(t, http.MethodPost, "/api/sessions/"+state.SessionID+"/answer", token, gin.H{"text": "NIÑO"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out game.Outcome
	decode(t, w, &out)
	assert.True(t, out.Correct)
	assert.Equal(t, 1, out.State.Question.Index)
}

func TestVocabularySession(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ana@example.com")

	w := api.do(t, http.MethodPost, "/api/games/vocabulary_family/sessions", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var state game.State
	decode(t, w, &state)
	require.NotNil(t, state.Question)
	assert.Len(t, state.Question.Options, 4)
}

func TestSpeechEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ana@example.com")

	w := api.do(t, http.MethodPost, "/api/speech/match", token, gin.H{
		"transcript": "una mesa para dos por favor",
		"candidates": []string{"La cuenta, por favor", "Una mesa para dos, por favor"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var m struct {
		Match     speech.Match `json:"match"`
		Threshold float64      `json:"threshold"`
	}
	decode(t, w, &m)
	assert.Equal(t, 1, m.Match.Index)
	assert.True(t, m.Match.Accepted)
	assert.Equal(t, 0.7, m.Threshold)

	w = api.do(t, http.MethodGet, "/api/speech/utterance?text=Hola&voice=Monica", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var u speech.Utterance
	decode(t, w, &u)
	assert.Equal(t, speech.Utterance{Text: "Hola", Lang: "es-ES", Rate: 0.9, Voice: "Monica"}, u)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	_, _ = part.Write([]byte("fake-audio"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/speech/recognize", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Una mesa para dos")

	api.recognizer.err = speech.ErrNoSpeech
	req = httptest.NewRequest(http.MethodPost, "/api/speech/recognize", bytes.NewReader([]byte("silence")))
	req.Header.Set("Content-Type", "audio/webm")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "no-speech", errorCode(t, rec))
}

func TestDictionaryAndFlashcards(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ana@example.com")

	w := api.do(t, http.MethodGet, "/api/dictionary/casa", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/api/dictionary/zzz", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "definition_not_found", errorCode(t, w))

	w = api.do(t, http.MethodGet, "/api/vocabulary/topics", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"family"`)

	w = api.do(t, http.MethodGet, "/api/flashcards/due?limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var due struct {
		Cards []flashcards.Card `json:"cards"`
	}
	decode(t, w, &due)
	require.Len(t, due.Cards, 5)

	wordID := due.Cards[0].Word.ID
	path := "/api/flashcards/" + jsonNumber(wordID) + "/review"
	w = api.do(t, http.MethodPost, path, token, gin.H{"quality": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(t, http.MethodPost, path, token, gin.H{"quality": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"repetitions":1`)

	w = api.do(t, http.MethodGet, "/api/vocabulary/topics/abc/words", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
