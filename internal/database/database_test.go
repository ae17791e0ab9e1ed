package database

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/hablo/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect("sqlite3", filepath.Join(t.TempDir(), "hablo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createUser(t *testing.T, db *sqlx.DB, id, email string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Email: email, PasswordHash: "hash", NotificationEnabled: true, NotificationHour: 18}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, db, "u1", "  Ana@Example.com ")

	got, err := repo.GetByEmail(ctx, "ana@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Nil(t, got.TelegramChatID)

	err = repo.Create(ctx, &models.User{ID: "u2", Email: "ANA@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	chat := int64(42)
	require.NoError(t, repo.UpdateNotifications(ctx, "u1", true, 9, &chat))
	users, err := repo.GetUsersForNotification(ctx, 9)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(42), *users[0].TelegramChatID)

	assert.ErrorIs(t, repo.UpdateNotifications(ctx, "nobody", true, 9, nil), ErrNotFound)
}

func TestDocumentRepositorySetMergeUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, "users", "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Update(ctx, "users", "u1", map[string]interface{}{"a": 1})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Set(ctx, "users", "u1", map[string]interface{}{"email": "a@b.c", "score": 1}, false))
	require.NoError(t, repo.Set(ctx, "users", "u1", map[string]interface{}{"score": 5}, true))

	doc, err := repo.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `"a@b.c"`, string(doc["email"]))
	assert.JSONEq(t, `5`, string(doc["score"]))

	// Without merge the whole document is replaced.
	require.NoError(t, repo.Set(ctx, "users", "u1", map[string]interface{}{"score": 7}, false))
	doc, err = repo.Get(ctx, "users", "u1")
	require.NoError(t, err)
	_, hasEmail := doc["email"]
	assert.False(t, hasEmail)

	require.NoError(t, repo.Update(ctx, "users", "u1", map[string]interface{}{"nested": map[string]int{"x": 1}}))
	doc, err = repo.Get(ctx, "users", "u1")
	require.NoError(t, err)
	var nested map[string]int
	require.NoError(t, json.Unmarshal(doc["nested"], &nested))
	assert.Equal(t, 1, nested["x"])
	assert.JSONEq(t, `7`, string(doc["score"]))

	keys, err := repo.Keys(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, keys)
}

func TestTopicAndWordRepositories(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	topics := NewTopicRepository(db)
	words := NewWordRepository(db)

	family, err := topics.GetOrCreate(ctx, "Family")
	require.NoError(t, err)
	again, err := topics.GetOrCreate(ctx, "family")
	require.NoError(t, err)
	assert.Equal(t, family.ID, again.ID)

	w := &models.Word{Spanish: "madre", English: "mother", TopicID: family.ID, Difficulty: 1}
	require.NoError(t, words.Create(ctx, w))
	assert.NotZero(t, w.ID)

	w.English = "mom"
	require.NoError(t, words.Update(ctx, w))

	got, err := words.GetBySpanishAndTopic(ctx, "Madre", family.ID)
	require.NoError(t, err)
	assert.Equal(t, "mom", got.English)

	list, err := words.GetByTopic(ctx, family.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = words.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWordProgressRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createUser(t, db, "u1", "a@b.c")

	topic, err := NewTopicRepository(db).GetOrCreate(ctx, "family")
	require.NoError(t, err)
	words := NewWordRepository(db)
	padre := &models.Word{Spanish: "padre", English: "father", TopicID: topic.ID}
	madre := &models.Word{Spanish: "madre", English: "mother", TopicID: topic.ID}
	require.NoError(t, words.Create(ctx, padre))
	require.NoError(t, words.Create(ctx, madre))

	repo := NewWordProgressRepository(db)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	p := &models.WordProgress{
		UserID:         "u1",
		WordID:         padre.ID,
		LastReviewDate: now,
		NextReviewDate: now.Add(-time.Hour),
		Interval:       1,
		EasinessFactor: 2.5,
	}
	require.NoError(t, repo.Upsert(ctx, p))
	firstID := p.ID

	p.Repetitions = 1
	require.NoError(t, repo.Upsert(ctx, p))
	assert.Equal(t, firstID, p.ID)

	due, err := repo.GetDueForUser(ctx, "u1", now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Repetitions)

	unseen, err := repo.GetUnseenWords(ctx, "u1", topic.ID, 10)
	require.NoError(t, err)
	require.Len(t, unseen, 1)
	assert.Equal(t, "madre", unseen[0].Spanish)

	stats, err := repo.GetUserStatistics(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalWords)
	assert.Equal(t, 1, stats.DueToday)
	assert.InDelta(t, 2.5, stats.AvgEasinessFactor, 0.001)
}

func TestGameResultsAndStatistics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createUser(t, db, "u1", "a@b.c")

	results := NewGameResultRepository(db)
	for _, r := range []models.GameResult{
		{UserID: "u1", GameID: "numbers", LevelID: "level3", Outcome: "level_complete", Score: 100, Correct: 8},
		{UserID: "u1", GameID: "numbers", LevelID: "level3", Outcome: "game_over", Score: 20, Correct: 2, Incorrect: 3},
		{UserID: "u1", GameID: "greetings", LevelID: "level1", Outcome: "level_complete", Score: 60, Correct: 6},
	} {
		r := r
		require.NoError(t, results.Create(ctx, &r))
	}

	recent, err := results.GetByUserID(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	stats, err := NewStatisticsRepository(db).GetUserStatistics(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, models.Statistics{
		GameID: "numbers", Sessions: 2, Completed: 1, BestScore: 100, TotalCorrect: 10, TotalMistakes: 3,
	}, stats[0])
}
