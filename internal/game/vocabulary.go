package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/pkg/models"
)

// QuestionType selects how a vocabulary word is asked
type QuestionType string

const (
	// MultipleChoice asks for the English meaning of a Spanish word
	MultipleChoice QuestionType = "multiple_choice"
	// ContextQuestion asks which Spanish word fills the blank in an example sentence
	ContextQuestion QuestionType = "context"
)

const blank = "_______"

// WordSource reads vocabulary from storage
type WordSource interface {
	GetByName(ctx context.Context, name string) (*models.Topic, error)
	GetByTopic(ctx context.Context, topicID int64) ([]models.Word, error)
	GetAll(ctx context.Context) ([]models.Word, error)
}

// VocabularyConfig shapes generated quizzes
type VocabularyConfig struct {
	QuestionCount int
	OptionCount   int
	BasePoints    int
}

// DefaultVocabularyConfig returns the settings used for vocabulary lessons
func DefaultVocabularyConfig() VocabularyConfig {
	return VocabularyConfig{QuestionCount: 8, OptionCount: 4, BasePoints: 10}
}

// VocabularyBuilder generates quizzes from the words of a topic
type VocabularyBuilder struct {
	words WordSource
	cfg   VocabularyConfig
	rnd   *rand.Rand
}

// NewVocabularyBuilder creates a builder
func NewVocabularyBuilder(words WordSource, cfg VocabularyConfig, rnd *rand.Rand) *VocabularyBuilder {
	return &VocabularyBuilder{words: words, cfg: cfg, rnd: rnd}
}

// Build creates a quiz for the topic. Questions alternate between
// meaning and fill-in-the-blank when the word has an example sentence.
func (b *VocabularyBuilder) Build(ctx context.Context, topicName string) (*content.Quiz, error) {
	topic, err := b.words.GetByName(ctx, topicName)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: topic %q has no words", ErrNoWords, topicName)
	}
	if err != nil {
		return nil, err
	}

	words, err := b.words.GetByTopic(ctx, topic.ID)
	if err != nil {
		return nil, err
	}
	if len(words) < 2 {
		return nil, fmt.Errorf("%w: topic %q", ErrNoWords, topicName)
	}

	var others []models.Word
	if len(words) < b.cfg.OptionCount {
		if others, err = b.words.GetAll(ctx); err != nil {
			return nil, err
		}
	}

	b.rnd.Shuffle(len(words), func(i, j int) {
		words[i], words[j] = words[j], words[i]
	})
	picked := words
	if len(picked) > b.cfg.QuestionCount {
		picked = picked[:b.cfg.QuestionCount]
	}

	quiz := &content.Quiz{
		ID:         content.VocabularyGameID(topicName),
		Title:      "Vocabulary: " + topic.Name,
		BasePoints: b.cfg.BasePoints,
	}
	for i, w := range picked {
		qt := MultipleChoice
		if i%2 == 1 && containsFold(w.Example, w.Spanish) {
			qt = ContextQuestion
		}
		quiz.Questions = append(quiz.Questions, b.question(w, words, others, qt))
	}
	return quiz, nil
}

func (b *VocabularyBuilder) question(w models.Word, topicWords, others []models.Word, qt QuestionType) content.Question {
	answer := func(x models.Word) string { return x.English }
	q := content.Question{
		Prompt:        fmt.Sprintf("What does %q mean?", w.Spanish),
		Spanish:       w.Spanish,
		Pronunciation: w.Pronunciation,
	}
	if qt == ContextQuestion {
		answer = func(x models.Word) string { return x.Spanish }
		q.Prompt = replaceWordWithBlank(w.Example, w.Spanish)
		q.Spanish = ""
	}

	options := b.incorrectOptions(w, topicWords, others, answer)
	options = append(options, answer(w))
	correct := len(options) - 1
	b.rnd.Shuffle(len(options), func(i, j int) {
		if i == correct {
			correct = j
		} else if j == correct {
			correct = i
		}
		options[i], options[j] = options[j], options[i]
	})
	q.Options = options
	q.Correct = correct
	return q
}

// incorrectOptions prefers distractors from the same topic and tops up from the rest
func (b *VocabularyBuilder) incorrectOptions(w models.Word, topicWords, others []models.Word, answer func(models.Word) string) []string {
	want := b.cfg.OptionCount - 1
	seen := map[string]bool{strings.ToLower(answer(w)): true}
	options := make([]string, 0, want)

	add := func(pool []models.Word) {
		idx := b.rnd.Perm(len(pool))
		for _, i := range idx {
			if len(options) >= want {
				return
			}
			text := answer(pool[i])
			if pool[i].ID == w.ID || seen[strings.ToLower(text)] {
				continue
			}
			seen[strings.ToLower(text)] = true
			options = append(options, text)
		}
	}
	add(topicWords)
	add(others)
	return options
}

func containsFold(sentence, word string) bool {
	return word != "" && strings.Contains(strings.ToLower(sentence), strings.ToLower(word))
}

// replaceWordWithBlank blanks the first case-insensitive occurrence of word,
// or appends a blank when the word does not occur.
func replaceWordWithBlank(sentence, word string) string {
	lowerSentence, lowerWord := strings.ToLower(sentence), strings.ToLower(word)
	i := strings.Index(lowerSentence, lowerWord)
	if word == "" || i < 0 || len(lowerSentence) != len(sentence) {
		return sentence + " " + blank
	}
	return sentence[:i] + blank + sentence[i+len(lowerWord):]
}
