package models

// LessonKind is the category a lesson belongs to
type LessonKind string

const (
	LessonVocabulary LessonKind = "vocabulary"
	LessonGrammar    LessonKind = "grammar"
	LessonSpeaking   LessonKind = "speaking"
	LessonListening  LessonKind = "listening"
	LessonGame       LessonKind = "game"
)

// LanguageLevel is the difficulty band of a lesson
type LanguageLevel string

const (
	Beginner     LanguageLevel = "beginner"
	Intermediate LanguageLevel = "intermediate"
	Advanced     LanguageLevel = "advanced"
)

// Lesson is a playable unit identified by a level id
type Lesson struct {
	ID           string        `json:"id" yaml:"id"`
	Title        string        `json:"title" yaml:"title"`
	Description  string        `json:"description" yaml:"description"`
	Kind         LessonKind    `json:"kind" yaml:"kind"`
	Level        LanguageLevel `json:"level" yaml:"level"`
	Prerequisite string        `json:"prerequisite,omitempty" yaml:"prerequisite"`
	GameID       string        `json:"game_id,omitempty" yaml:"game"`
	Topic        string        `json:"topic,omitempty" yaml:"topic"`
}
