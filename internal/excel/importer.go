package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath            string // Path to the Excel or CSV file
	SpanishColumn       string // Column with the Spanish word
	EnglishColumn       string // Column with the translation
	PronunciationColumn string // Column with the pronunciation
	ExampleColumn       string // Column with an example sentence
	TopicColumn         string // Column with the topic
	DifficultyColumn    string // Column with the difficulty
	SheetName           string // Sheet to import, the active sheet when empty
	StartRow            int    // The row to start importing from (1-based index)
	DefaultTopic        string // Topic for rows that name none
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SpanishColumn:       "A",
		EnglishColumn:       "B",
		PronunciationColumn: "C",
		ExampleColumn:       "D",
		TopicColumn:         "E",
		DifficultyColumn:    "F",
		StartRow:            2,
		DefaultTopic:        "general",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int      `json:"total_processed"`
	TopicsCreated  int      `json:"topics_created"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors"`
}

// Row is one vocabulary entry read from a file or seed content
type Row struct {
	Spanish       string
	English       string
	Pronunciation string
	Example       string
	Topic         string
	Difficulty    int
}

// TopicStore creates and finds topics
type TopicStore interface {
	GetAll(ctx context.Context) ([]models.Topic, error)
	Create(ctx context.Context, topic *models.Topic) error
}

// WordStore creates and updates words
type WordStore interface {
	GetBySpanishAndTopic(ctx context.Context, spanish string, topicID int64) (*models.Word, error)
	Create(ctx context.Context, word *models.Word) error
	Update(ctx context.Context, word *models.Word) error
}

// Importer loads vocabulary into the database
type Importer struct {
	topics TopicStore
	words  WordStore
	log    *logger.Logger
}

// NewImporter creates an importer
func NewImporter(topics TopicStore, words WordStore, log *logger.Logger) *Importer {
	return &Importer{topics: topics, words: words, log: log.With("service", "import")}
}

// ImportFile imports words from an Excel or CSV file
func (im *Importer) ImportFile(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	var (
		rows []Row
		err  error
	)
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		rows, err = readCSV(cfg)
	} else {
		rows, err = readExcel(cfg)
	}
	if err != nil {
		return nil, err
	}
	result, err := im.ImportRows(ctx, rows)
	if err != nil {
		return nil, err
	}
	im.log.Info("import finished", "file", filepath.Base(cfg.FilePath),
		"created", result.Created, "updated", result.Updated, "errors", len(result.Errors))
	return result, nil
}

// ImportRows upserts rows by (spanish, topic). Rows with problems are
// reported in the result and do not stop the import.
func (im *Importer) ImportRows(ctx context.Context, rows []Row) (*ImportResult, error) {
	existing, err := im.topics.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing topics: %w", err)
	}
	topicMap := make(map[string]int64, len(existing))
	for _, t := range existing {
		topicMap[strings.ToLower(t.Name)] = t.ID
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		result.TotalProcessed++
		if err := im.importRow(ctx, row, topicMap, result); err != nil {
			if errors.Is(err, errSkip) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return result, nil
}

// SeedRows turns embedded vocabulary sets into import rows
func SeedRows(sets []content.VocabularySet) []Row {
	var rows []Row
	for _, set := range sets {
		for _, w := range set.Words {
			rows = append(rows, Row{
				Spanish:       w.Spanish,
				English:       w.English,
				Pronunciation: w.Pronunciation,
				Example:       w.Example,
				Topic:         set.Topic,
				Difficulty:    w.Difficulty,
			})
		}
	}
	return rows
}

var errSkip = errors.New("skipping row")

func (im *Importer) importRow(ctx context.Context, row Row, topicMap map[string]int64, result *ImportResult) error {
	spanish := cleanWord(row.Spanish)
	english := cleanWord(row.English)
	if spanish == "" && english == "" {
		return errSkip
	}
	if spanish == "" {
		return fmt.Errorf("word cannot be empty")
	}
	if english == "" {
		return fmt.Errorf("translation cannot be empty")
	}

	topicID, err := im.topicID(ctx, row.Topic, topicMap, result)
	if err != nil {
		return err
	}

	difficulty := row.Difficulty
	if difficulty < 1 || difficulty > 5 {
		difficulty = 1
	}

	word, err := im.words.GetBySpanishAndTopic(ctx, spanish, topicID)
	switch {
	case err == nil:
		word.English = english
		word.Pronunciation = strings.TrimSpace(row.Pronunciation)
		word.Example = strings.TrimSpace(row.Example)
		word.Difficulty = difficulty
		if err := im.words.Update(ctx, word); err != nil {
			return err
		}
		result.Updated++
	case errors.Is(err, database.ErrNotFound):
		word = &models.Word{
			Spanish:       spanish,
			English:       english,
			Pronunciation: strings.TrimSpace(row.Pronunciation),
			Example:       strings.TrimSpace(row.Example),
			TopicID:       topicID,
			Difficulty:    difficulty,
		}
		if err := im.words.Create(ctx, word); err != nil {
			return err
		}
		result.Created++
	default:
		return err
	}
	return nil
}

func (im *Importer) topicID(ctx context.Context, name string, topicMap map[string]int64, result *ImportResult) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("topic cannot be empty")
	}
	key := strings.ToLower(name)
	if id, ok := topicMap[key]; ok {
		return id, nil
	}
	topic := &models.Topic{Name: name}
	if err := im.topics.Create(ctx, topic); err != nil {
		return 0, err
	}
	topicMap[key] = topic.ID
	result.TopicsCreated++
	return topic.ID, nil
}

func readExcel(cfg ImportConfig) ([]Row, error) {
	f, err := excelize.OpenFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	var rows []Row
	for i, cell := range cells {
		if i < cfg.StartRow-1 {
			continue
		}
		rows = append(rows, rowFromCells(cell, cfg, cfg.DefaultTopic))
	}
	return rows, nil
}

// readCSV reads the same column layout as Excel. A row with only its first
// cell filled starts a new topic for the rows below it.
func readCSV(cfg ImportConfig) ([]Row, error) {
	file, err := os.Open(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []Row
	currentTopic := cfg.DefaultTopic
	rowNum := 0
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if rowNum < cfg.StartRow {
			continue
		}
		if isTopicHeader(cells) {
			currentTopic = strings.Trim(strings.TrimSpace(cells[0]), "\"")
			continue
		}
		rows = append(rows, rowFromCells(cells, cfg, currentTopic))
	}
	return rows, nil
}

func isTopicHeader(cells []string) bool {
	if len(cells) == 0 || strings.TrimSpace(cells[0]) == "" {
		return false
	}
	for _, c := range cells[1:] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func rowFromCells(cells []string, cfg ImportConfig, fallbackTopic string) Row {
	row := Row{
		Spanish:       cell(cells, cfg.SpanishColumn),
		English:       cell(cells, cfg.EnglishColumn),
		Pronunciation: cell(cells, cfg.PronunciationColumn),
		Example:       cell(cells, cfg.ExampleColumn),
		Topic:         cell(cells, cfg.TopicColumn),
	}
	if row.Topic == "" {
		row.Topic = fallbackTopic
	}
	row.Difficulty, _ = strconv.Atoi(cell(cells, cfg.DifficultyColumn))
	return row
}

func cell(cells []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}

// cleanWord drops parenthesized notes, e.g. "ir (fui, ido)"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
