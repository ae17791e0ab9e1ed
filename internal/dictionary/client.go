package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/hablo/internal/logger"
)

// DefaultBaseURL is the free dictionary endpoint for Spanish entries
const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/es"

var (
	// ErrNotFound means the dictionary has no entry for the word
	ErrNotFound = errors.New("definition not found")
	// ErrUnavailable covers network failures and unexpected responses
	ErrUnavailable = errors.New("dictionary unavailable")
)

type Phonetic struct {
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

type Definition struct {
	Definition string   `json:"definition"`
	Example    string   `json:"example,omitempty"`
	Synonyms   []string `json:"synonyms"`
	Antonyms   []string `json:"antonyms"`
}

type Meaning struct {
	PartOfSpeech string       `json:"partOfSpeech"`
	Definitions  []Definition `json:"definitions"`
	Synonyms     []string     `json:"synonyms"`
	Antonyms     []string     `json:"antonyms"`
}

// Entry is one dictionary result for a word
type Entry struct {
	Word       string     `json:"word"`
	Phonetic   string     `json:"phonetic,omitempty"`
	Phonetics  []Phonetic `json:"phonetics"`
	Meanings   []Meaning  `json:"meanings"`
	SourceURLs []string   `json:"sourceUrls"`
}

// Problem is the body the API sends with a 404
type Problem struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Resolution string `json:"resolution"`
}

// LookupError carries the API's explanation for a missing word
type LookupError struct {
	Word    string
	Problem Problem
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %s", e.Word, e.Problem.Title)
}

func (e *LookupError) Unwrap() error { return ErrNotFound }

// Client looks up Spanish definitions
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// New creates a dictionary client; an empty baseURL uses DefaultBaseURL
func New(baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With("service", "dictionary"),
	}
}

// Lookup fetches the entries for a word
func (c *Client) Lookup(ctx context.Context, word string) ([]Entry, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, &LookupError{Word: word, Problem: Problem{Title: "No Definitions Found"}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(word), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("dictionary request failed", "word", word, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		var problem Problem
		if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil {
			problem.Title = "No Definitions Found"
		}
		return nil, &LookupError{Word: word, Problem: problem}
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.log.Warn("dictionary returned unexpected status", "word", word, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	return entries, nil
}
