package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/example/hablo/internal/logger"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNoSpeech means the audio held no recognizable speech
	ErrNoSpeech = errors.New("no-speech")
	// ErrUnavailable means recognition is disabled or the backend is down
	ErrUnavailable = errors.New("recognizer unavailable")
)

// Recognizer turns one utterance of audio into a transcript
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, mimeType string) (Transcript, error)
	Close() error
}

// Transcript is the best guess for an utterance
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
}

// ErrorCode maps a recognition error to the short code clients display
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSpeech):
		return "no-speech"
	case errors.Is(err, ErrUnavailable):
		return "not-allowed"
	case errors.Is(err, context.DeadlineExceeded):
		return "network"
	default:
		return "aborted"
	}
}

// GoogleConfig configures the Cloud Speech recognizer
type GoogleConfig struct {
	CredentialsFile string
	LanguageCode    string
	SampleRateHertz int
	Timeout         time.Duration
}

// DefaultGoogleConfig returns settings for short Spanish answers
func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{
		LanguageCode: DefaultLang,
		Timeout:      30 * time.Second,
	}
}

type googleRecognizer struct {
	cfg    GoogleConfig
	client *speechapi.Client
	log    *logger.Logger
}

// NewGoogleRecognizer dials Cloud Speech with the given credentials, or
// application default credentials when no file is set.
func NewGoogleRecognizer(ctx context.Context, cfg GoogleConfig, log *logger.Logger) (Recognizer, error) {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = DefaultLang
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := speechapi.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &googleRecognizer{cfg: cfg, client: client, log: log.With("service", "speech")}, nil
}

func (g *googleRecognizer) Close() error {
	return g.client.Close()
}

func (g *googleRecognizer) Recognize(ctx context.Context, audio []byte, mimeType string) (Transcript, error) {
	if len(audio) == 0 {
		return Transcript{}, ErrNoSpeech
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encodingFor(mimeType),
			SampleRateHertz: int32(g.cfg.SampleRateHertz),
			LanguageCode:    g.cfg.LanguageCode,
			MaxAlternatives: 1,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := g.client.Recognize(ctx, req)
	if err != nil {
		g.log.Warn("speech recognition failed", "error", err)
		switch status.Code(err) {
		case codes.Unavailable, codes.PermissionDenied, codes.Unauthenticated:
			return Transcript{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Transcript{}, fmt.Errorf("recognize: %w", err)
	}

	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 || strings.TrimSpace(alts[0].GetTranscript()) == "" {
			continue
		}
		return Transcript{
			Text:       strings.TrimSpace(alts[0].GetTranscript()),
			Confidence: alts[0].GetConfidence(),
		}, nil
	}
	return Transcript{}, ErrNoSpeech
}

func encodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3"), strings.Contains(m, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg"), strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// Disabled is the recognizer used when server-side recognition is off
type Disabled struct{}

func (Disabled) Recognize(context.Context, []byte, string) (Transcript, error) {
	return Transcript{}, ErrUnavailable
}

func (Disabled) Close() error { return nil }
