package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/rapidlearn/audiostory/internal/pkg/persistence"
)

// ErrEmptyStory indicates the completion service produced no usable text
var ErrEmptyStory = errors.New("empty story generated")

// Generator produces story text
type Generator interface {
	Generate(ctx context.Context, topic, doubt, complexity string) (string, error)
}

// Synthesizer voices story text
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Publisher uploads audio and returns its public URL
type Publisher interface {
	Publish(ctx context.Context, data []byte, id string) (string, error)
}

// DB provides story status persistence
type DB interface {
	UpdateStoryText(ctx context.Context, id, text string) error
	UpdateStoryCompleted(ctx context.Context, id, audioURL string, duration int) error
	UpdateStoryFailed(ctx context.Context, id, errMsg string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	DB           DB
	Generator    Generator
	Synthesizer  Synthesizer
	Publisher    Publisher
	StageTimeout time.Duration
}

// Service runs the story generation pipeline
type Service struct {
	data *ServiceData
}

// NewService creates the pipeline service
func NewService(data *ServiceData) (*Service, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	if data.StageTimeout <= 0 {
		data.StageTimeout = time.Minute * 2
	}
	return &Service{data: data}, nil
}

func validate(data *ServiceData) error {
	if data.DB == nil {
		return errors.New("no DB")
	}
	if data.Generator == nil {
		return errors.New("no generator")
	}
	if data.Synthesizer == nil {
		return errors.New("no synthesizer")
	}
	if data.Publisher == nil {
		return errors.New("no publisher")
	}
	return nil
}

// StartGeneration runs the pipeline for the story in a detached goroutine
// the caller is not blocked and never observes stage errors directly -
// outcomes land in the story record only
func (s *Service) StartGeneration(story *persistence.Story) {
	go func() {
		if err := s.run(context.Background(), story); err != nil {
			goapp.Log.Error().Err(err).Str("ID", story.ID).Msg("story generation failed")
			s.markFailed(story.ID, err)
		}
	}()
}

// run performs the four stages, one writer per story id
func (s *Service) run(ctx context.Context, story *persistence.Story) error {
	lg := goapp.Log.With().Str("ID", story.ID).Logger()
	start := time.Now()
	lg.Info().Msg("starting story generation")

	text, err := s.generate(ctx, &lg, story)
	if err != nil {
		return err
	}
	if err := s.withStageTimeout(ctx, func(ctx context.Context) error {
		return s.data.DB.UpdateStoryText(ctx, story.ID, text)
	}); err != nil {
		return fmt.Errorf("can't save story text: %w", err)
	}

	var audio []byte
	if err := s.withStageTimeout(ctx, func(ctx context.Context) error {
		var err error
		audio, err = s.data.Synthesizer.Synthesize(ctx, text)
		return err
	}); err != nil {
		return fmt.Errorf("can't synthesize narration: %w", err)
	}
	lg.Info().Int("bytes", len(audio)).Msg("narration ready")

	var audioURL string
	if err := s.withStageTimeout(ctx, func(ctx context.Context) error {
		var err error
		audioURL, err = s.data.Publisher.Publish(ctx, audio, story.ID)
		return err
	}); err != nil {
		return fmt.Errorf("can't publish audio: %w", err)
	}
	lg.Info().Str("url", audioURL).Msg("audio published")

	duration := estimateDuration(audio)
	if err := s.withStageTimeout(ctx, func(ctx context.Context) error {
		return s.data.DB.UpdateStoryCompleted(ctx, story.ID, audioURL, duration)
	}); err != nil {
		return fmt.Errorf("can't save result: %w", err)
	}
	lg.Info().Dur("took", time.Since(start)).Int("duration", duration).Msg("story generation completed")
	return nil
}

func (s *Service) generate(ctx context.Context, lg *zerolog.Logger, story *persistence.Story) (string, error) {
	var text string
	if err := s.withStageTimeout(ctx, func(ctx context.Context) error {
		var err error
		text, err = s.data.Generator.Generate(ctx, story.Topic, story.Doubt, story.Complexity)
		return err
	}); err != nil {
		return "", fmt.Errorf("can't generate story: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyStory
	}
	lg.Info().Int("chars", len(text)).Msg("story text ready")
	return text, nil
}

// markFailed is best-effort - a secondary failure is logged only
func (s *Service) markFailed(id string, runErr error) {
	ctx, cancelF := context.WithTimeout(context.Background(), s.data.StageTimeout)
	defer cancelF()
	if err := s.data.DB.UpdateStoryFailed(ctx, id, runErr.Error()); err != nil {
		goapp.Log.Error().Err(err).Str("ID", id).Msg("can't save failure status")
	}
}

func (s *Service) withStageTimeout(ctx context.Context, f func(ctx context.Context) error) error {
	ctx, cancelF := context.WithTimeout(ctx, s.data.StageTimeout)
	defer cancelF()
	return f(ctx)
}

// estimateDuration derives a displayed duration estimate from audio size
// the formula matches what clients already expect, it is not the exact
// playback duration
func estimateDuration(audio []byte) int {
	return int(math.Round(float64(len(audio)) / 24000 * 8))
}
