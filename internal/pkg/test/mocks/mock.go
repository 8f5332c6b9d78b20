package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rapidlearn/audiostory/internal/pkg/persistence"
)

// DB is stories repository mock
type DB struct{ mock.Mock }

func (m *DB) InsertStory(ctx context.Context, item *persistence.Story) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) LoadStory(ctx context.Context, id string) (*persistence.Story, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Story](args.Get(0)), args.Error(1)
}

func (m *DB) ListStories(ctx context.Context, ownerID string, limit int) ([]*persistence.Story, error) {
	args := m.Called(ctx, ownerID, limit)
	return to[[]*persistence.Story](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateStoryText(ctx context.Context, id, text string) error {
	args := m.Called(ctx, id, text)
	return args.Error(0)
}

func (m *DB) UpdateStoryCompleted(ctx context.Context, id, audioURL string, duration int) error {
	args := m.Called(ctx, id, audioURL, duration)
	return args.Error(0)
}

func (m *DB) UpdateStoryFailed(ctx context.Context, id, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *DB) DeleteStory(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// Generator is completion client mock
type Generator struct{ mock.Mock }

func (m *Generator) Generate(ctx context.Context, topic, doubt, complexity string) (string, error) {
	args := m.Called(ctx, topic, doubt, complexity)
	return args.String(0), args.Error(1)
}

// Synthesizer is voice client mock
type Synthesizer struct{ mock.Mock }

func (m *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	args := m.Called(ctx, text)
	return to[[]byte](args.Get(0)), args.Error(1)
}

// Publisher is object storage mock
type Publisher struct{ mock.Mock }

func (m *Publisher) Publish(ctx context.Context, data []byte, id string) (string, error) {
	args := m.Called(ctx, data, id)
	return args.String(0), args.Error(1)
}

func (m *Publisher) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Pipeline is generation starter mock
type Pipeline struct{ mock.Mock }

func (m *Pipeline) StartGeneration(story *persistence.Story) {
	m.Called(story)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
