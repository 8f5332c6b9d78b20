package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{name: "simple", id: "1", want: "stories/1/story-1.mp3"},
		{name: "uuid", id: "0f1e2d3c", want: "stories/0f1e2d3c/story-0f1e2d3c.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName(tt.id))
		})
	}
}
