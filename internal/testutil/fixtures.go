package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/stretchr/testify/require"
)

// LogEntry is one message received by a RecordingSink.
type LogEntry struct {
	Message string
	Group   string
	Stream  string
}

// RecordingSink remembers every message instead of shipping it.
type RecordingSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (s *RecordingSink) Log(_ context.Context, message, group, stream string) *cloudwatchlogs.PutLogEventsOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, LogEntry{Message: message, Group: group, Stream: stream})
	return &cloudwatchlogs.PutLogEventsOutput{}
}

// Entries returns a copy of the recorded messages.
func (s *RecordingSink) Entries() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.entries...)
}

// PNG encodes a tiny opaque image.
func PNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
