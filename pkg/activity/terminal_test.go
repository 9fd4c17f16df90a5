package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/useridle/pkg/idle"
)

func TestTerminalDecoder_Decode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []idle.ActivityKind
	}{
		{
			name:  "printable text",
			input: "hello",
			want:  []idle.ActivityKind{idle.KindKeyDown, idle.KindKeyPress},
		},
		{
			name:  "control key only",
			input: "\x03",
			want:  []idle.ActivityKind{idle.KindKeyDown},
		},
		{
			name:  "enter and backspace",
			input: "\r\x7f",
			want:  []idle.ActivityKind{idle.KindKeyDown},
		},
		{
			name:  "utf-8 text",
			input: "é",
			want:  []idle.ActivityKind{idle.KindKeyDown, idle.KindKeyPress},
		},
		{
			name:  "arrow key",
			input: "\x1b[A",
			want:  []idle.ActivityKind{idle.KindKeyDown},
		},
		{
			name:  "function key with parameters",
			input: "\x1b[15~",
			want:  []idle.ActivityKind{idle.KindKeyDown},
		},
		{
			name:  "application mode arrow",
			input: "\x1bOB",
			want:  []idle.ActivityKind{idle.KindKeyDown},
		},
		{
			name:  "lone escape",
			input: "\x1b",
			want:  []idle.ActivityKind{idle.KindKeyDown},
		},
		{
			name:  "alt+x",
			input: "\x1bx",
			want:  []idle.ActivityKind{idle.KindKeyDown},
		},
		{
			name:  "sgr left press",
			input: "\x1b[<0;10;5M",
			want:  []idle.ActivityKind{idle.KindPointerDown},
		},
		{
			name:  "sgr release is not activity",
			input: "\x1b[<0;10;5m",
			want:  nil,
		},
		{
			name:  "sgr motion",
			input: "\x1b[<35;11;5M",
			want:  []idle.ActivityKind{idle.KindPointerMove},
		},
		{
			name:  "sgr drag",
			input: "\x1b[<32;11;5M",
			want:  []idle.ActivityKind{idle.KindPointerMove},
		},
		{
			name:  "sgr wheel",
			input: "\x1b[<64;1;1M\x1b[<65;1;1M",
			want:  []idle.ActivityKind{idle.KindWheel},
		},
		{
			name:  "x10 press",
			input: "\x1b[M !!",
			want:  []idle.ActivityKind{idle.KindPointerDown},
		},
		{
			name:  "x10 release",
			input: "\x1b[M#!!",
			want:  nil,
		},
		{
			name:  "x10 wheel",
			input: "\x1b[M`!!",
			want:  []idle.ActivityKind{idle.KindWheel},
		},
		{
			name:  "focus reports are not activity",
			input: "\x1b[I\x1b[O",
			want:  nil,
		},
		{
			name:  "mixed input keeps first-seen order",
			input: "\x1b[<35;1;1Ma\x1b[<0;1;1M",
			want: []idle.ActivityKind{
				idle.KindPointerMove,
				idle.KindKeyDown,
				idle.KindKeyPress,
				idle.KindPointerDown,
			},
		},
		{
			name:  "malformed sgr counts as key",
			input: "\x1b[<0;1M",
			want:  []idle.ActivityKind{idle.KindKeyDown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewTerminalDecoder()
			assert.Equal(t, tt.want, d.Decode([]byte(tt.input)))
		})
	}
}

func TestTerminalDecoder_SplitSequence(t *testing.T) {
	d := NewTerminalDecoder()

	assert.Empty(t, d.Decode([]byte("\x1b[<35;1")))
	assert.Equal(t, []idle.ActivityKind{idle.KindPointerMove}, d.Decode([]byte(";1M")))

	assert.Empty(t, d.Decode([]byte("\x1b[")))
	assert.Equal(t, []idle.ActivityKind{idle.KindKeyDown}, d.Decode([]byte("B")))
}

func TestTerminalDecoder_OverlongSequence(t *testing.T) {
	d := NewTerminalDecoder()

	input := "\x1b[<"
	for len(input) <= maxPending {
		input += "1"
	}

	kinds := d.Decode([]byte(input))
	assert.Equal(t, []idle.ActivityKind{idle.KindKeyDown, idle.KindKeyPress}, kinds)
	assert.Empty(t, d.pending)
}

func TestTerminalSource(t *testing.T) {
	src := NewTerminalSource(nil, 8)

	src.HandleInput([]byte("\x1b[<64;1;1M"))
	src.HandleResize()
	src.Close()

	var got []idle.ActivityKind
	for a := range src.Activity() {
		got = append(got, a.Kind)
	}
	require.Len(t, got, 2)
	assert.Equal(t, idle.KindWheel, got[0])
	assert.Equal(t, idle.KindResize, got[1])
}
