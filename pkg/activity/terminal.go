package activity

import (
	"strconv"
	"strings"
	"sync"

	"github.com/Veraticus/useridle/pkg/idle"
	"github.com/Veraticus/useridle/pkg/interfaces"
)

const esc = 0x1b

// maxPending bounds how much of an unterminated escape sequence is held
// back waiting for the next chunk.
const maxPending = 32

// TerminalDecoder classifies raw terminal input into activity kinds.
//
// Ordinary bytes and key escape sequences count as keydown, and printable
// characters additionally as keypress. Mouse reports (xterm X10 and SGR
// encodings) count as mousemove, mousedown or wheel; they only arrive when
// the program in the terminal has enabled mouse tracking. Button releases
// and focus reports are not activity.
type TerminalDecoder struct {
	pending []byte
}

// NewTerminalDecoder creates a decoder.
func NewTerminalDecoder() *TerminalDecoder {
	return &TerminalDecoder{}
}

// Decode returns the distinct activity kinds found in data, in order of
// first appearance. An escape sequence split across calls is completed on
// the next call.
func (d *TerminalDecoder) Decode(data []byte) []idle.ActivityKind {
	buf := append(d.pending, data...)
	d.pending = nil

	var kinds []idle.ActivityKind
	add := func(k idle.ActivityKind) {
		for _, seen := range kinds {
			if seen == k {
				return
			}
		}
		kinds = append(kinds, k)
	}

	for i := 0; i < len(buf); {
		if buf[i] != esc {
			add(idle.KindKeyDown)
			if isPrintable(buf[i]) {
				add(idle.KindKeyPress)
			}
			i++
			continue
		}

		n, kind, complete := parseEscape(buf[i:])
		if !complete {
			if len(buf)-i <= maxPending {
				d.pending = append([]byte(nil), buf[i:]...)
				break
			}
			// Too long to be a real sequence; treat as a key.
			n, kind = 1, idle.KindKeyDown
		}
		if kind != "" {
			add(kind)
		}
		i += n
	}

	return kinds
}

func isPrintable(b byte) bool {
	return b >= 0x20 && b != 0x7f
}

// parseEscape parses the sequence starting at b[0] == ESC. It returns the
// sequence length, the activity it represents ("" for none) and whether the
// sequence was complete.
func parseEscape(b []byte) (int, idle.ActivityKind, bool) {
	if len(b) == 1 {
		// A lone ESC at the end of a read is the Escape key.
		return 1, idle.KindKeyDown, true
	}

	switch b[1] {
	case '[':
		return parseCSI(b)
	case 'O':
		// SS3: application-mode arrows and F1-F4.
		if len(b) < 3 {
			return 0, "", false
		}
		return 3, idle.KindKeyDown, true
	default:
		// Alt+key.
		return 2, idle.KindKeyDown, true
	}
}

func parseCSI(b []byte) (int, idle.ActivityKind, bool) {
	if len(b) < 3 {
		return 0, "", false
	}

	switch b[2] {
	case 'M':
		// X10 mouse: ESC [ M Cb Cx Cy
		if len(b) < 6 {
			return 0, "", false
		}
		return 6, mouseKind(int(b[3])-32, true), true
	case '<':
		return parseSGRMouse(b)
	case 'I', 'O':
		// Focus in/out.
		return 3, "", true
	}

	// Generic CSI: parameter and intermediate bytes, then a final byte.
	for i := 2; i < len(b); i++ {
		if b[i] >= 0x40 && b[i] <= 0x7e {
			return i + 1, idle.KindKeyDown, true
		}
		if b[i] < 0x20 || b[i] > 0x3f {
			// Not a CSI sequence after all.
			return 2, idle.KindKeyDown, true
		}
	}
	return 0, "", false
}

// parseSGRMouse parses ESC [ < Cb ; Cx ; Cy (M|m).
func parseSGRMouse(b []byte) (int, idle.ActivityKind, bool) {
	for i := 3; i < len(b); i++ {
		switch c := b[i]; {
		case c == 'M' || c == 'm':
			params := strings.Split(string(b[3:i]), ";")
			cb, err := strconv.Atoi(params[0])
			if err != nil || len(params) != 3 {
				return i + 1, idle.KindKeyDown, true
			}
			return i + 1, mouseKind(cb, c == 'M'), true
		case (c >= '0' && c <= '9') || c == ';':
		default:
			return i + 1, idle.KindKeyDown, true
		}
	}
	return 0, "", false
}

// mouseKind maps an xterm button code to an activity kind. press is false
// for SGR release reports. In the X10 encoding a release is button 3.
func mouseKind(cb int, press bool) idle.ActivityKind {
	switch {
	case cb&64 != 0:
		return idle.KindWheel
	case cb&32 != 0:
		return idle.KindPointerMove
	case !press || cb&3 == 3:
		return ""
	default:
		return idle.KindPointerDown
	}
}

// TerminalSource turns terminal input and resize notifications into
// activity events.
type TerminalSource struct {
	*Feed

	mu      sync.Mutex
	decoder *TerminalDecoder
}

// Ensure TerminalSource implements the source and input interfaces
var (
	_ idle.ActivitySource     = (*TerminalSource)(nil)
	_ interfaces.InputHandler = (*TerminalSource)(nil)
)

// NewTerminalSource creates a terminal source.
func NewTerminalSource(clock idle.Clock, buffer int) *TerminalSource {
	return &TerminalSource{
		Feed:    NewFeed(clock, buffer),
		decoder: NewTerminalDecoder(),
	}
}

// HandleInput classifies a chunk of user input and emits its activity.
func (s *TerminalSource) HandleInput(data []byte) {
	s.mu.Lock()
	kinds := s.decoder.Decode(data)
	s.mu.Unlock()

	for _, k := range kinds {
		s.Emit(k)
	}
}

// HandleResize emits a resize event.
func (s *TerminalSource) HandleResize() {
	s.Emit(idle.KindResize)
}
