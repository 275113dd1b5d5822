package extract

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"

	"github.com/ivlev/scene2video/internal/scene"
)

var ErrMalformed = errors.New("text is not a complete scene list")

// DefaultMaxObjectBytes caps how much of one unfinished object is kept.
const DefaultMaxObjectBytes = 1 << 20

// requiredFields must be present and non-null for a scene to be accepted.
var requiredFields = []string{"id", "durationInFrames", "background"}

// Extractor recovers complete scene objects from text that arrives in
// pieces. Feed only scans the bytes it has not seen yet, and scenes once
// recovered are never retracted.
//
// An open object that grows past MaxObjectBytes is abandoned: the rest of
// it is scanned for its closing brace but not kept.
type Extractor struct {
	MaxObjectBytes int

	buf         []byte
	pos         int
	depth       int
	objectStart int
	inString    bool
	escaped     bool
	scenes      []scene.Scene
}

func New() *Extractor {
	return &Extractor{MaxObjectBytes: DefaultMaxObjectBytes, objectStart: -1}
}

// Feed appends delta to the buffer and returns every scene recovered so far.
// Malformed or incomplete objects are dropped without error.
func (e *Extractor) Feed(delta string) []scene.Scene {
	e.buf = append(e.buf, delta...)

	for ; e.pos < len(e.buf); e.pos++ {
		c := e.buf[e.pos]

		if e.inString {
			switch {
			case e.escaped:
				e.escaped = false
			case c == '\\':
				e.escaped = true
			case c == '"':
				e.inString = false
			}
			continue
		}

		switch c {
		case '"':
			e.inString = true
		case '{':
			if e.depth == 0 {
				e.objectStart = e.pos
			}
			e.depth++
		case '}':
			if e.depth == 0 {
				// Stray closing brace outside any object.
				continue
			}
			e.depth--
			if e.depth == 0 && e.objectStart >= 0 {
				if s, ok := accept(e.buf[e.objectStart : e.pos+1]); ok {
					e.scenes = append(e.scenes, s)
				}
				e.objectStart = -1
			}
		}
	}

	e.compact()
	return e.Scenes()
}

// compact drops bytes that can no longer belong to an object.
func (e *Extractor) compact() {
	if e.objectStart >= 0 && e.MaxObjectBytes > 0 && e.pos-e.objectStart > e.MaxObjectBytes {
		e.objectStart = -1
	}

	switch {
	case e.objectStart > 0:
		n := copy(e.buf, e.buf[e.objectStart:])
		e.buf = e.buf[:n]
		e.pos -= e.objectStart
		e.objectStart = 0
	case e.objectStart < 0:
		// Scan state lives in depth and inString; nothing buffered is needed.
		e.buf = e.buf[:0]
		e.pos = 0
	}
}

// Scenes returns a copy of the scenes recovered so far.
func (e *Extractor) Scenes() []scene.Scene {
	return slices.Clone(e.scenes)
}

// Reset forgets all input so the extractor can follow a new stream.
func (e *Extractor) Reset() {
	*e = Extractor{MaxObjectBytes: e.MaxObjectBytes, objectStart: -1, buf: e.buf[:0]}
}

// Scenes runs a single incremental pass over text.
func Scenes(text string) []scene.Scene {
	return New().Feed(text)
}

// Final parses complete text wholesale: either a scene array or an object
// with a "scenes" array. Entries missing a required field are dropped.
func Final(text string) ([]scene.Scene, error) {
	data := bytes.TrimSpace([]byte(text))

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		var wrapped struct {
			Scenes []json.RawMessage `json:"scenes"`
		}
		if werr := json.Unmarshal(data, &wrapped); werr != nil || wrapped.Scenes == nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raws = wrapped.Scenes
	}

	scenes := make([]scene.Scene, 0, len(raws))
	for _, raw := range raws {
		if s, ok := accept(raw); ok {
			scenes = append(scenes, s)
		}
	}
	return scenes, nil
}

// Extract parses text wholesale once it is final and valid, and falls back to
// the incremental scan otherwise.
func Extract(text string, final bool) []scene.Scene {
	if final {
		if scenes, err := Final(text); err == nil {
			return scenes
		}
	}
	return Scenes(text)
}

func accept(raw []byte) (scene.Scene, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return scene.Scene{}, false
	}
	for _, name := range requiredFields {
		v, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return scene.Scene{}, false
		}
	}

	var s scene.Scene
	if err := json.Unmarshal(raw, &s); err != nil {
		return scene.Scene{}, false
	}
	if s.ID == "" || s.DurationInFrames <= 0 {
		return scene.Scene{}, false
	}
	return s, true
}
