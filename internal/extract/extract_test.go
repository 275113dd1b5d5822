package extract

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ivlev/scene2video/internal/scene"
)

const fullText = `[
  {"id":"a","durationInFrames":30,"background":{"type":"solid"}},
  {"id":"b","durationInFrames":45,"background":{"type":"gradient","colors":["#000","#fff"]},
   "elements":[{"id":"t","type":"text","x":50,"y":50,"text":"curly } and { \"quoted\""}],
   "transition":{"type":"fade","durationInFrames":10}},
  {"id":"c","durationInFrames":60,"background":{"type":"solid","color":"#123"},
   "elements":[{"id":"s","type":"shape","x":10,"y":90,"shape":"circle","enterAnimation":{"type":"bounce"}}]}
]`

func ids(scenes []scene.Scene) []string {
	out := make([]string, len(scenes))
	for i, s := range scenes {
		out[i] = s.ID
	}
	return out
}

func TestScenesFromTruncatedText(t *testing.T) {
	partial := `[{"id":"a","durationInFrames":30,"background":{"type":"solid"}},{"id":"b","durat`
	got := Scenes(partial)
	if !reflect.DeepEqual(ids(got), []string{"a"}) {
		t.Fatalf("got %v, want [a]", ids(got))
	}

	e := New()
	e.Feed(partial)
	got = e.Feed(`ionInFrames":45,"background":{"type":"solid"}}]`)
	if !reflect.DeepEqual(ids(got), []string{"a", "b"}) {
		t.Fatalf("got %v, want [a b]", ids(got))
	}
	if got[1].DurationInFrames != 45 {
		t.Errorf("b duration = %d, want 45", got[1].DurationInFrames)
	}
}

func TestFeedOneCharAtATime(t *testing.T) {
	want, err := Final(fullText)
	if err != nil {
		t.Fatalf("Final: %v", err)
	}
	if len(want) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(want))
	}

	e := New()
	var prev []scene.Scene
	for i := 0; i < len(fullText); i++ {
		got := e.Feed(fullText[i : i+1])
		if len(got) < len(prev) {
			t.Fatalf("offset %d: scene count shrank from %d to %d", i, len(prev), len(got))
		}
		for j := range prev {
			if !reflect.DeepEqual(got[j], prev[j]) {
				t.Fatalf("offset %d: scene %d changed", i, j)
			}
		}
		prev = got
	}

	if !reflect.DeepEqual(prev, want) {
		t.Errorf("incremental result differs from wholesale parse:\n got %v\nwant %v", ids(prev), ids(want))
	}
	text := prev[1].Elements[0].(*scene.TextElement).Text
	if text != `curly } and { "quoted"` {
		t.Errorf("text = %q", text)
	}
}

func TestPrefixesMatchIncremental(t *testing.T) {
	for _, cut := range []int{0, 10, 70, 200, len(fullText) - 1} {
		oneShot := Scenes(fullText[:cut])
		e := New()
		e.Feed(fullText[:cut/2])
		streamed := e.Feed(fullText[cut/2 : cut])
		if !reflect.DeepEqual(ids(oneShot), ids(streamed)) {
			t.Errorf("cut %d: one-shot %v, streamed %v", cut, ids(oneShot), ids(streamed))
		}
	}
}

func TestDropsIncompleteObjects(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"missing id", `[{"durationInFrames":30,"background":{"type":"solid"}},{"id":"ok","durationInFrames":1,"background":{}}]`, []string{"ok"}},
		{"null background", `[{"id":"a","durationInFrames":30,"background":null}]`, []string{}},
		{"zero duration", `[{"id":"a","durationInFrames":0,"background":{"type":"solid"}}]`, []string{}},
		{"wrong type", `[{"id":"a","durationInFrames":"long","background":{"type":"solid"}}]`, []string{}},
		{"garbage between", `[{"id":"a","durationInFrames":5,"background":{}}, }}} garbage {"x": }, {"id":"b","durationInFrames":5,"background":{}}]`, []string{"a", "b"}},
		{"not json", `hello } world {`, []string{}},
		{"empty", ``, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(Scenes(tt.text)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOversizedObjectIsAbandoned(t *testing.T) {
	e := New()
	e.MaxObjectBytes = 64

	e.Feed(`[{"id":"a","durationInFrames":30,"background":{}},{"id":"big","durationInFrames":5,"background":{},"notes":"`)
	for i := 0; i < 100; i++ {
		e.Feed(`padding with { and } inside a string `)
		if len(e.buf) > 2*e.MaxObjectBytes {
			t.Fatalf("chunk %d: buffer grew to %d bytes", i, len(e.buf))
		}
	}
	got := e.Feed(`","elements":[{"id":"x"}]},{"id":"c","durationInFrames":30,"background":{}}]`)

	if !reflect.DeepEqual(ids(got), []string{"a", "c"}) {
		t.Errorf("got %v, want [a c]", ids(got))
	}
}

func TestReset(t *testing.T) {
	e := New()
	e.Feed(`[{"id":"a","durationInFrames":30,"background":{}},{"id":"b"`)
	e.Reset()
	if len(e.Scenes()) != 0 {
		t.Fatal("expected no scenes after reset")
	}
	got := e.Feed(`[{"id":"c","durationInFrames":30,"background":{}}]`)
	if !reflect.DeepEqual(ids(got), []string{"c"}) {
		t.Errorf("got %v, want [c]", ids(got))
	}
}

func TestScenesReturnsCopy(t *testing.T) {
	e := New()
	got := e.Feed(`[{"id":"a","durationInFrames":30,"background":{}}]`)
	got[0].ID = "mutated"
	if e.Scenes()[0].ID != "a" {
		t.Error("caller mutation leaked into extractor state")
	}
}

func TestFinal(t *testing.T) {
	wrapped := `{"meta":{"fps":30},"scenes":[{"id":"a","durationInFrames":30,"background":{}},{"id":"","durationInFrames":30,"background":{}}]}`
	got, err := Final(wrapped)
	if err != nil {
		t.Fatalf("Final: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []string{"a"}) {
		t.Errorf("got %v, want [a]", ids(got))
	}

	if _, err := Final(`[{"id":"a"`); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
	if _, err := Final(`{"title":"no scenes"}`); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestExtractFallsBack(t *testing.T) {
	truncated := `[{"id":"a","durationInFrames":30,"background":{}},{"id":"b"`
	if got := ids(Extract(truncated, true)); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("got %v, want [a]", got)
	}
	if got := ids(Extract(fullText, true)); len(got) != 3 {
		t.Errorf("got %v, want 3 scenes", got)
	}
}
