package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"slices"
	"strings"
	"testing"
)

func TestBuildFFmpegArgsQuality(t *testing.T) {
	tests := []struct {
		encoder string
		want    []string
	}{
		{"libx264", []string{"-crf", "23", "-preset", "medium"}},
		{"", []string{"-c:v", "libx264", "-pix_fmt", "yuv420p"}},
		{"h264_nvenc", []string{"-cq", "23"}},
		{"h264_videotoolbox", []string{"-b:v", "2300k"}},
	}

	e := &FFmpegEncoder{}
	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			args := e.buildFFmpegArgs("out.mp4", Params{Width: 640, Height: 360, FPS: 30, Encoder: tt.encoder, Quality: 23})
			joined := " " + strings.Join(args, " ") + " "
			for _, w := range tt.want {
				if !strings.Contains(joined, " "+w+" ") {
					t.Errorf("args %v missing %q", args, w)
				}
			}
			if args[len(args)-1] != "out.mp4" {
				t.Errorf("output must be last, got %q", args[len(args)-1])
			}
			if !slices.Contains(args, "640x360") {
				t.Errorf("video size missing: %v", args)
			}
		})
	}
}

func TestBuildFFmpegArgsAudio(t *testing.T) {
	e := &FFmpegEncoder{}
	args := e.buildFFmpegArgs("out.mp4", Params{Width: 2, Height: 2, FPS: 30, AudioPath: "voice.mp3", AudioVolume: 0.5, Duration: 4})
	joined := strings.Join(args, " ")

	for _, want := range []string{"-i voice.mp3", "-map 1:a", "-shortest", "volume=0.500000", "-t 4.000000"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}

	plain := strings.Join(e.buildFFmpegArgs("out.mp4", Params{Width: 2, Height: 2, FPS: 30}), " ")
	if strings.Contains(plain, "-map") || strings.Contains(plain, "-t ") {
		t.Errorf("silent stream should not map audio: %q", plain)
	}
}

func TestWriteFramesReleasesInOrder(t *testing.T) {
	frames := make(chan *image.RGBA, 3)
	var released []uint8
	for i := 0; i < 3; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 2, 1))
		img.SetRGBA(0, 0, color.RGBA{R: uint8(i), A: 255})
		frames <- img
	}
	close(frames)

	var buf bytes.Buffer
	params := Params{Width: 2, Height: 1, Release: func(img *image.RGBA) {
		released = append(released, img.Pix[0])
	}}
	if err := writeFrames(context.Background(), &buf, frames, params); err != nil {
		t.Fatalf("writeFrames() error = %v", err)
	}

	if buf.Len() != 3*2*4 {
		t.Errorf("wrote %d bytes, want %d", buf.Len(), 3*2*4)
	}
	if !slices.Equal(released, []uint8{0, 1, 2}) {
		t.Errorf("released %v", released)
	}
	if buf.Bytes()[8] != 1 {
		t.Errorf("second frame out of order")
	}
}

func TestWriteFramesRejectsWrongSize(t *testing.T) {
	frames := make(chan *image.RGBA, 1)
	frames <- image.NewRGBA(image.Rect(0, 0, 4, 4))
	close(frames)

	err := writeFrames(context.Background(), &bytes.Buffer{}, frames, Params{Width: 2, Height: 2})
	if !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
}

func TestWriteFramesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames := make(chan *image.RGBA)
	if err := writeFrames(ctx, &bytes.Buffer{}, frames, Params{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWriteRawRGBASubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(2, 2, color.RGBA{R: 9, A: 255})
	sub := img.SubImage(image.Rect(2, 2, 4, 4))

	var buf bytes.Buffer
	if err := writeRawRGBA(&buf, sub); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 2*2*4 || buf.Bytes()[0] != 9 {
		t.Errorf("unexpected raw output %v", buf.Bytes())
	}
}
