package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
)

// Params describes the output stream. Width and Height must match every frame.
type Params struct {
	Width, Height int
	FPS           int
	Encoder       string
	Quality       int
	AudioPath     string
	AudioVolume   float64
	// Duration ограничивает длину выхода в секундах (нужно при аудио длиннее видео).
	Duration float64
	// Release получает кадр после того, как он записан в ffmpeg.
	Release func(*image.RGBA)
}

type VideoEncoder interface {
	Encode(ctx context.Context, frames <-chan *image.RGBA, out string, params Params) error
}

var ErrFrameSize = errors.New("frame size does not match the stream")

// FFmpegEncoder пишет кадры raw RGBA в stdin ffmpeg.
type FFmpegEncoder struct {
	// Binary по умолчанию "ffmpeg".
	Binary string
}

func (e *FFmpegEncoder) binary() string {
	if e.Binary == "" {
		return "ffmpeg"
	}
	return e.Binary
}

// Encode consumes frames until the channel is closed and waits for ffmpeg to
// finish the file. Frames must arrive in presentation order.
func (e *FFmpegEncoder) Encode(ctx context.Context, frames <-chan *image.RGBA, out string, params Params) error {
	args := e.buildFFmpegArgs(out, params)
	cmd := exec.CommandContext(ctx, e.binary(), args...)

	var logs bytes.Buffer
	cmd.Stdout = &logs
	cmd.Stderr = &logs

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	writeErr := writeFrames(ctx, stdin, frames, params)
	stdin.Close()
	waitErr := cmd.Wait()

	if writeErr != nil {
		return fmt.Errorf("write raw error: %w", writeErr)
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg wait error: %w\nLog: %s", waitErr, logs.String())
	}
	return nil
}

func writeFrames(ctx context.Context, w io.Writer, frames <-chan *image.RGBA, params Params) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case img, ok := <-frames:
			if !ok {
				return nil
			}
			err := writeFrame(w, img, params)
			if params.Release != nil {
				params.Release(img)
			}
			if err != nil {
				return err
			}
		}
	}
}

func writeFrame(w io.Writer, img *image.RGBA, params Params) error {
	b := img.Bounds()
	if b.Dx() != params.Width || b.Dy() != params.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), params.Width, params.Height)
	}
	return writeRawRGBA(w, img)
}

func (e *FFmpegEncoder) buildFFmpegArgs(out string, p Params) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", fmt.Sprintf("%d", p.FPS),
		"-i", "-",
	}

	if p.AudioPath != "" {
		args = append(args, "-i", p.AudioPath, "-map", "0:v", "-map", "1:a")
		if p.AudioVolume > 0 && p.AudioVolume != 1 {
			args = append(args, "-filter:a", fmt.Sprintf("volume=%f", p.AudioVolume))
		}
		args = append(args, "-c:a", "aac", "-shortest")
	}
	if p.Duration > 0 {
		args = append(args, "-t", fmt.Sprintf("%f", p.Duration))
	}

	encoder := p.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	args = append(args, "-pix_fmt", "yuv420p", "-c:v", encoder)

	// Качество в зависимости от энкодера
	switch encoder {
	case "h264_videotoolbox":
		bitrate := p.Quality * 100
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", p.Quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", p.Quality), "-preset", "medium")
	}

	args = append(args, "-movflags", "+faststart", out)
	return args
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
