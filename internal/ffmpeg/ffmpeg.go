package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/floostack/transcoder/ffmpeg"
)

// Remux copies the video and audio streams of inputFile into an mp4
// container at outputFile without re-encoding. Anything the tool printed is
// returned so callers can log it when the remux fails.
func Remux(ctx context.Context, ffmpegPath, inputFile, outputFile string) (string, error) {
	cmd := exec.CommandContext(
		ctx, ffmpegPath,
		"-y",
		"-loglevel", "warning",
		"-i", inputFile,
		"-map", "0:v",
		"-map", "0:a?",
		"-c", "copy",
		"-movflags", "+faststart",
		"-f", "mp4",
		outputFile,
	)

	var buf bytes.Buffer

	cmd.Stdin = nil
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil {
		return buf.String(), fmt.Errorf("ffmpeg.Remux: %w", err)
	}

	return buf.String(), nil
}

type MediaInfo struct {
	Duration time.Duration
	Width    int
	Height   int
}

func (m MediaInfo) Resolution() string {
	if m.Width == 0 || m.Height == 0 {
		return ""
	}

	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// Probe reads container and stream information with ffprobe. The size comes
// from the first video stream.
func Probe(ffprobePath, inputFile string) (*MediaInfo, error) {
	metadata, err := ffmpeg.New(&ffmpeg.Config{FfprobeBinPath: ffprobePath}).Input(inputFile).GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg.Probe: %w", err)
	}

	var info MediaInfo

	for _, stream := range metadata.GetStreams() {
		if stream.GetCodecType() != "video" {
			continue
		}

		info.Width = stream.GetWidth()
		info.Height = stream.GetHeight()

		break
	}

	if format := metadata.GetFormat(); format != nil {
		if s := strings.TrimSpace(format.GetDuration()); s != "" {
			seconds, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("ffmpeg.Probe: could not parse duration %q: %w", s, err)
			}

			info.Duration = time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
		}
	}

	return &info, nil
}
