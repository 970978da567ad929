package transcription

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	DefaultFFmpegBinary = "ffmpeg"
	DefaultSampleRate   = 16000
	DefaultChannels     = 1
)

// FFmpeg converts arbitrary audio into a mono 16 kHz wav file.
type FFmpeg struct {
	Binary     string
	SampleRate int
	Channels   int
}

func (f FFmpeg) Normalize(ctx context.Context, inPath, outPath string) error {
	bin := f.Binary
	if bin == "" {
		bin = DefaultFFmpegBinary
	}
	rate := f.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	channels := f.Channels
	if channels <= 0 {
		channels = DefaultChannels
	}

	cmd := exec.CommandContext(ctx, bin,
		"-y",
		"-i", inPath,
		"-ar", strconv.Itoa(rate),
		"-ac", strconv.Itoa(channels),
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(string(out), 200))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
