package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"content-analyzer/internal/shared/telemetry"
)

const (
	targetSampleRate = 16000
	targetBitrate    = "16k"
)

// Normalizer re-encodes audio to a small speech-friendly rendition
// (mono, 16 kHz, low bitrate). It returns the new bytes and file name.
type Normalizer interface {
	Normalize(ctx context.Context, data []byte, fileName string) ([]byte, string, error)
}

// NewNormalizer prefers ffmpeg when it is on PATH and falls back to the
// pure-Go WAV re-encoder otherwise.
func NewNormalizer(ffmpegPath string) Normalizer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if path, err := exec.LookPath(ffmpegPath); err == nil {
		return &FFmpegNormalizer{Path: path}
	}
	telemetry.Warn("transcription.ffmpeg_missing", map[string]any{"path": ffmpegPath})
	return WAVNormalizer{}
}

// FFmpegNormalizer shells out to ffmpeg and produces a 16 kbps mono MP3.
type FFmpegNormalizer struct {
	Path string
}

func (n *FFmpegNormalizer) Normalize(ctx context.Context, data []byte, fileName string) ([]byte, string, error) {
	dir, err := os.MkdirTemp("", "normalize-*")
	if err != nil {
		return nil, "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = ".bin"
	}
	in := filepath.Join(dir, "input"+ext)
	out := filepath.Join(dir, "output.mp3")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, "", fmt.Errorf("write input: %w", err)
	}

	args := []string{"-y", "-i", in, "-ac", "1", "-ar", fmt.Sprint(targetSampleRate), "-b:a", targetBitrate, out}
	cmd := exec.CommandContext(ctx, n.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		return nil, "", fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}

	encoded, err := os.ReadFile(out)
	if err != nil {
		return nil, "", fmt.Errorf("read output: %w", err)
	}
	return encoded, renameExt(fileName, ".mp3"), nil
}

// WAVNormalizer handles PCM WAV input without external tools: it downmixes
// to mono, resamples to 16 kHz and writes 8-bit samples.
type WAVNormalizer struct{}

func (WAVNormalizer) Normalize(ctx context.Context, data []byte, fileName string) ([]byte, string, error) {
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != ".wav" && ext != ".wave" {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedAudio, ext)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, "", fmt.Errorf("%w: invalid wav file", ErrUnsupportedAudio)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("decode wav: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	mono := downmix(buf)
	samples := resample(mono, buf.Format.SampleRate, targetSampleRate)

	pcm := make([]int, len(samples))
	for i, s := range samples {
		v := int(s*127) + 128
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		pcm[i] = v
	}

	f, err := os.CreateTemp("", "normalize-*.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	enc := wav.NewEncoder(f, targetSampleRate, 8, 1, 1)
	out := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: targetSampleRate},
		Data:           pcm,
		SourceBitDepth: 8,
	}
	if err := enc.Write(out); err != nil {
		return nil, "", fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, "", fmt.Errorf("encode wav: %w", err)
	}

	encoded, err := os.ReadFile(f.Name())
	if err != nil {
		return nil, "", fmt.Errorf("read output: %w", err)
	}
	return encoded, renameExt(fileName, ".wav"), nil
}

// downmix averages channels into [-1, 1] floats.
func downmix(buf *audio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}
	full := float64(int64(1) << (depth - 1))

	frames := len(buf.Data) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			v := buf.Data[i*channels+c]
			if depth == 8 {
				v -= 128
			}
			sum += float64(v) / full
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// resample is linear interpolation; good enough for speech recognition.
func resample(in []float64, from, to int) []float64 {
	if from <= 0 || from == to || len(in) == 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

func renameExt(fileName, ext string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if base == "" {
		base = "audio"
	}
	return base + ext
}
