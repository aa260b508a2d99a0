// Package video checks library files for structural integrity with ffprobe.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"multtv/internal/db"
)

var (
	videoCodecs = map[string]struct{}{"h264": {}, "hevc": {}, "vp9": {}, "av1": {}}
	audioCodecs = map[string]struct{}{"aac": {}, "mp3": {}, "opus": {}, "vorbis": {}, "flac": {}}
)

// Prober runs a media probe against a file and returns its raw structured
// output. Isolating the subprocess behind this interface lets tests (and a
// future in-process parser) stand in for ffprobe.
type Prober interface {
	Probe(ctx context.Context, path string) ([]byte, error)
}

// FFProbe shells out to the ffprobe binary with a bounded timeout.
type FFProbe struct {
	Binary  string
	Timeout time.Duration
}

func NewFFProbe(timeout time.Duration) *FFProbe {
	return &FFProbe{Binary: "ffprobe", Timeout: timeout}
}

func (p *FFProbe) Probe(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, p.Binary,
		"-v", "error", "-show_streams", "-show_format", "-of", "json", path)
	out, err := cmd.Output()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("probe timed out after %s", p.Timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			detail := strings.TrimSpace(string(exitErr.Stderr))
			if len(detail) > 200 {
				detail = detail[:200]
			}
			return nil, fmt.Errorf("probe failed: %s", detail)
		}
		return nil, fmt.Errorf("probe failed: %w", err)
	}
	return out, nil
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Validator classifies files as playable or not and records why.
type Validator struct {
	prober Prober
}

func NewValidator(prober Prober) *Validator {
	return &Validator{prober: prober}
}

// Validate runs every applicable check against the file at absPath and
// returns a verdict keyed by relPath. Missing or empty files short-circuit
// before the probe runs; once probe output parses, all stream and duration
// defects are accumulated so one run reports everything wrong.
func (v *Validator) Validate(ctx context.Context, absPath, relPath string) db.Verdict {
	verdict := db.Verdict{FilePath: relPath, OK: true, Errors: []string{}}
	fail := func(msg string) {
		verdict.OK = false
		verdict.Errors = append(verdict.Errors, msg)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		fail("file missing or unreadable")
		return verdict
	}
	verdict.SizeMB = math.Round(float64(info.Size())/(1024*1024)*10) / 10
	if info.Size() == 0 {
		fail("file empty")
		return verdict
	}

	raw, err := v.prober.Probe(ctx, absPath)
	if err != nil {
		fail(err.Error())
		return verdict
	}
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		fail("probe output is not valid JSON")
		return verdict
	}

	var video, audio *probeStream
	for i := range out.Streams {
		s := &out.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			if audio == nil {
				audio = s
			}
		}
	}
	if video == nil {
		fail("no video stream")
	} else {
		verdict.VideoCodec = video.CodecName
		if _, ok := videoCodecs[video.CodecName]; !ok {
			fail(fmt.Sprintf("unsupported video codec: %s", video.CodecName))
		}
	}
	if audio == nil {
		fail("no audio stream")
	} else {
		verdict.AudioCodec = audio.CodecName
		if _, ok := audioCodecs[audio.CodecName]; !ok {
			fail(fmt.Sprintf("unsupported audio codec: %s", audio.CodecName))
		}
	}

	dur, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		fail("could not determine duration")
	} else {
		verdict.Duration = dur
		if dur <= 0 {
			fail("duration is zero")
		}
	}
	return verdict
}
