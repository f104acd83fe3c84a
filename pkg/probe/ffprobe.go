// Package probe reports the playback length of remote audio.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Prober returns the duration of a media resource in whole seconds. Any
// failure is reported as ok == false.
type Prober interface {
	Probe(ctx context.Context, url string) (seconds int, ok bool)
}

// FFProbe runs the ffprobe binary.
type FFProbe struct {
	Binary  string
	Timeout time.Duration
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe implements Prober.
func (f FFProbe) Probe(ctx context.Context, url string) (int, bool) {
	out, err := f.run(ctx, url)
	if err != nil {
		return 0, false
	}
	return parseDuration(out)
}

func (f FFProbe) run(ctx context.Context, url string) ([]byte, error) {
	binary := strings.TrimSpace(f.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("ffprobe: empty url")
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-show_entries", "format=duration", "-of", "json", "--", url)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return output, nil
}

func parseDuration(output []byte) (int, bool) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, false
	}
	return int(math.Floor(seconds)), true
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, url string) (int, bool)

// Probe implements Prober.
func (fn Func) Probe(ctx context.Context, url string) (int, bool) {
	return fn(ctx, url)
}
