// Package video assembles selected images into short vertical videos by
// delegating to ffmpeg. Encoding itself is fully external; this package
// only builds the invocation and names the output.
package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/errors"
	"kestrel/internal/log"
)

// Vertical short-form output format.
const (
	outputWidth     = 1080
	outputHeight    = 1920
	secondsPerImage = 3
)

// Assembler builds slideshows with an external encoder binary.
type Assembler struct {
	binary string
	// run is swappable so tests can capture the invocation.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewAssembler returns an Assembler using ffmpeg from PATH.
func NewAssembler() *Assembler {
	return &Assembler{
		binary: "ffmpeg",
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// CreateSlideshow renders the given images, in order, into an mp4 under
// the project's exports directory and returns its path.
func (a *Assembler) CreateSlideshow(ctx context.Context, project *config.Project, images []string) (string, error) {
	if len(images) == 0 {
		return "", errors.New("no images to assemble")
	}
	if err := project.EnsureDirs(); err != nil {
		return "", err
	}

	// ffmpeg concat demuxer needs a list file; keep it out of the exports
	// dir so a failed run leaves nothing behind there.
	listFile, err := writeConcatList(images)
	if err != nil {
		return "", err
	}
	defer os.Remove(listFile)

	output := filepath.Join(project.ExportsDir(),
		fmt.Sprintf("slideshow_%s.mp4", time.Now().UTC().Format("20060102-150405")))

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
			outputWidth, outputHeight, outputWidth, outputHeight),
		"-r", "30",
		"-pix_fmt", "yuv420p",
		output,
	}

	log.Info("assembling slideshow: %d images -> %s", len(images), output)
	if out, err := a.run(ctx, a.binary, args...); err != nil {
		return "", errors.Wrapf(err, "ffmpeg failed: %.200s", string(out))
	}
	return output, nil
}

func writeConcatList(images []string) (string, error) {
	f, err := os.CreateTemp("", "kestrel-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, img := range images {
		// Single quotes in paths must be escaped for the concat demuxer.
		escaped := strings.ReplaceAll(img, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\nduration %d\n", escaped, secondsPerImage)
	}
	// The concat demuxer ignores the last duration unless the final file
	// repeats.
	last := strings.ReplaceAll(images[len(images)-1], "'", `'\''`)
	fmt.Fprintf(&b, "file '%s'\n", last)

	if _, err := f.WriteString(b.String()); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
