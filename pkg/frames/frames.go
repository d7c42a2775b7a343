// Package frames loads the still images of a recording and reads their
// dimensions.
//
// A frame set is a directory of png, jpeg or gif files ordered by file name.
// Prediction indices address frames by their position in that order.
package frames

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/screenflow/screenflow/pkg/flow"
)

// ErrEmpty is returned by [LoadDir] when the directory holds no frames.
var ErrEmpty = errors.New("no frames found")

var extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Set is an ordered collection of frame files.
type Set struct {
	dir   string
	names []string
}

// LoadDir lists the frames in dir, sorted by file name.
func LoadDir(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Set{}, fmt.Errorf("read frames dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return Set{}, fmt.Errorf("%w in %s", ErrEmpty, dir)
	}
	slices.Sort(names)
	return Set{dir: dir, names: names}, nil
}

// Dir returns the directory the set was loaded from.
func (s Set) Dir() string { return s.dir }

// Len returns the number of frames.
func (s Set) Len() int { return len(s.names) }

// Ref returns the image reference of frame i: its file name.
func (s Set) Ref(i int) flow.ImageRef { return flow.ImageRef(s.names[i]) }

// Path returns the path of frame i.
func (s Set) Path(i int) string { return filepath.Join(s.dir, s.names[i]) }

// Frame reads the bytes of frame i.
func (s Set) Frame(i int) ([]byte, error) {
	if i < 0 || i >= len(s.names) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, len(s.names))
	}
	return os.ReadFile(s.Path(i))
}

// Digest returns a content hash over every frame in order. Two sets with the
// same images in the same order share a digest.
func (s Set) Digest() (string, error) {
	h := sha256.New()
	for i := range s.names {
		f, err := os.Open(s.Path(i))
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", s.names[i], err)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Dimensions decodes the header of an image and returns its size in pixels.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// FrameSize returns the dimensions of the first frame of s, or
// [flow.DefaultFrame] when it cannot be decoded.
func FrameSize(s Set) flow.Frame {
	if s.Len() == 0 {
		return flow.DefaultFrame
	}
	data, err := s.Frame(0)
	if err != nil {
		return flow.DefaultFrame
	}
	w, h, err := Dimensions(data)
	if err != nil || w <= 0 || h <= 0 {
		return flow.DefaultFrame
	}
	return flow.Frame{Width: w, Height: h}
}

// ScreenName returns the exported file name of a screen image:
// {title}_{flowNum:02d}_{screenNum:02d}.{ext}. Path separators and spaces in
// the title are replaced.
func ScreenName(title string, flowNum, screenNum int, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "png"
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '-'
		}
		return r
	}, title)
	return fmt.Sprintf("%s_%02d_%02d.%s", clean, flowNum, screenNum, ext)
}
