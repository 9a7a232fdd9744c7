package frame

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/MeKo-Tech/cardscan/internal/utils"
)

// DirSource cycles through the decodable images of a directory in name order.
// Files that fail to decode are logged and skipped.
type DirSource struct {
	*StaticSource
	Paths []string
}

// NewDirSource loads every supported image in dir. With loop set the
// sequence restarts after the last file.
func NewDirSource(dir string, loop bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var (
		paths  []string
		images []image.Image
	)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && utils.IsSupportedImage(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		p := filepath.Join(dir, name)
		img, err := utils.LoadImage(p)
		if err != nil {
			slog.Warn("Skipping unreadable frame", "path", p, "error", err)
			continue
		}
		paths = append(paths, p)
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no supported images found in %s", dir)
	}

	return &DirSource{StaticSource: NewStaticSource(loop, images...), Paths: paths}, nil
}

// Load decodes a single image file into a frame.
func Load(path string) (*Frame, error) {
	img, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat frame: %w", err)
	}
	return New(img, info.ModTime()), nil
}
