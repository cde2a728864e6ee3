package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/ports/outbound"
)

// DirectorySharer copies saved images into a local folder, typically one
// synced to a shared drive.
type DirectorySharer struct {
	dir    string
	logger *zap.Logger
}

var _ outbound.ImageSharer = (*DirectorySharer)(nil)

// NewDirectorySharer creates a directory sharer. An empty dir disables it.
func NewDirectorySharer(dir string, logger *zap.Logger) *DirectorySharer {
	return &DirectorySharer{dir: dir, logger: logger.Named("dir-sharer")}
}

// Name implements outbound.ImageSharer.
func (d *DirectorySharer) Name() string { return "directory" }

// CanShare reports whether the directory is configured and can be created.
func (d *DirectorySharer) CanShare(context.Context) bool {
	if d.dir == "" {
		return false
	}
	return os.MkdirAll(d.dir, 0o755) == nil
}

// Share writes the file without overwriting an existing one.
func (d *DirectorySharer) Share(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	for n := 0; n < 100; n++ {
		name := filename
		if n > 0 {
			name = fmt.Sprintf("%s (%d)%s", base, n, ext)
		}
		target := filepath.Join(d.dir, name)

		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", target, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(target)
			return "", fmt.Errorf("write %s: %w", target, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", target, err)
		}

		d.logger.Info("Image written", zap.String("path", target), zap.Int("bytes", len(data)))
		return target, nil
	}

	return "", fmt.Errorf("no free file name for %s in %s", filename, d.dir)
}
