package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps the checkpoint in a local file. Writes go to a
// temporary file in the same directory which is synced and then renamed
// over the target.
type FileBackend struct {
	Path string
}

func (b *FileBackend) Read(ctx context.Context) ([]byte, bool, error) {
	stat, err := os.Stat(b.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return nil, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(b.Path)
	if err != nil {
		return nil, false, fmt.Errorf("read checkpoint: %w", err)
	}
	return data, true, nil
}

func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(b.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create checkpoint tmp: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync checkpoint tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint tmp: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, b.Path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	committed = true

	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
