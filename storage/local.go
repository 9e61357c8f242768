package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local 归档到本地目录
type Local struct {
	dir string
}

// NewLocal 创建本地归档器，目录不存在时自动创建
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage.local_dir is required for the local driver")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Local{dir: abs}, nil
}

// Put 写入文件，返回 file:// URI
func (l *Local) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("create archive path: %w", err)
	}
	if err := os.WriteFile(target, data, 0o640); err != nil {
		return "", fmt.Errorf("write archive %q: %w", key, err)
	}
	return "file://" + filepath.ToSlash(target), nil
}

// Close 无资源需要释放
func (l *Local) Close() error { return nil }
