package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"globfam/config"
)

// Archiver 保存上传的导入文件，返回可追溯的 URI
type Archiver interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Close() error
}

// New 按 storage.driver 创建归档器
func New(ctx context.Context, cfg config.StorageConfig) (Archiver, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return Noop{}, nil
	case "local":
		return NewLocal(cfg.LocalDir)
	case "gcs":
		return NewGCS(ctx, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ObjectKey 导入文件的归档路径：imports/<org>/<batch>/<file>
func ObjectKey(orgID uint, batchID, fileName string) string {
	name := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return path.Join("imports", fmt.Sprintf("%d", orgID), batchID, name)
}

// Noop 不归档
type Noop struct{}

// Put 直接返回空 URI
func (Noop) Put(context.Context, string, []byte) (string, error) { return "", nil }

// Close 无资源需要释放
func (Noop) Close() error { return nil }
