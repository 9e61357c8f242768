package importer

import (
	"context"
	"fmt"

	"globfam/config"
	"globfam/service"
	"globfam/storage"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// FromConfig 按配置组装导入服务：归档、邮件通知与分类器
// 返回的 closer 用于释放归档客户端
func FromConfig(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Importer, func() error, error) {
	archiver, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	opts := []Option{
		WithArchiver(archiver),
		WithNotifier(service.NewEmailService(&cfg.Email)),
	}

	keyword := NewKeywordCategorizer(nil)
	if cfg.AI.Enabled {
		gemini, err := NewGeminiCategorizer(ctx, cfg.AI)
		if err != nil {
			// AI 不可用时退回关键词分类，不影响导入
			log.Warn().Err(err).Msg("初始化 Gemini 分类器失败，仅使用关键词分类")
			opts = append(opts, WithCategorizer(keyword, cfg.AI.MinConfidence))
		} else {
			opts = append(opts, WithCategorizer(&FallbackCategorizer{Primary: gemini, Secondary: keyword}, cfg.AI.MinConfidence))
			log.Info().Str("model", cfg.AI.Model).Msg("已启用 Gemini 分类")
		}
	} else {
		opts = append(opts, WithCategorizer(keyword, cfg.AI.MinConfidence))
	}

	return New(db, cfg.Import, opts...), archiver.Close, nil
}
