package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/campusqa/internal/metrics"
)

// =============================================================================
// 📚 知识库存取
// =============================================================================

// seedMaxRetries 种子写入的事务重试上限
const seedMaxRetries = 3

// Store 知识库文档存取层
type Store struct {
	db        *gorm.DB
	collector *metrics.Collector
	driver    string
	logger    *zap.Logger
}

// StoreOption 配置 Store 的可选依赖。
type StoreOption func(*Store)

// WithCollector 启用数据库查询耗时指标。
func WithCollector(collector *metrics.Collector) StoreOption {
	return func(s *Store) { s.collector = collector }
}

// NewStore 创建知识库存取层
func NewStore(db *gorm.DB, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		db:     db,
		driver: db.Dialector.Name(),
		logger: logger.With(zap.String("component", "store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoMigrate 迁移知识库表结构
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Document{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// Seed 在表为空时写入内置语料，返回写入条数
func (s *Store) Seed(ctx context.Context) (int, error) {
	start := time.Now()

	count, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Debug("知识库已有数据，跳过内置语料", zap.Int64("count", count))
		return 0, nil
	}

	docs := BuiltinCorpus()
	err = s.withTransactionRetry(ctx, seedMaxRetries, func(tx *gorm.DB) error {
		return tx.Create(&docs).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed documents: %w", err)
	}

	s.observe("seed", start)
	s.logger.Info("内置语料已写入知识库", zap.Int("count", len(docs)))
	return len(docs), nil
}

// LoadAll 按主键顺序加载全部文档
func (s *Store) LoadAll(ctx context.Context) ([]Document, error) {
	start := time.Now()

	var docs []Document
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	s.observe("load_all", start)
	return docs, nil
}

// Count 返回文档总数
func (s *Store) Count(ctx context.Context) (int64, error) {
	start := time.Now()

	var count int64
	if err := s.db.WithContext(ctx).Model(&Document{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	s.observe("count", start)
	return count, nil
}

// observe 上报查询耗时
func (s *Store) observe(operation string, start time.Time) {
	if s.collector != nil {
		s.collector.RecordDBQuery(s.driver, operation, time.Since(start))
	}
}

// =============================================================================
// 🔄 事务重试
// =============================================================================

// withTransaction 在事务中执行 fn
func (s *Store) withTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// withTransactionRetry 在事务中执行 fn，可重试错误按指数退避重试
func (s *Store) withTransactionRetry(ctx context.Context, maxRetries int, fn func(tx *gorm.DB) error) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := s.withTransaction(ctx, fn)
		if err == nil {
			return nil
		}

		lastErr = err

		// 仅死锁、锁竞争、连接抖动等场景值得重试
		if !isRetryableError(err) {
			return err
		}

		s.logger.Warn("事务执行失败，准备重试",
			zap.Int("attempt", i+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		// 指数退避
		backoff := time.Duration(1<<uint(i)) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("transaction failed after %d retries: %w", maxRetries, lastErr)
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())

	// 死锁
	if strings.Contains(errMsg, "deadlock") {
		return true
	}

	// 序列化失败（PostgreSQL SQLSTATE 40001）
	if strings.Contains(errMsg, "serialization failure") || strings.Contains(errMsg, "40001") {
		return true
	}

	// SQLite 写锁竞争
	if strings.Contains(errMsg, "database is locked") || strings.Contains(errMsg, "database table is locked") {
		return true
	}

	// 连接相关错误
	if strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "broken pipe") {
		return true
	}

	// 锁超时
	if strings.Contains(errMsg, "lock timeout") || strings.Contains(errMsg, "lock wait timeout") {
		return true
	}

	// driver: bad connection（Go database/sql 标准错误）
	if strings.Contains(errMsg, "bad connection") {
		return true
	}

	return false
}
