package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/campusqa/api/handlers"
	"github.com/BaSui01/campusqa/config"
	"github.com/BaSui01/campusqa/internal/cache"
	"github.com/BaSui01/campusqa/internal/database"
	"github.com/BaSui01/campusqa/internal/metrics"
	"github.com/BaSui01/campusqa/internal/server"
	"github.com/BaSui01/campusqa/internal/store"
	"github.com/BaSui01/campusqa/internal/telemetry"
	"github.com/BaSui01/campusqa/llm"
	"github.com/BaSui01/campusqa/llm/tokenizer"
	"github.com/BaSui01/campusqa/qa"
	"github.com/BaSui01/campusqa/rag"
	"github.com/BaSui01/campusqa/search"
)

// warmupTimeout 限制启动预热的总时长，超时直接放弃剩余问题
const warmupTimeout = 30 * time.Second

// warmupConcurrency 预热检索的并发度
const warmupConcurrency = 4

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 CampusQA 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Handlers
	askHandler    *handlers.AskHandler
	wsHandler     *handlers.WSHandler
	healthHandler *handlers.HealthHandler
	statsHandler  *handlers.StatsHandler
	adminHandler  *handlers.AdminHandler

	// 问答流水线及其依赖
	retriever   *rag.Retriever
	pipeline    *qa.Pipeline
	poolManager *database.PoolManager

	// 回答缓存；Redis 不可用时二者为 nil，流水线直接计算
	cacheManager *cache.Manager
	answerCache  *cache.AnswerCache

	// 指标收集器
	metricsCollector *metrics.Collector

	// OpenTelemetry providers（可为 nil）
	otelProviders *telemetry.Providers

	// 后台 goroutine 生命周期管理
	rateLimiterCancel context.CancelFunc
	warmupCancel      context.CancelFunc

	wg sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("campusqa", s.logger)

	// 2. 构建问答流水线（知识库 → 检索 → 搜索增强 → 合成 → 缓存）
	if err := s.buildPipeline(); err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	// 3. 初始化 Handlers
	s.initHandlers()

	// 4. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// 6. 后台预热检索路径
	s.startWarmup()

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("cache_enabled", s.answerCache != nil),
	)

	return nil
}

// =============================================================================
// 🔧 流水线装配
// =============================================================================

// buildPipeline 装配完整问答流水线。
// 数据库或 Redis 不可用都不阻塞启动，只收缩到对应的降级形态。
func (s *Server) buildPipeline() error {
	// 知识库装载
	docs := s.loadKnowledge()

	// 本地向量检索
	embedder := rag.NewHashEmbedder(s.cfg.Retrieval.Dimension)
	index := rag.NewInMemoryIndex(s.logger)
	s.retriever = rag.NewRetriever(rag.RetrieverConfig{MinScore: s.cfg.Retrieval.MinScore}, embedder, index, s.logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.retriever.Index(ctx, docs); err != nil {
		return fmt.Errorf("failed to index knowledge: %w", err)
	}
	s.logger.Info("知识库索引构建完成", zap.Int("documents", len(docs)))

	// 外部搜索增强，按配置顺序注册 provider
	augmenter := search.NewAugmenter(s.logger)
	for _, p := range s.cfg.Search.Providers() {
		if !p.Config.Enabled {
			continue
		}
		switch p.Name {
		case "mock":
			augmenter.Register(search.NewMockProvider(), p.Config.Timeout)
		case "gugudata":
			augmenter.Register(search.NewGuguDataProvider(p.Config.Endpoint, p.Config.APIKey, s.logger), p.Config.Timeout)
		case "serpapi":
			augmenter.Register(search.NewSerpAPIProvider(p.Config.Endpoint, p.Config.APIKey, s.logger), p.Config.Timeout)
		}
	}
	s.logger.Info("搜索增强已装配", zap.Strings("providers", augmenter.ProviderNames()))

	// 大模型客户端（带指标埋点）
	var client llm.Client = llm.NewSiliconFlowClient(llm.ClientConfig{
		APIKey:      s.cfg.Model.APIKey,
		BaseURL:     s.cfg.Model.Endpoint,
		Model:       s.cfg.Model.Name,
		Temperature: s.cfg.Model.Temperature,
		MaxTokens:   s.cfg.Model.MaxTokens,
	}, s.logger)
	client = llm.NewInstrumentedClient(client, s.cfg.Model.Name, s.metricsCollector, s.logger)

	// 提示词与回答合成
	prompts := qa.NewPromptBuilder(qa.PromptConfig{
		HistoryTurns:    s.cfg.Answer.HistoryTurns,
		MaxPromptTokens: s.cfg.Answer.MaxPromptTokens,
	}, tokenizer.New(s.logger), s.logger)

	synth := qa.NewSynthesizer(qa.SynthesizerConfig{
		Timeout:     s.cfg.Model.Timeout,
		Temperature: s.cfg.Model.Temperature,
		MaxTokens:   s.cfg.Model.MaxTokens,
		MaxRetries:  s.cfg.Model.MaxRetries,
	}, client, prompts, s.logger)

	// 回答缓存：Redis 连不上只告警，不影响问答
	opts := []qa.PipelineOption{qa.WithMetrics(s.metricsCollector)}
	if s.cfg.Cache.Enabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = s.cfg.Cache.Addr
		cacheCfg.Password = s.cfg.Cache.Password
		cacheCfg.DB = s.cfg.Cache.DB
		if s.cfg.Cache.PoolSize > 0 {
			cacheCfg.PoolSize = s.cfg.Cache.PoolSize
		}
		if s.cfg.Cache.TTL > 0 {
			cacheCfg.DefaultTTL = s.cfg.Cache.TTL
		}

		manager, err := cache.NewManager(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn("Redis 不可用，回答缓存已停用", zap.Error(err))
		} else {
			s.cacheManager = manager
			s.answerCache = cache.NewAnswerCache(manager, s.cfg.Cache.TTL, s.logger,
				cache.WithCollector(s.metricsCollector))
			opts = append(opts, qa.WithAnswerCache(s.answerCache))
		}
	}

	s.pipeline = qa.NewPipeline(qa.PipelineConfig{
		TopK:       s.cfg.Retrieval.TopK,
		MaxSources: s.cfg.Answer.MaxSources,
	}, s.retriever, augmenter, synth, s.logger, opts...)

	return nil
}

// loadKnowledge 从数据库装载知识库文档。
// 数据库打不开、迁移失败或表为空时退回内置语料，索引永远有内容。
func (s *Server) loadKnowledge() []rag.Document {
	db, err := openDatabase(s.cfg.Database, s.logger)
	if err != nil {
		s.logger.Warn("数据库不可用，使用内置语料构建索引", zap.Error(err))
		return toRAGDocuments(store.BuiltinCorpus())
	}

	pool, err := database.NewPoolManager(db, poolConfigFrom(s.cfg.Database), s.logger,
		database.WithCollector(s.metricsCollector))
	if err != nil {
		s.logger.Warn("连接池初始化失败，使用内置语料构建索引", zap.Error(err))
		return toRAGDocuments(store.BuiltinCorpus())
	}
	s.poolManager = pool

	st := store.NewStore(db, s.logger, store.WithCollector(s.metricsCollector))
	if err := st.AutoMigrate(); err != nil {
		s.logger.Warn("知识库表迁移失败，使用内置语料构建索引", zap.Error(err))
		return toRAGDocuments(store.BuiltinCorpus())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := st.Seed(ctx); err != nil {
		s.logger.Warn("内置语料写入失败", zap.Error(err))
	}

	docs, err := st.LoadAll(ctx)
	if err != nil || len(docs) == 0 {
		s.logger.Warn("知识库为空，使用内置语料构建索引", zap.Error(err))
		return toRAGDocuments(store.BuiltinCorpus())
	}

	return toRAGDocuments(docs)
}

// poolConfigFrom 把数据库配置映射到连接池配置，未设置的字段保留默认值
func poolConfigFrom(cfg config.DatabaseConfig) database.PoolConfig {
	pc := database.DefaultPoolConfig()
	if cfg.MaxOpenConns > 0 {
		pc.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		pc.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	return pc
}

// toRAGDocuments 把持久层文档转换为检索层文档
func toRAGDocuments(docs []store.Document) []rag.Document {
	out := make([]rag.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, rag.Document{
			ID:      d.DocID,
			Title:   d.Title,
			Content: d.Content,
			URL:     d.URL,
		})
	}
	return out
}

// =============================================================================
// 🔧 Handlers 初始化
// =============================================================================

// initHandlers 初始化所有 handlers 并注册健康检查项
func (s *Server) initHandlers() {
	s.askHandler = handlers.NewAskHandler(s.pipeline, s.logger)
	s.wsHandler = handlers.NewWSHandler(s.pipeline, s.cfg.Server.CORSAllowedOrigins, s.logger)

	s.healthHandler = handlers.NewHealthHandler(Version, s.logger)
	s.healthHandler.RegisterCheck(handlers.NewComponentCheck("index", func(ctx context.Context) error {
		n, err := s.retriever.Count(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("knowledge index is empty")
		}
		return nil
	}))
	s.healthHandler.RegisterCheck(handlers.NewComponentCheck("model", func(ctx context.Context) error {
		if s.cfg.Model.APIKey == "" {
			return fmt.Errorf("model api key not configured")
		}
		return nil
	}))

	// 缓存组件按实际装配情况注册；接口变量保持真 nil，避免包裹空指针
	var (
		answerStats handlers.AnswerStatsSource
		redisStats  handlers.RedisStatsSource
		flusher     handlers.CacheFlusher
	)
	if s.answerCache != nil {
		answerStats = s.answerCache
		flusher = s.answerCache
	}
	if s.cacheManager != nil {
		redisStats = s.cacheManager
		s.healthHandler.RegisterCheck(handlers.NewComponentCheck("cache", s.cacheManager.Ping))
	}

	s.statsHandler = handlers.NewStatsHandler(s.retriever, answerStats, redisStats, s.logger)
	s.adminHandler = handlers.NewAdminHandler(flusher, s.logger)

	s.logger.Info("Handlers initialized")
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动问答 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)

	// ========================================
	// 问答 API 路由
	// ========================================
	mux.HandleFunc("/api/ask", s.askHandler.HandleAsk)
	mux.HandleFunc("/ws/ask", s.wsHandler.HandleWS)
	mux.HandleFunc("/api/stats", s.statsHandler.HandleStats)
	mux.HandleFunc("/api/admin/clear_cache", s.adminHandler.HandleClearCache)

	// ========================================
	// 构建中间件链
	// ========================================
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
	}
	if s.cfg.Telemetry.Enabled {
		middlewares = append(middlewares, OTelTracing())
	}
	middlewares = append(middlewares,
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst,
			[]string{"/health"}, s.logger),
	)
	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                      // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	// 启动服务器（非阻塞）；证书齐全时走 HTTPS
	if s.cfg.Server.TLSCertFile != "" && s.cfg.Server.TLSKeyFile != "" {
		if err := s.httpManager.StartTLS(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile); err != nil {
			return err
		}
		s.logger.Info("HTTPS server started", zap.Int("port", s.cfg.Server.HTTPPort))
		return nil
	}

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🔥 检索预热
// =============================================================================

// startWarmup 在后台用内置问题跑一遍嵌入与索引查找，
// 只触达检索路径，不调用模型。
func (s *Server) startWarmup() {
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	s.warmupCancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		docs := store.BuiltinCorpus()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(warmupConcurrency)
		for _, doc := range docs {
			question := doc.Title
			g.Go(func() error {
				if _, err := s.retriever.Retrieve(gctx, question, 1); err != nil {
					s.logger.Debug("预热检索失败",
						zap.String("question", question),
						zap.Error(err))
				}
				return nil
			})
		}
		g.Wait()

		s.logger.Info("检索路径预热完成", zap.Int("questions", len(docs)))
	}()
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	// 使用 httpManager 的 WaitForShutdown（它会监听信号）
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	// 执行清理
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止后台 goroutine（限流清理、预热）
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.warmupCancel != nil {
		s.warmupCancel()
	}

	// 1. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 3. 释放缓存连接
	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("Cache manager close error", zap.Error(err))
		}
	}

	// 4. 释放数据库连接池
	if s.poolManager != nil {
		if err := s.poolManager.Close(); err != nil {
			s.logger.Error("Database pool close error", zap.Error(err))
		}
	}

	// 5. 上报在途遥测数据
	if s.otelProviders != nil {
		otelCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.otelProviders.Shutdown(otelCtx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
		cancel()
	}

	// 6. 等待所有 goroutine 完成
	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
