// =============================================================================
// 📦 CampusQA 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
		Database:  DefaultDatabaseConfig(),
		Cache:     DefaultCacheConfig(),
		Retrieval: DefaultRetrievalConfig(),
		Search:    DefaultSearchConfig(),
		Model:     DefaultModelConfig(),
		Answer:    DefaultAnswerConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Path:            "campusqa.db",
		Host:            "localhost",
		Port:            5432,
		User:            "campusqa",
		Name:            "campusqa",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:  false,
		Addr:     "localhost:6379",
		DB:       0,
		PoolSize: 10,
		TTL:      2 * time.Hour,
	}
}

// DefaultRetrievalConfig 返回默认检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Dimension: 128,
		TopK:      5,
		MinScore:  0.3,
	}
}

// DefaultSearchConfig 返回默认搜索增强配置
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Mock: ProviderConfig{
			Enabled: true,
			Timeout: 30 * time.Second,
		},
		GuguData: ProviderConfig{
			Enabled:  false,
			Endpoint: "https://api.gugudata.com/metadata/ceemajor",
			Timeout:  30 * time.Second,
		},
		SerpAPI: ProviderConfig{
			Enabled:  false,
			Endpoint: "https://serpapi.com/search",
			Timeout:  30 * time.Second,
		},
	}
}

// DefaultModelConfig 返回默认模型配置
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Endpoint:    "https://api.siliconflow.cn/v1",
		Name:        "deepseek-ai/DeepSeek-R1-Distill-Qwen-7B",
		Timeout:     100 * time.Second,
		Temperature: 0.7,
		MaxTokens:   1000,
		MaxRetries:  1,
	}
}

// DefaultAnswerConfig 返回默认回答配置
func DefaultAnswerConfig() AnswerConfig {
	return AnswerConfig{
		MaxSources:      5,
		HistoryTurns:    3,
		MaxPromptTokens: 3000,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "campusqa",
		SampleRate:   1.0,
	}
}
