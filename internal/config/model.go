// Package config
package config

import "time"

// ==========================================
// 顶层配置结构
// ==========================================

type AppConfig struct {
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Scanner  ScannerConfig  `mapstructure:"scanner" yaml:"scanner"`
	Checker  CheckerConfig  `mapstructure:"checker" yaml:"checker"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
}

// ==========================================
// 1. 基础配置
// ==========================================

type AgentConfig struct {
	// 日志级别: debug, info, warn, error
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// 日志文件路径
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
	// 数据存储目录
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// 日志轮转配置
	LogMaxSize    int  `mapstructure:"log_max_size" yaml:"log_max_size"`       // MB
	LogMaxBackups int  `mapstructure:"log_max_backups" yaml:"log_max_backups"` // 个数
	LogMaxAge     int  `mapstructure:"log_max_age" yaml:"log_max_age"`         // 天数
	LogCompress   bool `mapstructure:"log_compress" yaml:"log_compress"`       // 是否压缩
	LogStdout     bool `mapstructure:"log_stdout" yaml:"log_stdout"`           // 是否打印到控制台
}

// ==========================================
// 2. 扫描配置
// ==========================================

type ScannerConfig struct {
	// 默认扫描的源码扩展名
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
	// 是否递归扫描子目录
	Recursive bool `mapstructure:"recursive" yaml:"recursive"`
	// 并行处理的协程数
	Workers int `mapstructure:"workers" yaml:"workers"`
	// 进度日志输出间隔 (每 N 个文件)
	ProgressEvery int `mapstructure:"progress_every" yaml:"progress_every"`
	// 单文件大小上限 (字节)
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size"`
	// 整体扫描超时
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ==========================================
// 3. 检测配置
// ==========================================

type CheckerConfig struct {
	// 真实性判定阈值 (0-1)
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
	// 详细模式
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// ==========================================
// 4. 数据库配置
// ==========================================

type DatabaseConfig struct {
	// 数据库文件名
	FileName string `mapstructure:"file_name" yaml:"file_name"`
	// GORM 日志级别: silent, error, warn, info
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// 最大打开连接数 (SQLite 建议 1)
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	// 最大空闲连接数 (SQLite 建议 1)
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	// SQLite Journal 模式: WAL, DELETE, TRUNCATE, PERSIST, MEMORY
	JournalMode string `mapstructure:"journal_mode" yaml:"journal_mode"`
	// SQLite 同步模式: FULL, NORMAL, OFF
	Synchronous string `mapstructure:"synchronous" yaml:"synchronous"`
	// SQLite 临时存储: MEMORY, FILE
	TempStore string `mapstructure:"temp_store" yaml:"temp_store"`
	// 是否启用外键约束
	ForeignKeys bool `mapstructure:"foreign_keys" yaml:"foreign_keys"`
}

// ==========================================
// 5. 存储引擎配置
// ==========================================

type StorageConfig struct {
	// 是否持久化扫描报告
	SaveReports bool `mapstructure:"save_reports" yaml:"save_reports"`
	// 报告保留条数上限，超过后淘汰最旧记录
	ReportsLimit int `mapstructure:"reports_limit" yaml:"reports_limit"`
	// 是否对落盘报告加密
	EncryptReports bool `mapstructure:"encrypt_reports" yaml:"encrypt_reports"`
}
