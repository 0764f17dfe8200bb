// Package logger 统一日志封装
// 基于 log/slog + lumberjack 轮转，全局单例，业务模块直接调用包级函数
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 日志初始化选项
type Options struct {
	Level      string // debug, info, warn, error
	FilePath   string // 日志文件路径，空则只输出到控制台
	MaxSize    int    // 单文件大小上限 (MB)
	MaxBackups int    // 保留的旧文件个数
	MaxAge     int    // 保留天数
	Compress   bool   // 是否压缩旧日志
	Stdout     bool   // 是否同时输出到控制台
}

var (
	defaultLogger *slog.Logger
	setupOnce     sync.Once
)

// Setup 初始化日志系统
// 未调用 Setup 时，包级函数退化为输出到 stderr 的默认 logger
func Setup(opts Options) error {
	var err error

	setupOnce.Do(func() {
		var writers []io.Writer

		if opts.FilePath != "" {
			if mkErr := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); mkErr != nil {
				err = mkErr
				return
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.FilePath,
				MaxSize:    opts.MaxSize,
				MaxBackups: opts.MaxBackups,
				MaxAge:     opts.MaxAge,
				Compress:   opts.Compress,
			})
		}

		if opts.Stdout || opts.FilePath == "" {
			writers = append(writers, os.Stderr)
		}

		handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
			Level: parseLevel(opts.Level),
		})

		defaultLogger = slog.New(handler)
	})

	return err
}

// parseLevel 解析日志级别字符串
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// get 获取当前 logger (懒初始化兜底)
func get() *slog.Logger {
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

// Debug 输出调试日志
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// Info 输出信息日志
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// Warn 输出警告日志
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error 输出错误日志
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}
