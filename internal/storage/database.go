package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"codeRealityScanner/internal/logger"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Options 数据库初始化选项
type Options struct {
	DataDir         string
	FileName        string
	LogLevel        string        // silent, error, warn, info
	MaxOpenConns    int           // sqlite 建议 1
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	JournalMode     string // WAL
	Synchronous     string // NORMAL
	TempStore       string // MEMORY
	ForeignKeys     bool
}

// Setup 初始化报告库，进程内只执行一次
func Setup(opts Options) error {
	var err error

	once.Do(func() {
		if mkErr := os.MkdirAll(opts.DataDir, 0o755); mkErr != nil {
			err = fmt.Errorf("创建数据目录 %s 失败: %w", opts.DataDir, mkErr)
			logger.Error("报告库初始化失败", "err", err)
			return
		}

		dbPath := filepath.Join(opts.DataDir, opts.FileName)

		var level gormlogger.LogLevel
		switch strings.ToLower(opts.LogLevel) {
		case "silent":
			level = gormlogger.Silent
		case "error":
			level = gormlogger.Error
		case "info":
			level = gormlogger.Info
		default:
			level = gormlogger.Warn
		}

		conn, openErr := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger:                 gormlogger.Default.LogMode(level),
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
		})
		if openErr != nil {
			err = fmt.Errorf("打开 sqlite %s 失败: %w", dbPath, openErr)
			logger.Error("报告库初始化失败", "err", err)
			return
		}

		sqlDB, sqlErr := conn.DB()
		if sqlErr != nil {
			err = fmt.Errorf("获取底层连接失败: %w", sqlErr)
			return
		}
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

		// 连接数锁 1，PRAGMA 执行一次即可覆盖整个连接
		pragmas := []string{
			fmt.Sprintf("PRAGMA journal_mode = %s;", opts.JournalMode),
			fmt.Sprintf("PRAGMA synchronous = %s;", opts.Synchronous),
			fmt.Sprintf("PRAGMA temp_store = %s;", opts.TempStore),
		}
		if opts.ForeignKeys {
			pragmas = append(pragmas, "PRAGMA foreign_keys = ON;")
		}
		for _, p := range pragmas {
			if execErr := conn.Exec(p).Error; execErr != nil {
				err = fmt.Errorf("执行 %s 失败: %w", p, execErr)
				logger.Error("报告库初始化失败", "err", err)
				return
			}
		}

		if migErr := conn.AutoMigrate(&ReportRecord{}); migErr != nil {
			err = fmt.Errorf("建表失败: %w", migErr)
			return
		}

		db = conn
		logger.Info("报告库就绪", "path", dbPath, "journal_mode", opts.JournalMode)
	})

	return err
}

// GetDB 获取数据库实例
func GetDB() (*gorm.DB, error) {
	if db == nil {
		return nil, fmt.Errorf("报告库未初始化，先调用 Setup()")
	}
	return db, nil
}

// CloseDB 关闭数据库连接，测试收尾用
func CloseDB() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	db = nil
	once = sync.Once{}
	return err
}
