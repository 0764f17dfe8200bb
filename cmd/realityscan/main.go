package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"codeRealityScanner/internal/config"
	"codeRealityScanner/internal/logger"
)

const appName = "realityscan"

// ==========================================
// 退出码约定
// 0: 未发现 critical / 指标操纵
// 1: 发现 critical 或指标操纵
// 2: 扫描开始前的配置错误
// ==========================================

const (
	exitOK       = 0
	exitFindings = 1
	exitConfig   = 2
)

var exitCode = exitOK

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
)

// ==========================================
// 根命令
// ==========================================

var configPath string

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "代码真实性扫描器",
	Long: `代码真实性扫描器

对源码目录做静态检测，识别伪造实现 (桩函数、罐装数据、硬编码凭证)
与指标操纵 (覆盖率豁免、恒真断言、检测结果抑制)，为每个文件给出
[0,1] 的真实性得分和评级，汇总成目录级报告。

示例:
  # 扫描当前目录
  realityscan scan .

  # 指定扩展名与阈值，输出 JSON
  realityscan scan ./src --ext go,py --threshold 0.9 --format json

  # 保存报告并查看历史
  realityscan scan ./src --save
  realityscan history`,
	Version: config.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"配置文件路径 (默认查找 /etc/codeRealityScanner/ 与当前目录)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
}

// setup 加载配置并初始化日志，所有子命令共用
func setup() error {
	if err := config.LoadConfig(configPath); err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	cfg := config.Get()
	if err := logger.Setup(logger.Options{
		Level:      cfg.Agent.LogLevel,
		FilePath:   cfg.Agent.LogFile,
		MaxSize:    cfg.Agent.LogMaxSize,
		MaxBackups: cfg.Agent.LogMaxBackups,
		MaxAge:     cfg.Agent.LogMaxAge,
		Compress:   cfg.Agent.LogCompress,
		Stdout:     cfg.Agent.LogStdout,
	}); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if exitCode == exitOK {
			exitCode = exitConfig
		}
	}
	os.Exit(exitCode)
}
