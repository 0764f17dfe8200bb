package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"codeRealityScanner/internal/config"
	"codeRealityScanner/internal/realcheck/fileutil"
	"codeRealityScanner/internal/realcheck/rules"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示规则目录与运行配置",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		exitCode = exitConfig
		return err
	}
	cfg := config.Get()

	colorCyan.Printf("%s v%s\n\n", appName, config.Version)

	if err := rules.ValidateCatalog(); err != nil {
		exitCode = exitConfig
		colorRed.Printf("规则目录异常: %v\n", err)
		return err
	}

	fab := rules.PatternsByCategory(rules.CategoryFabrication)
	gam := rules.PatternsByCategory(rules.CategoryMetricGaming)
	colorGreen.Printf("规则目录正常: %d 条\n", len(rules.AllPatterns))
	fmt.Printf("  伪造实现: %d 条\n", len(fab))
	fmt.Printf("  指标操纵: %d 条\n", len(gam))
	fmt.Println()

	fmt.Printf("扫描扩展名: %s\n", strings.Join(cfg.Scanner.Extensions, ", "))
	fmt.Printf("真实性阈值: %.2f\n", cfg.Checker.Threshold)
	fmt.Printf("并发工作数: %d\n", cfg.Scanner.Workers)
	fmt.Println()

	dbPath := filepath.Join(cfg.Agent.DataDir, cfg.Database.FileName)
	if fileutil.FileExists(dbPath) {
		colorGreen.Printf("报告库: %s\n", dbPath)
	} else {
		colorYellow.Printf("报告库: %s (尚未创建)\n", dbPath)
	}
	return nil
}
