package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"codeRealityScanner/internal/config"
	"codeRealityScanner/internal/logger"
	checkerrors "codeRealityScanner/internal/realcheck/errors"
	"codeRealityScanner/internal/report"
	"codeRealityScanner/internal/scanner"
	"codeRealityScanner/internal/storage"
)

var (
	flagExt         string
	flagRecursive   bool
	flagThreshold   float64
	flagConcurrency int
	flagFormat      string
	flagOutput      string
	flagSave        bool
	flagVerbose     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <目录或文件>",
	Short: "扫描源码目录并给出真实性报告",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&flagExt, "ext", "", "扩展名列表，逗号分隔 (默认取配置)")
	f.BoolVar(&flagRecursive, "recursive", true, "递归扫描子目录")
	f.Float64Var(&flagThreshold, "threshold", 0, "真实性阈值 (0,1]，默认取配置")
	f.IntVar(&flagConcurrency, "concurrency", 0, "并发工作数，默认取配置")
	f.StringVar(&flagFormat, "format", "text", "输出格式: text | json")
	f.StringVar(&flagOutput, "output", "", "把 JSON 报告写入文件")
	f.BoolVar(&flagSave, "save", false, "把报告存入历史库")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "文本报告附带文件明细")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		exitCode = exitConfig
		return err
	}
	cfg := config.Get()

	opts, err := buildScanOptions(cmd, cfg)
	if err != nil {
		exitCode = exitConfig
		colorRed.Fprintln(os.Stderr, err)
		return err
	}
	if flagFormat != "text" && flagFormat != "json" {
		exitCode = exitConfig
		return fmt.Errorf("未知输出格式: %s", flagFormat)
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if cfg.Scanner.Timeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, cfg.Scanner.Timeout)
		defer tcancel()
	}

	summary, err := scanner.Scan(ctx, args[0], opts)
	if err != nil {
		var ce *checkerrors.CheckerError
		if errors.As(err, &ce) && ce.IsFatal() {
			// 扫描尚未开始的配置类失败
			exitCode = exitConfig
			return err
		}
		if summary == nil {
			exitCode = exitConfig
			return err
		}
		// 取消等情况: 带着部分结果继续出报告
		colorYellow.Fprintf(os.Stderr, "扫描提前结束: %v\n", err)
	}

	r := report.Build(summary)

	switch flagFormat {
	case "json":
		if err := r.WriteJSON(os.Stdout); err != nil {
			return err
		}
	default:
		r.WriteText(os.Stdout, flagVerbose)
	}

	if flagOutput != "" {
		if err := r.SaveJSON(flagOutput); err != nil {
			return fmt.Errorf("写报告文件失败: %w", err)
		}
		colorCyan.Printf("JSON 报告已写入 %s\n", flagOutput)
	}

	if flagSave || cfg.Storage.SaveReports {
		if err := saveReport(cfg, r); err != nil {
			// 入库失败不影响扫描结论
			colorYellow.Fprintf(os.Stderr, "报告入库失败: %v\n", err)
			logger.Error("报告入库失败", "err", err)
		}
	}

	exitCode = summary.ExitCode()
	return nil
}

// buildScanOptions 配置给默认值，命令行给了就覆盖
func buildScanOptions(cmd *cobra.Command, cfg *config.AppConfig) (scanner.Options, error) {
	opts := scanner.Options{
		Extensions:    cfg.Scanner.Extensions,
		Recursive:     cfg.Scanner.Recursive,
		Workers:       cfg.Scanner.Workers,
		Threshold:     cfg.Checker.Threshold,
		MaxFileSize:   cfg.Scanner.MaxFileSize,
		ProgressEvery: cfg.Scanner.ProgressEvery,
	}

	if flagExt != "" {
		opts.Extensions = splitExtensions(flagExt)
	}
	if cmd.Flags().Changed("recursive") {
		opts.Recursive = flagRecursive
	}
	if flagThreshold != 0 {
		opts.Threshold = flagThreshold
	}
	if flagConcurrency != 0 {
		opts.Workers = flagConcurrency
	}

	if len(opts.Extensions) == 0 {
		return opts, fmt.Errorf("扩展名列表为空")
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		return opts, fmt.Errorf("阈值 %v 不在 (0,1] 内", opts.Threshold)
	}
	return opts, nil
}

func splitExtensions(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.TrimPrefix(part, "."))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// saveReport 初始化报告库并写入
func saveReport(cfg *config.AppConfig, r *report.Report) error {
	if err := storage.Setup(storage.Options{
		DataDir:         cfg.Agent.DataDir,
		FileName:        cfg.Database.FileName,
		LogLevel:        cfg.Database.LogLevel,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		JournalMode:     cfg.Database.JournalMode,
		Synchronous:     cfg.Database.Synchronous,
		TempStore:       cfg.Database.TempStore,
		ForeignKeys:     cfg.Database.ForeignKeys,
	}); err != nil {
		return err
	}
	db, err := storage.GetDB()
	if err != nil {
		return err
	}
	store := storage.NewReportStore(db, cfg.Storage.EncryptReports, cfg.Storage.ReportsLimit)
	id, err := store.Save(r)
	if err != nil {
		return err
	}
	colorGreen.Printf("报告已保存 (id=%d)\n", id)
	return nil
}
