package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codeRealityScanner/internal/config"
	"codeRealityScanner/internal/storage"
)

var (
	flagHistoryLimit int
	flagHistoryShow  uint
	flagHistoryJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "查看历史扫描报告",
	Long: `查看报告库中的历史扫描记录。

示例:
  # 列出最近 20 条
  realityscan history

  # 查看指定报告全文
  realityscan history --show 3 --json`,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&flagHistoryLimit, "limit", 20, "列出条数")
	f.UintVar(&flagHistoryShow, "show", 0, "按 ID 查看完整报告")
	f.BoolVar(&flagHistoryJSON, "json", false, "以 JSON 输出")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		exitCode = exitConfig
		return err
	}
	cfg := config.Get()

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
		exitCode = exitConfig
		return err
	}
	db, err := storage.GetDB()
	if err != nil {
		exitCode = exitConfig
		return err
	}
	store := storage.NewReportStore(db, cfg.Storage.EncryptReports, cfg.Storage.ReportsLimit)

	// 查看单份报告全文
	if flagHistoryShow > 0 {
		r, err := store.Load(flagHistoryShow)
		if err != nil {
			return err
		}
		if flagHistoryJSON {
			return r.WriteJSON(os.Stdout)
		}
		r.WriteText(os.Stdout, true)
		return nil
	}

	metas, err := store.List(flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		colorYellow.Println("报告库为空，先用 scan --save 保存一次")
		return nil
	}

	colorCyan.Println("历史扫描报告:")
	fmt.Printf("%-5s %-20s %-8s %-8s %-6s %s\n",
		"ID", "时间", "总评", "平均分", "文件数", "扫描目录")
	for _, m := range metas {
		fmt.Printf("%-5d %-20s %-8s %-8.3f %-6d %s\n",
			m.ID, m.CreatedAt.Format("2006-01-02 15:04:05"),
			m.OverallGrade, m.AverageScore, m.TotalFiles, m.RootPath)
	}
	return nil
}
