package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"codeRealityScanner/internal/logger"
	"codeRealityScanner/internal/realcheck"
	checkerrors "codeRealityScanner/internal/realcheck/errors"
	"codeRealityScanner/internal/realcheck/fileutil"
	"codeRealityScanner/internal/realcheck/rules"
)

// Options 扫描参数
type Options struct {
	Extensions    []string // 纳入扫描的扩展名 (不带点)
	Recursive     bool     // 是否递归子目录
	Workers       int      // 并发工作数，<=0 取 CPU 数
	Threshold     float64  // 真实性阈值 (0,1]，0 表示未设置、取默认值 0.95
	MaxFileSize   int64    // 单文件大小上限
	ProgressEvery int      // 每处理 N 个文件输出一次进度，<=0 关闭
}

// ErrorEntry 单文件处理失败记录
type ErrorEntry struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"` // file_read_error / structural_parse_error / ...
	Message string `json:"message"`
}

// ScanSummary 一次目录扫描的汇总
type ScanSummary struct {
	RootPath      string              `json:"root_path"`
	TotalFiles    int                 `json:"total_files"` // 结果数 + 错误数
	RealFiles     int                 `json:"real_files"`
	AverageScore  float64             `json:"average_score"`
	GradeDist     map[string]int      `json:"grade_distribution"`
	CriticalCount int                 `json:"critical_count"` // critical 命中总数
	GamingCount   int                 `json:"gaming_count"`   // 指标操纵命中总数
	DegradedFiles int                 `json:"degraded_files"`
	CriticalFiles []string            `json:"critical_files"` // 按危害程度排序
	Results       []*realcheck.Output `json:"results"`
	Errors        []ErrorEntry        `json:"errors"`
	StartedAt     time.Time           `json:"started_at"`
	ElapsedMS     int64               `json:"elapsed_ms"`
}

// ExitCode 扫描结果对应的进程退出码
// 0: 无 critical 且无指标操纵; 1: 存在任一
func (s *ScanSummary) ExitCode() int {
	if s.CriticalCount > 0 || s.GamingCount > 0 {
		return 1
	}
	return 0
}

// Scan 扫描目录下全部匹配的源码文件
// 取消后返回已完成部分的汇总和 ctx 的错误
func Scan(ctx context.Context, root string, opts Options) (*ScanSummary, error) {
	start := time.Now()

	if len(opts.Extensions) == 0 {
		return nil, checkerrors.ExtensionError("扩展名列表为空")
	}
	// 0 视为未设置，由 Checker 取默认阈值
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, checkerrors.ThresholdError(opts.Threshold)
	}
	if err := rules.ValidateCatalog(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, checkerrors.FileReadError(root, err)
	}
	if !fileutil.IsDirectory(absRoot) && !fileutil.FileExists(absRoot) {
		return nil, checkerrors.FileNotFoundError(absRoot)
	}

	files, err := collectFiles(absRoot, opts)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	checker := realcheck.NewChecker(opts.Threshold, opts.MaxFileSize)
	summary := &ScanSummary{
		RootPath:  absRoot,
		GradeDist: make(map[string]int),
		StartedAt: start,
	}

	logger.Info("开始扫描", "root", absRoot, "files", len(files), "workers", workers)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		processed atomic.Int64
	)
	sem := make(chan struct{}, workers)

	var ctxErr error
	for _, file := range files {
		// 派发前检查取消，已在跑的任务允许跑完
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		wg.Add(1)
		go func(filePath string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out, err := checker.CheckFile(filePath)

			mu.Lock()
			if err != nil {
				summary.Errors = append(summary.Errors, toErrorEntry(filePath, err))
			} else {
				summary.Results = append(summary.Results, out)
			}
			mu.Unlock()

			n := processed.Add(1)
			if opts.ProgressEvery > 0 && n%int64(opts.ProgressEvery) == 0 {
				logger.Info("扫描进度", "processed", n, "total", len(files))
			}
		}(file)
	}
	wg.Wait()

	finalize(summary)
	summary.ElapsedMS = time.Since(start).Milliseconds()
	logger.Info("扫描完成",
		"total", summary.TotalFiles,
		"real", summary.RealFiles,
		"critical", summary.CriticalCount,
		"errors", len(summary.Errors),
		"elapsed_ms", summary.ElapsedMS)
	return summary, ctxErr
}

// collectFiles 收集匹配扩展名的文件，跳过隐藏项
func collectFiles(root string, opts Options) ([]string, error) {
	// 单文件直接返回
	if fileutil.FileExists(root) {
		return []string{root}, nil
	}

	var files []string
	if opts.Recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && fileutil.IsHiddenName(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if fileutil.IsHiddenName(d.Name()) {
				return nil
			}
			if fileutil.MatchExtension(path, opts.Extensions) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, checkerrors.FileReadError(root, err).WithOperation("walk")
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, checkerrors.FileReadError(root, err).WithOperation("read_dir")
		}
		for _, e := range entries {
			if e.IsDir() || fileutil.IsHiddenName(e.Name()) {
				continue
			}
			path := filepath.Join(root, e.Name())
			if fileutil.MatchExtension(path, opts.Extensions) {
				files = append(files, path)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// toErrorEntry 把检测错误折叠为 (路径, 分类, 消息)
func toErrorEntry(path string, err error) ErrorEntry {
	var ce *checkerrors.CheckerError
	if errors.As(err, &ce) {
		return ErrorEntry{Path: path, Kind: ce.Kind(), Message: ce.Message}
	}
	return ErrorEntry{Path: path, Kind: "file_read_error", Message: err.Error()}
}

// finalize 结果排序并汇总统计
func finalize(s *ScanSummary) {
	sort.Slice(s.Results, func(i, j int) bool {
		return s.Results[i].File.FilePath < s.Results[j].File.FilePath
	})
	sort.Slice(s.Errors, func(i, j int) bool {
		return s.Errors[i].Path < s.Errors[j].Path
	})

	s.TotalFiles = len(s.Results) + len(s.Errors)

	var sum float64
	for _, r := range s.Results {
		f := r.File
		sum += f.RealityScore
		s.GradeDist[f.Grade]++
		s.CriticalCount += f.Counts.Critical
		if f.IsReal {
			s.RealFiles++
		}
		if f.Degraded {
			s.DegradedFiles++
		}
		for _, d := range f.Detections {
			if d.Category == string(rules.CategoryMetricGaming) {
				s.GamingCount++
			}
		}
	}
	if len(s.Results) > 0 {
		s.AverageScore = sum / float64(len(s.Results))
	}

	// 危害排序: critical 多者在前，其次 high 多者，再次得分低者
	ranked := make([]*realcheck.Output, 0, len(s.Results))
	for _, r := range s.Results {
		if r.File.Counts.Critical > 0 || r.File.Counts.High > 0 {
			ranked = append(ranked, r)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i].File, ranked[j].File
		if a.Counts.Critical != b.Counts.Critical {
			return a.Counts.Critical > b.Counts.Critical
		}
		if a.Counts.High != b.Counts.High {
			return a.Counts.High > b.Counts.High
		}
		if a.RealityScore != b.RealityScore {
			return a.RealityScore < b.RealityScore
		}
		return a.FilePath < b.FilePath
	})
	for _, r := range ranked {
		s.CriticalFiles = append(s.CriticalFiles, r.File.FilePath)
	}
}
