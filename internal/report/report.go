package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/shirou/gopsutil/v3/host"

	"codeRealityScanner/internal/config"
	"codeRealityScanner/internal/realcheck/scorer"
	"codeRealityScanner/internal/scanner"
)

// ScanInfo 扫描环境信息
type ScanInfo struct {
	Timestamp time.Time `json:"timestamp"`
	RootPath  string    `json:"root_path"`
	Hostname  string    `json:"hostname,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	GoVersion string    `json:"go_version"`
	Version   string    `json:"tool_version"`
	ElapsedMS int64     `json:"elapsed_ms"`
}

// Summary 报告汇总段
type Summary struct {
	TotalFiles     int            `json:"total_files"`
	RealFiles      int            `json:"real_files"`
	AverageScore   float64        `json:"average_score"`
	OverallGrade   string         `json:"overall_grade"`
	GradeDist      map[string]int `json:"grade_distribution"`
	TopGradeRate   float64        `json:"top_grade_rate"` // A++ 及以上占比
	CriticalCount  int            `json:"critical_count"`
	GamingCount    int            `json:"gaming_count"`
	DegradedFiles  int            `json:"degraded_files"`
	ErrorCount     int            `json:"error_count"`
	CriticalFiles  []string       `json:"critical_files"`
}

// Report 完整报告文档
type Report struct {
	ScanInfo ScanInfo             `json:"scan_info"`
	Summary  Summary              `json:"summary"`
	Details  []*scorer.FileResult `json:"details"`
	Errors   []scanner.ErrorEntry `json:"errors"`
}

// Build 由扫描汇总生成报告
func Build(s *scanner.ScanSummary) *Report {
	r := &Report{
		ScanInfo: ScanInfo{
			Timestamp: s.StartedAt,
			RootPath:  s.RootPath,
			GoVersion: runtime.Version(),
			Version:   config.Version,
			ElapsedMS: s.ElapsedMS,
		},
		Summary: Summary{
			TotalFiles:    s.TotalFiles,
			RealFiles:     s.RealFiles,
			AverageScore:  s.AverageScore,
			OverallGrade:  scorer.GradeFor(s.AverageScore),
			GradeDist:     s.GradeDist,
			TopGradeRate:  topGradeRate(s),
			CriticalCount: s.CriticalCount,
			GamingCount:   s.GamingCount,
			DegradedFiles: s.DegradedFiles,
			ErrorCount:    len(s.Errors),
			CriticalFiles: s.CriticalFiles,
		},
		Errors: s.Errors,
	}
	for _, out := range s.Results {
		r.Details = append(r.Details, out.File)
	}

	if info, err := host.Info(); err == nil {
		r.ScanInfo.Hostname = info.Hostname
		r.ScanInfo.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}
	return r
}

// topGradeRate A++ 及以上 (含 PERFECT) 文件占比
func topGradeRate(s *scanner.ScanSummary) float64 {
	if len(s.Results) == 0 {
		return 0
	}
	top := s.GradeDist["PERFECT"] + s.GradeDist["A++"]
	return float64(top) / float64(len(s.Results))
}

// WriteJSON 输出 JSON 报告
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// SaveJSON 写入 JSON 报告文件
func (r *Report) SaveJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.WriteJSON(f)
}

// ============================================================
// 终端渲染
// ============================================================

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
	colorWhite  = color.New(color.FgWhite)
)

// WriteText 输出彩色文本报告
func (r *Report) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintln(w, "==========================================")
	colorCyan.Fprintln(w, "  代码真实性扫描报告")
	fmt.Fprintln(w, "==========================================")
	fmt.Fprintf(w, "扫描目录: %s\n", r.ScanInfo.RootPath)
	fmt.Fprintf(w, "扫描时间: %s (耗时 %dms)\n",
		r.ScanInfo.Timestamp.Format("2006-01-02 15:04:05"), r.ScanInfo.ElapsedMS)
	fmt.Fprintf(w, "文件总数: %d (失败 %d)\n", r.Summary.TotalFiles, r.Summary.ErrorCount)
	fmt.Fprintln(w)

	gradeColor(r.Summary.OverallGrade).Fprintf(w, "总评: %s  平均分 %.3f\n",
		r.Summary.OverallGrade, r.Summary.AverageScore)
	fmt.Fprintf(w, "真实文件: %d/%d  A++ 及以上占比 %.1f%%\n",
		r.Summary.RealFiles, len(r.Details), r.Summary.TopGradeRate*100)
	if r.Summary.DegradedFiles > 0 {
		colorYellow.Fprintf(w, "结构解析降级: %d 个文件仅跑了文本规则\n", r.Summary.DegradedFiles)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "评级分布:")
	for _, g := range scorer.GradeNames() {
		if n := r.Summary.GradeDist[g]; n > 0 {
			fmt.Fprintf(w, "  %-7s %d\n", g, n)
		}
	}
	fmt.Fprintln(w)

	if r.Summary.CriticalCount > 0 || r.Summary.GamingCount > 0 {
		colorRed.Fprintf(w, "严重命中 %d 处, 指标操纵 %d 处\n",
			r.Summary.CriticalCount, r.Summary.GamingCount)
		for i, f := range r.Summary.CriticalFiles {
			if i >= 10 {
				fmt.Fprintf(w, "  ... 其余 %d 个文件见 JSON 报告\n", len(r.Summary.CriticalFiles)-i)
				break
			}
			fmt.Fprintf(w, "  %2d. %s\n", i+1, f)
		}
		fmt.Fprintln(w)
	} else {
		colorGreen.Fprintln(w, "未发现严重问题")
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		colorYellow.Fprintf(w, "处理失败 %d 个文件:\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  [%s] %s: %s\n", e.Kind, e.Path, e.Message)
		}
		fmt.Fprintln(w)
	}

	if verbose {
		r.writeDetails(w)
	}
}

// writeDetails 按得分从低到高列出问题文件
func (r *Report) writeDetails(w io.Writer) {
	details := append([]*scorer.FileResult(nil), r.Details...)
	sort.Slice(details, func(i, j int) bool {
		if details[i].RealityScore != details[j].RealityScore {
			return details[i].RealityScore < details[j].RealityScore
		}
		return details[i].FilePath < details[j].FilePath
	})

	fmt.Fprintln(w, "文件明细:")
	for _, d := range details {
		if len(d.Detections) == 0 {
			continue
		}
		gradeColor(d.Grade).Fprintf(w, "%s  %.3f [%s]\n", d.FilePath, d.RealityScore, d.Grade)
		for _, det := range d.Detections {
			line := fmt.Sprintf("  L%-5d %-9s %-26s %s",
				det.Line, det.Severity, det.PatternID, det.Snippet)
			switch det.Severity {
			case "critical":
				colorRed.Fprintln(w, line)
			case "high":
				colorYellow.Fprintln(w, line)
			default:
				colorWhite.Fprintln(w, line)
			}
		}
	}
}

func gradeColor(grade string) *color.Color {
	switch grade {
	case "PERFECT", "A++", "A+":
		return colorGreen
	case "A", "B":
		return colorYellow
	default:
		return colorRed
	}
}
