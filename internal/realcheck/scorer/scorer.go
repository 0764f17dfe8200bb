package scorer

import (
	"fmt"

	"codeRealityScanner/internal/realcheck/matcher"
	"codeRealityScanner/internal/realcheck/rules"
)

// 严重级别扣分权重
// 计分公式唯一，其余环节 (评级/报告) 只做展示不再二次缩放
const (
	WeightCritical = 0.25
	WeightHigh     = 0.10
	WeightMedium   = 0.05
	WeightLow      = 0.01
)

// DefaultThreshold 默认真实性阈值
const DefaultThreshold = 0.95

// SeverityCounts 各严重级别命中数
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Total 命中总数
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

// FileResult 单文件检测结果
type FileResult struct {
	FilePath     string              `json:"file_path"`          // 文件路径
	Digest       string              `json:"digest,omitempty"`   // 内容摘要 (SM3)
	RealityScore float64             `json:"reality_score"`      // 真实性得分 [0,1]
	IsReal       bool                `json:"is_real"`            // 是否判定为真实实现
	Grade        string              `json:"grade"`              // 评级
	Counts       SeverityCounts      `json:"severity_counts"`    // 各级别计数
	Detections   []matcher.Detection `json:"detections"`         // 全部命中，确定有序
	Degraded     bool                `json:"degraded,omitempty"` // 结构解析失败，仅文本规则
	Summary      string              `json:"summary"`            // 一句话结论
}

// Score 由命中列表计算单文件结果
// degraded 表示结构解析失败、只跑了文本规则，结论里始终带降级标注
func Score(path string, detections []matcher.Detection, threshold float64, degraded bool) *FileResult {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	r := &FileResult{
		FilePath:   path,
		Detections: detections,
		Degraded:   degraded,
	}

	gaming := 0
	for _, d := range detections {
		switch rules.ParseSeverity(d.Severity) {
		case rules.SeverityCritical:
			r.Counts.Critical++
		case rules.SeverityHigh:
			r.Counts.High++
		case rules.SeverityMedium:
			r.Counts.Medium++
		case rules.SeverityLow:
			r.Counts.Low++
		default:
			r.Counts.Info++
		}
		if d.Category == string(rules.CategoryMetricGaming) {
			gaming++
		}
	}

	penalty := WeightCritical*float64(r.Counts.Critical) +
		WeightHigh*float64(r.Counts.High) +
		WeightMedium*float64(r.Counts.Medium) +
		WeightLow*float64(r.Counts.Low)
	score := 1.0 - penalty
	if score < 0 {
		score = 0
	}
	r.RealityScore = score

	// 指标操纵与 critical 命中为硬否决，得分再高也不算真实
	// 浮点累减留一点容差，避免 0.95 边界误判
	r.IsReal = score >= threshold-1e-9 && r.Counts.Critical == 0 && gaming == 0
	r.Grade = GradeFor(score)
	r.Summary = summarize(r, gaming)
	return r
}

func summarize(r *FileResult, gaming int) string {
	var s string
	switch {
	case gaming > 0:
		s = fmt.Sprintf("检出 %d 处指标操纵，判定不真实", gaming)
	case r.Counts.Critical > 0:
		s = fmt.Sprintf("检出 %d 处严重问题，判定不真实", r.Counts.Critical)
	case r.Counts.Total() == 0:
		s = "未检出问题"
	case r.IsReal:
		s = fmt.Sprintf("检出 %d 处轻微问题，仍在阈值之内", r.Counts.Total())
	default:
		s = fmt.Sprintf("检出 %d 处问题，得分低于阈值", r.Counts.Total())
	}
	if r.Degraded {
		s += " (结构解析降级，仅文本规则)"
	}
	return s
}

// ============================================================
// 评级
// ============================================================

// 评级边界，自高向低
var gradeBands = []struct {
	Min   float64
	Grade string
}{
	{1.00, "PERFECT"},
	{0.95, "A++"},
	{0.90, "A+"},
	{0.85, "A"},
	{0.80, "B"},
	{0.70, "C"},
	{0.60, "D"},
}

// GradeFor 得分对应的评级
func GradeFor(score float64) string {
	for _, b := range gradeBands {
		if score >= b.Min-1e-9 {
			return b.Grade
		}
	}
	return "F"
}

// GradeNames 全部评级名称，自高向低
func GradeNames() []string {
	names := make([]string, 0, len(gradeBands)+1)
	for _, b := range gradeBands {
		names = append(names, b.Grade)
	}
	return append(names, "F")
}
