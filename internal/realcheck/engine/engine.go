package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"codeRealityScanner/internal/logger"
	"codeRealityScanner/internal/realcheck/matcher"
	"codeRealityScanner/internal/realcheck/outline"
	"codeRealityScanner/internal/realcheck/rules"
)

// 校验模块名称，顺序固定，每次全量执行不短路
const (
	ModuleAssumption   = "assumption_validation"
	ModuleCompleteness = "completeness"
	ModuleConsistency  = "consistency"
	ModuleFabrication  = "fabrication_pattern"
	ModuleMetricGaming = "metric_gaming_pattern"
)

// ModuleNames 全部模块，按执行顺序
var ModuleNames = []string{
	ModuleAssumption,
	ModuleCompleteness,
	ModuleConsistency,
	ModuleFabrication,
	ModuleMetricGaming,
}

// Input 各模块共享的输入
type Input struct {
	Path       string           // 文件路径
	Lines      []string         // 文件内容 (按行)
	Outline    *outline.Outline // 结构轮廓，可能为 nil 或不完整
	OutlineErr error            // 轮廓解析错误 (可降级)
}

// Violation 一条校验违规
type Violation struct {
	Validator string `json:"validator"`          // 产出违规的模块
	PatternID string `json:"pattern_id"`         // 规则或启发式标识
	Line      int    `json:"line"`               // 行号，文件级违规为 0
	Severity  string `json:"severity"`           // 严重级别
	Message   string `json:"message"`            // 说明
	Function  string `json:"function,omitempty"` // 所在函数
}

// ValidatorOutcome 单个模块的执行结果
type ValidatorOutcome struct {
	Validator       string      `json:"validator"`
	Compliant       bool        `json:"compliant"`
	Violations      []Violation `json:"violations"`
	Recommendations []string    `json:"recommendations,omitempty"` // 修复建议，去重后按出现顺序
	Failed          bool        `json:"failed,omitempty"`          // 模块自身执行失败
}

// UnifiedResult 全模块合并结果
type UnifiedResult struct {
	FilePath         string             `json:"file_path"`
	IsValid          bool               `json:"is_valid"`          // 全部模块合规的 AND
	Violations       []Violation        `json:"violations"`        // 去重并集，稳定有序
	Outcomes         []ValidatorOutcome `json:"outcomes"`          // 各模块结果，按执行顺序
	ModulesActivated []string           `json:"modules_activated"` // 恒为全量模块列表
	ElapsedMS        int64              `json:"elapsed_ms"`
}

// validator 模块函数签名，返回违规列表与对应的修复建议
type validator func(in Input) ([]Violation, []string)

// Orchestrator 固定顺序调度全部校验模块
type Orchestrator struct {
	fabMatcher    *matcher.Matcher
	gamingMatcher *matcher.Matcher
}

// NewOrchestrator 创建调度器
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		fabMatcher:    matcher.New(rules.FabricationPatterns...),
		gamingMatcher: matcher.New(rules.MetricGamingPatterns...),
	}
}

// Validate 顺序执行全部模块并合并
// 任一模块 panic 只影响该模块，降级为 validator_failure 违规
func (o *Orchestrator) Validate(in Input) *UnifiedResult {
	start := time.Now()
	r := &UnifiedResult{
		FilePath:         in.Path,
		IsValid:          true,
		ModulesActivated: append([]string(nil), ModuleNames...),
	}

	mods := []struct {
		name string
		fn   validator
	}{
		{ModuleAssumption, o.checkAssumptions},
		{ModuleCompleteness, o.checkCompleteness},
		{ModuleConsistency, o.checkConsistency},
		{ModuleFabrication, o.checkFabrication},
		{ModuleMetricGaming, o.checkMetricGaming},
	}

	for _, m := range mods {
		outcome := runIsolated(m.name, m.fn, in)
		r.Outcomes = append(r.Outcomes, outcome)
		if !outcome.Compliant {
			r.IsValid = false
		}
		r.Violations = mergeViolations(r.Violations, outcome.Violations)
	}

	r.ElapsedMS = time.Since(start).Milliseconds()
	return r
}

// runIsolated 带 panic 隔离地执行单个模块
func runIsolated(name string, fn validator, in Input) (outcome ValidatorOutcome) {
	outcome = ValidatorOutcome{Validator: name}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("校验模块异常", "validator", name, "file", in.Path, "panic", p)
			outcome.Failed = true
			outcome.Compliant = false
			outcome.Violations = []Violation{{
				Validator: name,
				PatternID: "validator_failure",
				Severity:  "info",
				Message:   fmt.Sprintf("模块执行异常: %v", p),
			}}
		}
	}()

	vs, recs := fn(in)
	outcome.Violations = vs
	outcome.Recommendations = dedupStrings(recs)
	outcome.Compliant = len(vs) == 0
	return outcome
}

// dedupStrings 去重并保持出现顺序
func dedupStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// mergeViolations 按 (validator, line, pattern_id) 去重合并，先到先得
func mergeViolations(acc, more []Violation) []Violation {
	type key struct {
		validator string
		line      int
		pattern   string
	}
	seen := make(map[key]bool, len(acc))
	for _, v := range acc {
		seen[key{v.Validator, v.Line, v.PatternID}] = true
	}
	for _, v := range more {
		k := key{v.Validator, v.Line, v.PatternID}
		if seen[k] {
			continue
		}
		seen[k] = true
		acc = append(acc, v)
	}
	return acc
}

// ============================================================
// 模块实现
// ============================================================

var assumptionRe = regexp.MustCompile(
	`(?i)(//|#|/\*)[^\n]*\b(assume[sd]?|assuming|should (always )?work|never fails?|can'?t fail|always succeeds?)\b|假设不会|不会失败`)

// checkAssumptions 查找只写在注释里、代码中无对应校验的断言
func (o *Orchestrator) checkAssumptions(in Input) ([]Violation, []string) {
	var out []Violation
	for i, raw := range in.Lines {
		if !assumptionRe.MatchString(raw) {
			continue
		}
		// 周边若存在显式校验则放行
		if guardedNearby(in.Lines, i) {
			continue
		}
		out = append(out, Violation{
			Validator: ModuleAssumption,
			PatternID: "unchecked_assumption",
			Line:      i + 1,
			Severity:  "medium",
			Message:   "注释断言某前提成立，但附近没有对应的校验代码",
			Function:  functionAt(in.Outline, i+1),
		})
	}
	var recs []string
	if len(out) > 0 {
		recs = append(recs, "把注释声称的前提改写为显式校验 (if / assert / 错误处理)")
	}
	return out, recs
}

var guardRe = regexp.MustCompile(`\b(if|assert|require|raise|panic|errors?\.|try|except|catch)\b`)

func guardedNearby(lines []string, idx int) bool {
	for j := idx + 1; j < len(lines) && j <= idx+3; j++ {
		if guardRe.MatchString(lines[j]) {
			return true
		}
	}
	return false
}

// checkCompleteness 基于轮廓查找未完成的函数
func (o *Orchestrator) checkCompleteness(in Input) ([]Violation, []string) {
	var out []Violation
	var recs []string
	for i, raw := range in.Lines {
		trimmed := strings.TrimSpace(raw)
		if strings.Contains(trimmed, "NotImplementedError") ||
			strings.Contains(trimmed, `panic("not implemented`) ||
			strings.Contains(trimmed, "unimplemented!") {
			out = append(out, Violation{
				Validator: ModuleCompleteness,
				PatternID: "unimplemented_path",
				Line:      i + 1,
				Severity:  "high",
				Message:   "存在显式未实现的代码路径",
				Function:  functionAt(in.Outline, i+1),
			})
			recs = append(recs, "补全未实现的代码路径，或在文档注释中显式声明桩实现")
		}
	}
	if in.Outline == nil {
		return out, recs
	}
	for si := range in.Outline.Spans {
		span := &in.Outline.Spans[si]
		if emptySpan(in.Lines, in.Outline.Language, span) {
			out = append(out, Violation{
				Validator: ModuleCompleteness,
				PatternID: "incomplete_function",
				Line:      span.StartLine,
				Severity:  "medium",
				Message:   fmt.Sprintf("函数 %s 没有任何实现语句", span.Name),
				Function:  span.Name,
			})
			recs = append(recs, "为空函数补充实现，或删除无用的函数声明")
		}
	}
	return out, recs
}

// emptySpan 函数体没有任何语句 (或仅有 pass)
func emptySpan(lines []string, lang string, span *outline.Span) bool {
	count := 0
	for j := span.StartLine - 1; j < span.EndLine && j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" || outline.IsCommentLine(lang, trimmed) {
			continue
		}
		if j == span.StartLine-1 {
			// 声明行本身不算语句，除非单行函数带实现
			if !singleLineWithBody(lang, trimmed) {
				continue
			}
			return false
		}
		if trimmed == "}" || trimmed == "};" || trimmed == "pass" {
			continue
		}
		count++
	}
	return count == 0
}

func singleLineWithBody(lang, decl string) bool {
	if lang == outline.LangPython {
		idx := strings.LastIndex(decl, "):")
		return idx >= 0 && strings.TrimSpace(decl[idx+2:]) != "" &&
			strings.TrimSpace(decl[idx+2:]) != "pass"
	}
	idx := strings.Index(decl, "{")
	if idx < 0 {
		return false
	}
	body := strings.TrimSuffix(strings.TrimSpace(decl[idx+1:]), "}")
	return strings.TrimSpace(body) != ""
}

// 动作性函数名前缀，名称承诺了行为
var actionPrefixes = []string{
	"get", "fetch", "load", "save", "store", "send", "post",
	"update", "delete", "remove", "create", "insert", "sync",
	"upload", "download", "query", "write", "read",
}

var anyCallRe = regexp.MustCompile(`[A-Za-z_][\w.]*\s*\(`)

// checkConsistency 函数名承诺的行为与函数体不符
func (o *Orchestrator) checkConsistency(in Input) ([]Violation, []string) {
	if in.Outline == nil {
		return nil, nil
	}
	var out []Violation
	for si := range in.Outline.Spans {
		span := &in.Outline.Spans[si]
		if !actionName(span.Name) {
			continue
		}
		if spanHasWork(in.Lines, in.Outline.Language, span) {
			continue
		}
		out = append(out, Violation{
			Validator: ModuleConsistency,
			PatternID: "name_behavior_mismatch",
			Line:      span.StartLine,
			Severity:  "medium",
			Message:   fmt.Sprintf("函数名 %s 承诺了动作，函数体却没有任何调用或分支", span.Name),
			Function:  span.Name,
		})
	}
	var recs []string
	if len(out) > 0 {
		recs = append(recs, "让函数实现其名称承诺的动作，或改为符合实际行为的命名")
	}
	return out, recs
}

func actionName(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range actionPrefixes {
		if strings.HasPrefix(lower, p) && len(lower) > len(p) {
			return true
		}
	}
	return false
}

// spanHasWork 函数体存在调用或分支，视为有实质行为
func spanHasWork(lines []string, lang string, span *outline.Span) bool {
	for j := span.StartLine; j < span.EndLine && j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" || outline.IsCommentLine(lang, trimmed) {
			continue
		}
		if anyCallRe.MatchString(trimmed) {
			return true
		}
		if strings.HasPrefix(trimmed, "if ") || strings.HasPrefix(trimmed, "for ") ||
			strings.HasPrefix(trimmed, "while ") || strings.HasPrefix(trimmed, "switch ") {
			return true
		}
	}
	return false
}

// checkFabrication 伪造实现规则全量匹配
func (o *Orchestrator) checkFabrication(in Input) ([]Violation, []string) {
	return detectionsToViolations(ModuleFabrication,
		o.fabMatcher.Run(in.Path, in.Lines, usableOutline(in)))
}

// checkMetricGaming 指标操纵规则全量匹配
func (o *Orchestrator) checkMetricGaming(in Input) ([]Violation, []string) {
	return detectionsToViolations(ModuleMetricGaming,
		o.gamingMatcher.Run(in.Path, in.Lines, usableOutline(in)))
}

// usableOutline 轮廓解析失败时只保留文本规则可用的空轮廓
func usableOutline(in Input) *outline.Outline {
	if in.Outline == nil || in.Outline.Partial {
		return nil
	}
	return in.Outline
}

func detectionsToViolations(validator string, ds []matcher.Detection) ([]Violation, []string) {
	out := make([]Violation, 0, len(ds))
	recs := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, Violation{
			Validator: validator,
			PatternID: d.PatternID,
			Line:      d.Line,
			Severity:  d.Severity,
			Message:   d.Explanation,
			Function:  d.Function,
		})
		recs = append(recs, d.Suggestion)
	}
	return out, recs
}

func functionAt(ol *outline.Outline, line int) string {
	if ol == nil {
		return ""
	}
	if s := ol.SpanAt(line); s != nil {
		return s.Name
	}
	return ""
}
