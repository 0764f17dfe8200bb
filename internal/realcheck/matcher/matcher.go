package matcher

import (
	"regexp"
	"sort"
	"strings"

	"codeRealityScanner/internal/realcheck/outline"
	"codeRealityScanner/internal/realcheck/rules"
)

// Detection 一次规则命中
type Detection struct {
	PatternID   string  `json:"pattern_id"`         // 规则标识
	Category    string  `json:"category"`           // fabrication / metric_gaming
	Severity    string  `json:"severity"`           // critical/high/medium/low/info
	Line        int     `json:"line"`               // 行号 (1 起)
	Function    string  `json:"function,omitempty"` // 所在函数，无则为空
	Snippet     string  `json:"snippet"`            // 命中片段
	Explanation string  `json:"explanation"`        // 解释
	Suggestion  string  `json:"suggestion"`         // 整改建议
	Confidence  float64 `json:"confidence"`         // 置信度 [0,1]
}

// Matcher 规则匹配器
// 对单个文件的文本与结构轮廓求值，产出确定有序的命中列表
type Matcher struct {
	patterns []*rules.Pattern
}

// New 创建匹配器，不指定规则时使用完整目录
func New(patterns ...*rules.Pattern) *Matcher {
	if len(patterns) == 0 {
		patterns = rules.AllPatterns
	}
	return &Matcher{patterns: patterns}
}

// Run 对文件内容执行全部规则
// ol 为 nil 或不完整时自动退化为仅文本规则
func (m *Matcher) Run(path string, lines []string, ol *outline.Outline) []Detection {
	var out []Detection

	lang := ""
	if ol != nil {
		lang = ol.Language
	}

	for i, raw := range lines {
		for _, p := range m.patterns {
			if p.IsStructural() {
				continue
			}
			if !p.Match(raw) {
				continue
			}
			d := Detection{
				PatternID:   p.ID,
				Category:    string(p.Category),
				Severity:    p.Severity.String(),
				Line:        i + 1,
				Snippet:     snippet(raw),
				Explanation: p.Explanation,
				Suggestion:  p.Suggestion,
			}
			var span *outline.Span
			if ol != nil {
				span = ol.SpanAt(i + 1)
			}
			if span != nil {
				d.Function = span.Name
				d.Confidence = confidence(p.BaseConfidence, analyze(lang, lines, span))
			} else {
				d.Confidence = p.BaseConfidence
			}
			out = append(out, d)
		}
	}

	if ol != nil {
		for si := range ol.Spans {
			span := &ol.Spans[si]
			info := analyze(lang, lines, span)
			for _, p := range m.patterns {
				if !p.IsStructural() {
					continue
				}
				if !m.evalStructural(p, lang, lines, span, info) {
					continue
				}
				out = append(out, Detection{
					PatternID:   p.ID,
					Category:    string(p.Category),
					Severity:    p.Severity.String(),
					Line:        span.StartLine,
					Function:    span.Name,
					Snippet:     snippet(lines[span.StartLine-1]),
					Explanation: p.Explanation,
					Suggestion:  p.Suggestion,
					Confidence:  confidence(p.BaseConfidence, info),
				})
			}
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Line != out[b].Line {
			return out[a].Line < out[b].Line
		}
		return out[a].PatternID < out[b].PatternID
	})
	return out
}

// ============================================================
// 结构规则求值
// ============================================================

var (
	emptyLiteralRe = regexp.MustCompile(
		`^return\s*(\{\s*\}|\[\s*\]|nil|None|null|undefined|""|''|0|0\.0|0,\s*nil)?\s*;?$`)
	literalReturnRe = regexp.MustCompile(
		`^return\s+(-?\d[\d_.]*|"[^"]*"|'[^']*'|true|false|True|False|nil|None|null|\{[^}]*\}|\[[^\]]*\])\s*;?$`)
	trueReturnRe = regexp.MustCompile(`^return\s+(true|True)\s*;?$`)
	branchRe     = regexp.MustCompile(`\b(if|for|while|switch|elif|match|select)\b`)
	callRe       = regexp.MustCompile(`([A-Za-z_][\w.]*)\s*\(`)
	errHandleRe  = regexp.MustCompile(`\b(err|error|try|except|catch|raise|throw|panic)\b`)

	// 注释中显式承认桩实现，结构规则不再告警
	stubAckRe = regexp.MustCompile(
		`(?i)(stub|placeholder|not implemented yet|mock implementation|fake implementation|for testing only|桩实现|占位实现)`)

	// 注释宣称的外部依赖
	externalRefRe = regexp.MustCompile(
		`(?i)\b(api|http|https|grpc|database|db|sql|redis|kafka|queue|stripe|oauth|webhook)\b|调用|请求`)
)

// spanInfo 函数体的结构特征
type spanInfo struct {
	stmts      []string // 去注释去空行后的语句行
	returns    []string // 其中的 return 语句
	hasBranch  bool     // 存在分支/循环
	hasCall    bool     // 存在函数调用
	hasErrWord bool     // 存在错误处理痕迹
	literalRet bool     // 存在字面量返回
	docAck     bool     // 注释承认是桩
	docRefsExt bool     // 注释提及外部依赖
}

// analyze 提取函数体语句并统计结构特征
func analyze(lang string, lines []string, span *outline.Span) *spanInfo {
	info := &spanInfo{}
	if span.StartLine < 1 || span.EndLine > len(lines) {
		return info
	}

	// 文档注释: 声明上方注释块 + 体内注释行
	if span.DocStart > 0 {
		for j := span.DocStart - 1; j < span.StartLine-1; j++ {
			comment := strings.TrimSpace(lines[j])
			if stubAckRe.MatchString(comment) {
				info.docAck = true
			}
			if externalRefRe.MatchString(comment) {
				info.docRefsExt = true
			}
		}
	}

	for j := span.StartLine - 1; j < span.EndLine; j++ {
		raw := lines[j]
		frag := bodyFragment(lang, raw, j+1, span)
		trimmed := strings.TrimSpace(frag)
		if trimmed == "" {
			continue
		}
		if outline.IsCommentLine(lang, trimmed) {
			if stubAckRe.MatchString(trimmed) {
				info.docAck = true
			}
			if externalRefRe.MatchString(trimmed) {
				info.docRefsExt = true
			}
			continue
		}
		info.stmts = append(info.stmts, trimmed)
		if strings.HasPrefix(trimmed, "return") {
			info.returns = append(info.returns, trimmed)
			if literalReturnRe.MatchString(trimmed) || emptyLiteralRe.MatchString(trimmed) {
				info.literalRet = true
			}
		}
		if branchRe.MatchString(trimmed) {
			info.hasBranch = true
		}
		if hasRealCall(trimmed) {
			info.hasCall = true
		}
		if errHandleRe.MatchString(trimmed) {
			info.hasErrWord = true
		}
	}
	return info
}

// bodyFragment 取出某行中属于函数体的部分
// 声明行剥掉签名，结束行剥掉收尾括号
func bodyFragment(lang, raw string, lineNo int, span *outline.Span) string {
	if lang == outline.LangPython {
		if lineNo == span.StartLine {
			// 单行 def: 冒号后可能跟语句
			if idx := strings.LastIndex(raw, "):"); idx >= 0 {
				return raw[idx+2:]
			}
			return ""
		}
		return raw
	}
	frag := raw
	if lineNo == span.StartLine {
		if idx := strings.Index(frag, "{"); idx >= 0 {
			frag = frag[idx+1:]
		} else {
			return ""
		}
	}
	if lineNo == span.EndLine {
		if idx := strings.LastIndex(frag, "}"); idx >= 0 {
			frag = frag[:idx]
		}
	}
	return frag
}

// hasRealCall 语句中是否存在关键字以外的函数调用
func hasRealCall(stmt string) bool {
	for _, m := range callRe.FindAllStringSubmatch(stmt, -1) {
		switch m[1] {
		case "if", "for", "while", "switch", "return", "func", "catch", "def":
			continue
		default:
			return true
		}
	}
	return false
}

// evalStructural 对单个函数跨度求值结构规则
func (m *Matcher) evalStructural(p *rules.Pattern, lang string, lines []string, span *outline.Span, info *spanInfo) bool {
	switch p.Structural {
	case rules.StructEmptyBody:
		if info.docAck {
			return false
		}
		if len(info.stmts) == 0 {
			return true
		}
		return len(info.stmts) == 1 && info.stmts[0] == "pass"

	case rules.StructStubReturn:
		if info.docAck {
			return false
		}
		return len(info.stmts) == 1 && emptyLiteralRe.MatchString(info.stmts[0])

	case rules.StructLiteralReturn:
		if info.docAck {
			return false
		}
		if len(info.stmts) != 1 {
			return false
		}
		return literalReturnRe.MatchString(info.stmts[0]) ||
			emptyLiteralRe.MatchString(info.stmts[0])

	case rules.StructAlwaysTrue:
		if len(info.returns) == 0 || info.hasBranch {
			return false
		}
		for _, r := range info.returns {
			if !trueReturnRe.MatchString(r) {
				return false
			}
		}
		return true

	case rules.StructMockNoCall:
		return info.docRefsExt && !info.hasCall && len(info.stmts) > 0

	default:
		return false
	}
}

// ============================================================
// 置信度
// ============================================================

// confidence 基础置信度按佐证信号逐项加成，封顶 1.0
// 佐证信号: 字面量返回、无错误处理、无外部调用
func confidence(base float64, info *spanInfo) float64 {
	c := base
	if info.literalRet {
		c += 0.15
	}
	if !info.hasErrWord {
		c += 0.15
	}
	if !info.hasCall {
		c += 0.15
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

func snippet(line string) string {
	s := strings.TrimSpace(line)
	const max = 160
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}
