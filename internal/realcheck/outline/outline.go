package outline

import (
	"path/filepath"
	"regexp"
	"strings"

	checkerrors "codeRealityScanner/internal/realcheck/errors"
)

// 支持的语言标识
const (
	LangGo         = "go"
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
)

// Span 一个函数跨度
type Span struct {
	Name      string // 函数名
	StartLine int    // 声明行 (1 起)
	EndLine   int    // 结束行 (含)
	DocStart  int    // 紧邻声明上方注释块首行，无则为 0
	Indent    int    // 声明行缩进 (Python 用于嵌套判定)
}

// Outline 单个文件的结构轮廓
type Outline struct {
	Language string // 语言标识
	Spans    []Span // 文件内全部函数跨度，按声明行排序
	Partial  bool   // 解析中途失败，轮廓不完整
}

// SpanAt 返回覆盖指定行号的最内层函数跨度
func (o *Outline) SpanAt(line int) *Span {
	var best *Span
	for i := range o.Spans {
		s := &o.Spans[i]
		if line >= s.StartLine && line <= s.EndLine {
			if best == nil || s.StartLine > best.StartLine {
				best = s
			}
		}
	}
	return best
}

// DetectLanguage 根据扩展名识别语言，无法识别返回空串
func DetectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo
	case ".py":
		return LangPython
	case ".js", ".jsx", ".mjs":
		return LangJavaScript
	case ".ts", ".tsx":
		return LangTypeScript
	default:
		return ""
	}
}

// ============================================================
// 解析入口
// ============================================================

var (
	goFuncRe = regexp.MustCompile(`^func\s+(\([^)]*\)\s*)?([A-Za-z_]\w*)\s*(\[[^\]]*\])?\s*\(`)

	jsFuncRe   = regexp.MustCompile(`^\s*(export\s+)?(default\s+)?(async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)?\s*\(`)
	jsArrowRe  = regexp.MustCompile(`^\s*(export\s+)?(const|let|var)\s+([A-Za-z_$][\w$]*)\s*(:[^=]+)?=\s*(async\s*)?(\([^)]*\)|[A-Za-z_$][\w$]*)\s*(:[^=]*)?=>`)
	jsMethodRe = regexp.MustCompile(`^\s*(public\s+|private\s+|protected\s+|static\s+|async\s+)*([A-Za-z_$][\w$]*)\s*\([^;]*\)\s*(:\s*[\w<>\[\]., |&]+)?\s*\{\s*$`)

	pyDefRe = regexp.MustCompile(`^(\s*)(async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)

	jsKeywordNames = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true,
		"catch": true, "return": true, "new": true, "typeof": true,
		"constructor": false, // 构造函数算有效跨度
	}
)

// Parse 解析文件内容，提取函数跨度轮廓
// 解析失败时尽量返回已识别的部分轮廓，err 为可降级的警告级错误
func Parse(path string, lines []string) (*Outline, error) {
	lang := DetectLanguage(path)
	o := &Outline{Language: lang}
	if lang == "" {
		return o, nil
	}

	var err error
	switch lang {
	case LangPython:
		err = parseIndent(o, lines)
	default:
		err = parseBrace(o, lang, lines)
	}
	if err != nil {
		o.Partial = true
		return o, checkerrors.OutlineError(path, err)
	}
	return o, nil
}

// ============================================================
// 花括号语言 (Go / JS / TS)
// ============================================================

// parseBrace 逐行扫描花括号语言，靠括号深度配对函数跨度
func parseBrace(o *Outline, lang string, lines []string) error {
	type open struct {
		spanIdx int // 对应 o.Spans 下标
		depth   int // 函数体开括号前的深度
	}
	var stack []open
	depth := 0
	inBlockComment := false

	for i, raw := range lines {
		line, blockNow := stripForBraces(raw, inBlockComment)
		inBlockComment = blockNow

		name, isDecl := matchDecl(lang, raw)
		opens := strings.Count(line, "{")
		closes := strings.Count(line, "}")

		if isDecl && opens > 0 {
			o.Spans = append(o.Spans, Span{
				Name:      name,
				StartLine: i + 1,
				DocStart:  docStartAbove(lang, lines, i),
			})
			stack = append(stack, open{spanIdx: len(o.Spans) - 1, depth: depth})
		}

		depth += opens - closes
		if depth < 0 {
			return checkerrors.NewCheckerError(checkerrors.ErrOutlineUnbalance,
				"括号配对失衡: 多余的右括号").WithOperation("parse_brace")
		}

		// 回落判定: 深度回到函数体开括号前，跨度闭合
		for len(stack) > 0 && depth <= stack[len(stack)-1].depth {
			top := stack[len(stack)-1]
			o.Spans[top.spanIdx].EndLine = i + 1
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 || depth != 0 {
		// 未闭合的跨度记到文件末尾，轮廓降级返回
		for _, op := range stack {
			o.Spans[op.spanIdx].EndLine = len(lines)
		}
		return checkerrors.NewCheckerError(checkerrors.ErrOutlineUnbalance,
			"括号配对失衡: 文件结束时仍有未闭合的括号").WithOperation("parse_brace")
	}
	return nil
}

// matchDecl 判断一行是否为函数声明，返回函数名
func matchDecl(lang, line string) (string, bool) {
	switch lang {
	case LangGo:
		if m := goFuncRe.FindStringSubmatch(line); m != nil {
			return m[2], true
		}
	case LangJavaScript, LangTypeScript:
		if m := jsFuncRe.FindStringSubmatch(line); m != nil {
			name := m[4]
			if name == "" {
				name = "(anonymous)"
			}
			return name, true
		}
		if m := jsArrowRe.FindStringSubmatch(line); m != nil {
			return m[3], true
		}
		if m := jsMethodRe.FindStringSubmatch(line); m != nil {
			if skip, known := jsKeywordNames[m[2]]; known && skip {
				return "", false
			}
			if _, known := jsKeywordNames[m[2]]; !known && isJSKeyword(m[2]) {
				return "", false
			}
			return m[2], true
		}
	}
	return "", false
}

func isJSKeyword(word string) bool {
	switch word {
	case "if", "for", "while", "switch", "catch", "do", "else", "try", "finally":
		return true
	}
	return false
}

// stripForBraces 去掉字符串与注释内容，避免其中的括号干扰配对
func stripForBraces(line string, inBlock bool) (string, bool) {
	var b strings.Builder
	i := 0
	for i < len(line) {
		if inBlock {
			if idx := strings.Index(line[i:], "*/"); idx >= 0 {
				i += idx + 2
				inBlock = false
				continue
			}
			return b.String(), true
		}
		c := line[i]
		switch c {
		case '/':
			if i+1 < len(line) {
				if line[i+1] == '/' {
					return b.String(), false
				}
				if line[i+1] == '*' {
					inBlock = true
					i += 2
					continue
				}
			}
			b.WriteByte(c)
			i++
		case '"', '\'', '`':
			quote := c
			i++
			for i < len(line) {
				if line[i] == '\\' {
					i += 2
					continue
				}
				if line[i] == quote {
					i++
					break
				}
				i++
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), inBlock
}

// docStartAbove 向上查找紧邻声明的注释块首行
func docStartAbove(lang string, lines []string, declIdx int) int {
	start := 0
	for j := declIdx - 1; j >= 0; j-- {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			break
		}
		if IsCommentLine(lang, trimmed) || strings.HasPrefix(trimmed, "@") {
			start = j + 1
			continue
		}
		break
	}
	return start
}

// ============================================================
// 缩进语言 (Python)
// ============================================================

// parseIndent 按缩进层级配对 Python 函数跨度
func parseIndent(o *Outline, lines []string) error {
	type open struct {
		spanIdx int
		indent  int
	}
	var stack []open

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := indentWidth(raw)

		// 缩进回落，闭合到上一条非空行
		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			top := stack[len(stack)-1]
			o.Spans[top.spanIdx].EndLine = lastContentLine(lines, i-1)
			stack = stack[:len(stack)-1]
		}

		if m := pyDefRe.FindStringSubmatch(raw); m != nil {
			o.Spans = append(o.Spans, Span{
				Name:      m[3],
				StartLine: i + 1,
				DocStart:  docStartAbove(LangPython, lines, i),
				Indent:    indent,
			})
			stack = append(stack, open{spanIdx: len(o.Spans) - 1, indent: indent})
		}
	}

	for _, op := range stack {
		o.Spans[op.spanIdx].EndLine = lastContentLine(lines, len(lines)-1)
	}
	return nil
}

func indentWidth(line string) int {
	w := 0
	for _, c := range line {
		switch c {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

func lastContentLine(lines []string, from int) int {
	for j := from; j >= 0; j-- {
		if strings.TrimSpace(lines[j]) != "" {
			return j + 1
		}
	}
	return 1
}

// ============================================================
// 行分类辅助
// ============================================================

// IsCommentLine 判断一行 (已去除缩进) 是否为纯注释行
func IsCommentLine(lang, trimmed string) bool {
	switch lang {
	case LangPython:
		return strings.HasPrefix(trimmed, "#")
	case LangGo:
		return strings.HasPrefix(trimmed, "//") ||
			strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*")
	case LangJavaScript, LangTypeScript:
		return strings.HasPrefix(trimmed, "//") ||
			strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*")
	default:
		return false
	}
}
