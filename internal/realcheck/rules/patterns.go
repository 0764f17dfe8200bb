package rules

import (
	"regexp"
)

// Category 模式分类
type Category string

const (
	CategoryFabrication  Category = "fabrication"   // 伪造实现类
	CategoryMetricGaming Category = "metric_gaming" // 指标操纵类
)

// Severity 严重级别
type Severity int

const (
	SeverityInfo     Severity = iota // 提示
	SeverityLow                      // 低
	SeverityMedium                   // 中
	SeverityHigh                     // 高
	SeverityCritical                 // 严重
)

// String 返回严重级别的字符串表示
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return "info"
	}
}

// ParseSeverity 从字符串解析严重级别
func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// StructuralKind 结构规则类型
// 文本规则靠正则逐行匹配，结构规则针对函数跨度求值
type StructuralKind int

const (
	StructNone          StructuralKind = iota // 非结构规则
	StructStubReturn                          // 函数体仅有一条空值字面量返回
	StructLiteralReturn                       // 函数体仅有一条字面量常量返回
	StructAlwaysTrue                          // 函数无分支且恒返回 true
	StructEmptyBody                           // 函数体为空
	StructMockNoCall                          // 注释提及外部依赖但无对应调用
)

// Pattern 表示一条检测规则
type Pattern struct {
	ID             string         // 规则标识
	Category       Category       // 分类
	Severity       Severity       // 严重级别
	Regex          *regexp.Regexp // 文本规则正则 (结构规则为 nil)
	Structural     StructuralKind // 结构规则类型
	Explanation    string         // 解释模板
	Suggestion     string         // 整改建议模板
	BaseConfidence float64        // 基础置信度，佐证信号逐项加成
	Examples       []string       // 示例
}

// IsStructural 是否为结构规则
func (p *Pattern) IsStructural() bool {
	return p.Structural != StructNone
}

// Match 检查单行文本是否匹配该模式 (仅文本规则)
func (p *Pattern) Match(line string) bool {
	if p.Regex == nil {
		return false
	}
	return p.Regex.MatchString(line)
}

// FindString 查找第一个匹配的字符串
func (p *Pattern) FindString(text string) string {
	if p.Regex == nil {
		return ""
	}
	return p.Regex.FindString(text)
}

// ============================================================
// 伪造实现模式
// 特征: 代码看似已实现，实际返回固定数据或无真实逻辑
// ============================================================

// HardcodedCredentialPattern 硬编码凭证模式
var HardcodedCredentialPattern = &Pattern{
	ID:       "hardcoded_credential",
	Category: CategoryFabrication,
	Severity: SeverityCritical,
	Regex: regexp.MustCompile(
		`(?i)(api[_-]?key|apikey|secret[_-]?key|secret|token|passwd|password|credential)\s*[:=]{1,2}\s*["'][A-Za-z0-9+/@_\-]{8,}["']`),
	Explanation:    "检测到疑似硬编码的凭证字面量",
	Suggestion:     "将凭证移入环境变量或密钥管理服务，不要写死在代码中",
	BaseConfidence: 0.70,
	Examples: []string{
		`API_KEY = "sk-abcdef1234567890"`,
		`password := "SuperSecret99"`,
	},
}

// PlaceholderLiteralPattern 占位字符串模式
var PlaceholderLiteralPattern = &Pattern{
	ID:       "placeholder_literal",
	Category: CategoryFabrication,
	Severity: SeverityHigh,
	Regex: regexp.MustCompile(
		`(?i)["'][^"'\n]*(your-|changeme|change_me|placeholder|lorem ipsum|dummy[_-]?(value|data)|example\.com)[^"'\n]*["']`),
	Explanation:    "检测到占位符字面量，实现尚未接入真实数据",
	Suggestion:     "替换为真实配置或数据来源",
	BaseConfidence: 0.60,
	Examples: []string{
		`url = "https://your-api.example.com"`,
		`client_id = "dev-placeholder"`,
	},
}

// TodoInProductionPattern 生产代码遗留 TODO 模式
var TodoInProductionPattern = &Pattern{
	ID:       "todo_in_production",
	Category: CategoryFabrication,
	Severity: SeverityHigh,
	Regex: regexp.MustCompile(
		`(//|#|/\*|<!--)\s*(TODO|FIXME|XXX|HACK)\b`),
	Explanation:    "代码路径中遗留 TODO/FIXME 标记",
	Suggestion:     "完成标记处的实现，或将其移入任务跟踪系统",
	BaseConfidence: 0.80,
	Examples: []string{
		`// TODO: implement`,
		`# FIXME 这里没有处理超时`,
	},
}

// NotImplementedPattern 未实现标记模式
var NotImplementedPattern = &Pattern{
	ID:       "not_implemented_marker",
	Category: CategoryFabrication,
	Severity: SeverityHigh,
	Regex: regexp.MustCompile(
		`(?i)(panic\(["']not implemented|NotImplementedError|unimplemented!\(\)|throw new Error\(["']Not implemented)`),
	Explanation:    "函数显式抛出未实现标记",
	Suggestion:     "补全实现，或将该接口从公开面移除",
	BaseConfidence: 0.85,
	Examples: []string{
		`panic("not implemented")`,
		`raise NotImplementedError`,
	},
}

// StubReturnPattern 无警示桩实现模式
var StubReturnPattern = &Pattern{
	ID:             "stub_without_warning",
	Category:       CategoryFabrication,
	Severity:       SeverityHigh,
	Structural:     StructStubReturn,
	Explanation:    "函数体仅返回空值字面量，是未实现的桩",
	Suggestion:     "实现真实逻辑，或显式标记该函数为桩实现",
	BaseConfidence: 0.60,
	Examples: []string{
		`func List() []Item { return nil }`,
		`def get_users(): return {}`,
	},
}

// LiteralReturnPattern 伪造数据返回模式
var LiteralReturnPattern = &Pattern{
	ID:             "fabricated_data_return",
	Category:       CategoryFabrication,
	Severity:       SeverityMedium,
	Structural:     StructLiteralReturn,
	Explanation:    "函数体仅有一条字面量常量返回，疑似返回罐装数据",
	Suggestion:     "接入真实数据来源，去除罐装返回值",
	BaseConfidence: 0.50,
	Examples: []string{
		`func Count() int { return 42 }`,
		`def score(): return 0.99`,
	},
}

// AlwaysTruePattern 恒真返回模式
var AlwaysTruePattern = &Pattern{
	ID:             "always_true_return",
	Category:       CategoryFabrication,
	Severity:       SeverityMedium,
	Structural:     StructAlwaysTrue,
	Explanation:    "函数无任何分支且恒返回 true",
	Suggestion:     "实现真实的判定逻辑，覆盖失败路径",
	BaseConfidence: 0.55,
	Examples: []string{
		`func Validate(x string) bool { return true }`,
	},
}

// EmptyBodyPattern 空函数体模式
var EmptyBodyPattern = &Pattern{
	ID:             "empty_function_body",
	Category:       CategoryFabrication,
	Severity:       SeverityMedium,
	Structural:     StructEmptyBody,
	Explanation:    "函数体为空",
	Suggestion:     "补全函数实现，或删除无用的函数声明",
	BaseConfidence: 0.50,
	Examples: []string{
		`func Close() {}`,
	},
}

// MockNoCallPattern 假集成模式
var MockNoCallPattern = &Pattern{
	ID:             "mock_without_real_call",
	Category:       CategoryFabrication,
	Severity:       SeverityMedium,
	Structural:     StructMockNoCall,
	Explanation:    "注释声称调用外部依赖，但函数体中不存在对应调用",
	Suggestion:     "接入真实的外部调用，或修正误导性注释",
	BaseConfidence: 0.45,
	Examples: []string{
		`// 调用 Stripe API 完成扣款`,
	},
}

// RandomAsDataPattern 随机数冒充数据模式
var RandomAsDataPattern = &Pattern{
	ID:       "random_as_data",
	Category: CategoryFabrication,
	Severity: SeverityMedium,
	Regex: regexp.MustCompile(
		`return\s+[^\n]*(Math\.random\(\)|rand\.(Intn|Int31|Int63|Float32|Float64)\(|random\.(random|randint|uniform)\()`),
	Explanation:    "返回值由随机数生成，疑似用随机数冒充真实数据",
	Suggestion:     "替换为真实的计算或查询结果",
	BaseConfidence: 0.55,
	Examples: []string{
		`return Math.random() * 100`,
		`return rand.Intn(50)`,
	},
}

// SleepFakeWorkPattern 休眠冒充处理模式
var SleepFakeWorkPattern = &Pattern{
	ID:       "sleep_fake_work",
	Category: CategoryFabrication,
	Severity: SeverityMedium,
	Regex: regexp.MustCompile(
		`(?i)(sleep|settimeout)[^\n]*(//|#)[^\n]*(simulate|simulat|fake|pretend|模拟|假装)`),
	Explanation:    "通过休眠模拟处理耗时，并无真实工作",
	Suggestion:     "实现真实处理逻辑，去除模拟休眠",
	BaseConfidence: 0.60,
	Examples: []string{
		`time.Sleep(2 * time.Second) // simulate processing`,
	},
}

// IgnoredErrorPattern 错误被丢弃模式
var IgnoredErrorPattern = &Pattern{
	ID:       "ignored_error_return",
	Category: CategoryFabrication,
	Severity: SeverityMedium,
	Regex: regexp.MustCompile(
		`(\w+\s*,\s*_\s*:?=\s*\w+[\w.]*\(|^\s*_\s*=\s*\w+[\w.]*\()`),
	Explanation:    "错误返回值被显式丢弃",
	Suggestion:     "处理错误而非用 _ 丢弃",
	BaseConfidence: 0.50,
	Examples: []string{
		`data, _ := io.ReadAll(resp.Body)`,
	},
}

// DebugOutputPattern 调试输出遗留模式
var DebugOutputPattern = &Pattern{
	ID:       "console_debug_output",
	Category: CategoryFabrication,
	Severity: SeverityLow,
	Regex: regexp.MustCompile(
		`(console\.log\(|console\.debug\(|fmt\.Println\("(debug|DEBUG|here|HERE))`),
	Explanation:    "调试输出语句遗留在代码中",
	Suggestion:     "改用结构化日志，或删除调试语句",
	BaseConfidence: 0.40,
	Examples: []string{
		`console.log("got here")`,
	},
}

// ============================================================
// 指标操纵模式
// 特征: 绕过或污染评分/报告机制本身
// ============================================================

// CoverageExclusionPattern 覆盖率豁免标记模式
var CoverageExclusionPattern = &Pattern{
	ID:       "coverage_exclusion",
	Category: CategoryMetricGaming,
	Severity: SeverityHigh,
	Regex: regexp.MustCompile(
		`(?i)(pragma:\s*no\s*cover|istanbul ignore|coverage:\s*ignore|codecov ignore)`),
	Explanation:    "代码被标记为覆盖率统计豁免",
	Suggestion:     "为该代码补充测试，而不是将其排除在统计之外",
	BaseConfidence: 0.75,
	Examples: []string{
		`# pragma: no cover`,
		`/* istanbul ignore next */`,
	},
}

// LintDisablePattern 静态检查整体关闭模式
var LintDisablePattern = &Pattern{
	ID:       "lint_disable_sweep",
	Category: CategoryMetricGaming,
	Severity: SeverityHigh,
	Regex: regexp.MustCompile(
		`(/\*\s*eslint-disable\s*\*/|pylint:\s*disable=all|//\s*nolint\s*$|//\s*nolint:all)`),
	Explanation:    "静态检查被整体关闭",
	Suggestion:     "修复具体告警，仅在确有必要时做单条豁免并注明原因",
	BaseConfidence: 0.70,
	Examples: []string{
		`/* eslint-disable */`,
		`# pylint: disable=all`,
	},
}

// TestSkipPattern 测试跳过标记模式
var TestSkipPattern = &Pattern{
	ID:       "test_skip_marker",
	Category: CategoryMetricGaming,
	Severity: SeverityMedium,
	Regex: regexp.MustCompile(
		`(t\.Skip\(|@pytest\.mark\.skip|@unittest\.skip|\bxit\(|\bxdescribe\(|\btest\.skip\(|\bit\.skip\()`),
	Explanation:    "测试被标记为跳过",
	Suggestion:     "修复并恢复被跳过的测试",
	BaseConfidence: 0.60,
	Examples: []string{
		`t.Skip("flaky")`,
		`@pytest.mark.skip`,
	},
}

// CompletionClaimPattern 完成度宣称注释模式
var CompletionClaimPattern = &Pattern{
	ID:       "completion_claim_comment",
	Category: CategoryMetricGaming,
	Severity: SeverityHigh,
	Regex: regexp.MustCompile(
		`(?i)(//|#|/\*|<!--)[^\n]*\b(100%\s*(complete|done|coverage)|fully\s+(implemented|tested)|all\s+tests\s+pass(ing)?|production[- ]ready)\b`),
	Explanation:    "注释宣称完成度，但宣称本身不构成实现",
	Suggestion:     "删除宣称性注释，让代码和测试自己说话",
	BaseConfidence: 0.65,
	Examples: []string{
		`// fully implemented and production-ready`,
		`# 100% complete`,
	},
}

// ThresholdLoweringPattern 阈值放水模式
var ThresholdLoweringPattern = &Pattern{
	ID:       "threshold_lowering",
	Category: CategoryMetricGaming,
	Severity: SeverityHigh,
	Regex: regexp.MustCompile(
		`(?i)(cov[_-]?fail[_-]?under\s*[:=]\s*0\b|coverageThreshold[^\n]*[:=]\s*0\b|fail[_-]?on[_-]?error\s*[:=]\s*false)`),
	Explanation:    "质量门槛被调低或关闭",
	Suggestion:     "恢复质量门槛，并使代码真正达标",
	BaseConfidence: 0.60,
	Examples: []string{
		`--cov-fail-under=0`,
		`failOnError: false`,
	},
}

// AssertTruePattern 恒真断言模式
var AssertTruePattern = &Pattern{
	ID:       "assert_true_only",
	Category: CategoryMetricGaming,
	Severity: SeverityHigh,
	Regex: regexp.MustCompile(
		`(assert\s+True\s*$|assert\s+true\s*$|assertTrue\(true\)|expect\(true\)\.toBe\(true\)|assert\.True\(t,\s*true\))`),
	Explanation:    "测试断言恒为真，不校验任何行为",
	Suggestion:     "断言具体的输出和副作用",
	BaseConfidence: 0.80,
	Examples: []string{
		`expect(true).toBe(true)`,
		`assert.True(t, true)`,
	},
}

// FindingSuppressionPattern 检测结果抑制模式
var FindingSuppressionPattern = &Pattern{
	ID:       "finding_suppression",
	Category: CategoryMetricGaming,
	Severity: SeverityHigh,
	Regex: regexp.MustCompile(
		`(?i)(exclude|suppress|ignore|filter[_-]?out)[_-]?(d)?[_-]?(findings?|violations?|detections?|issues?|warnings?)\b`),
	Explanation:    "存在从评分中排除检测结果的构造",
	Suggestion:     "修复被抑制的问题，而不是将其从报告中过滤",
	BaseConfidence: 0.60,
	Examples: []string{
		`excluded_findings = ["hardcoded_credential"]`,
		`suppressViolations(results)`,
	},
}

// ============================================================
// 模式集合
// ============================================================

// FabricationPatterns 伪造实现模式集合
var FabricationPatterns = []*Pattern{
	HardcodedCredentialPattern,
	PlaceholderLiteralPattern,
	TodoInProductionPattern,
	NotImplementedPattern,
	StubReturnPattern,
	LiteralReturnPattern,
	AlwaysTruePattern,
	EmptyBodyPattern,
	MockNoCallPattern,
	RandomAsDataPattern,
	SleepFakeWorkPattern,
	IgnoredErrorPattern,
	DebugOutputPattern,
}

// MetricGamingPatterns 指标操纵模式集合
var MetricGamingPatterns = []*Pattern{
	CoverageExclusionPattern,
	LintDisablePattern,
	TestSkipPattern,
	CompletionClaimPattern,
	ThresholdLoweringPattern,
	AssertTruePattern,
	FindingSuppressionPattern,
}

// AllPatterns 所有模式的集合
// 运行期只读；新增模式需要重新构建
var AllPatterns = buildAll()

func buildAll() []*Pattern {
	all := make([]*Pattern, 0, len(FabricationPatterns)+len(MetricGamingPatterns))
	all = append(all, FabricationPatterns...)
	all = append(all, MetricGamingPatterns...)
	return all
}

// PatternsByCategory 按分类返回模式列表
func PatternsByCategory(cat Category) []*Pattern {
	switch cat {
	case CategoryFabrication:
		return FabricationPatterns
	case CategoryMetricGaming:
		return MetricGamingPatterns
	default:
		return nil
	}
}

// PatternByID 按 ID 查找模式
func PatternByID(id string) *Pattern {
	for _, p := range AllPatterns {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ValidateCatalog 校验规则目录完整性
// 目录为空属于配置级致命错误，扫描开始前即应失败
func ValidateCatalog() error {
	if len(AllPatterns) == 0 {
		return errCatalogEmpty
	}
	seen := make(map[string]bool, len(AllPatterns))
	for _, p := range AllPatterns {
		if p.ID == "" {
			return errCatalogEmpty
		}
		if seen[p.ID] {
			return errDuplicateID(p.ID)
		}
		seen[p.ID] = true
		if !p.IsStructural() && p.Regex == nil {
			return errNoMatcher(p.ID)
		}
	}
	return nil
}
