package engine

import (
	"strings"
	"testing"

	"codeRealityScanner/internal/realcheck/outline"
)

func buildInput(path, src string) Input {
	lines := strings.Split(src, "\n")
	ol, err := outline.Parse(path, lines)
	return Input{Path: path, Lines: lines, Outline: ol, OutlineErr: err}
}

func TestModulesAlwaysActivated(t *testing.T) {
	o := NewOrchestrator()
	r := o.Validate(buildInput("clean.go", "package x\n"))
	if len(r.ModulesActivated) != len(ModuleNames) {
		t.Fatalf("ModulesActivated = %v, want 全量 %v", r.ModulesActivated, ModuleNames)
	}
	for i, name := range ModuleNames {
		if r.ModulesActivated[i] != name {
			t.Errorf("ModulesActivated[%d] = %s, want %s", i, r.ModulesActivated[i], name)
		}
	}
	if len(r.Outcomes) != len(ModuleNames) {
		t.Errorf("len(Outcomes) = %d, want %d", len(r.Outcomes), len(ModuleNames))
	}
	if !r.IsValid {
		t.Errorf("干净文件应合规: %+v", r.Violations)
	}
}

// TestFindingSuppressionInvalidates 过滤检测结果的构造应直接否决
func TestFindingSuppressionInvalidates(t *testing.T) {
	src := `def build_report(findings):
    excluded_findings = ["hardcoded_credential"]
    kept = [f for f in findings if f.id not in excluded_findings]
    return kept
`
	o := NewOrchestrator()
	r := o.Validate(buildInput("report.py", src))
	if r.IsValid {
		t.Fatal("指标操纵文件 is_valid 应为 false")
	}
	found := false
	for _, v := range r.Violations {
		if v.PatternID == "finding_suppression" && v.Validator == ModuleMetricGaming {
			found = true
		}
	}
	if !found {
		t.Errorf("应有 finding_suppression 违规: %+v", r.Violations)
	}
}

func TestFabricationModule(t *testing.T) {
	src := `# TODO: implement
def get_users():
    return {}
`
	o := NewOrchestrator()
	r := o.Validate(buildInput("users.py", src))
	if r.IsValid {
		t.Fatal("桩实现 is_valid 应为 false")
	}
	var fab *ValidatorOutcome
	for i := range r.Outcomes {
		if r.Outcomes[i].Validator == ModuleFabrication {
			fab = &r.Outcomes[i]
		}
	}
	if fab == nil || fab.Compliant {
		t.Fatalf("fabrication_pattern 模块应不合规: %+v", fab)
	}
	// 违规模块必须携带整改建议
	if len(fab.Recommendations) == 0 {
		t.Fatalf("不合规模块应有 Recommendations: %+v", fab)
	}
	found := false
	for _, rec := range fab.Recommendations {
		if strings.Contains(rec, "桩实现") {
			found = true
		}
	}
	if !found {
		t.Errorf("建议应来自规则的 Suggestion 字段: %v", fab.Recommendations)
	}
	// 不短路: 后续模块照常执行
	last := r.Outcomes[len(r.Outcomes)-1]
	if last.Validator != ModuleMetricGaming {
		t.Errorf("最后一个模块 = %s, want %s", last.Validator, ModuleMetricGaming)
	}
}

// TestRecommendationsDeduped 同一规则多次命中只保留一条建议，合规模块无建议
func TestRecommendationsDeduped(t *testing.T) {
	src := `def load_a():
    return {}

def load_b():
    return {}
`
	o := NewOrchestrator()
	r := o.Validate(buildInput("loaders.py", src))
	for _, out := range r.Outcomes {
		if out.Compliant && len(out.Recommendations) != 0 {
			t.Errorf("合规模块 %s 不应携带建议: %v", out.Validator, out.Recommendations)
		}
		seen := map[string]bool{}
		for _, rec := range out.Recommendations {
			if seen[rec] {
				t.Errorf("模块 %s 建议重复: %q", out.Validator, rec)
			}
			seen[rec] = true
		}
	}
}

// TestPanicIsolation 模块 panic 降级为 validator_failure 违规
func TestPanicIsolation(t *testing.T) {
	boom := func(Input) ([]Violation, []string) { panic("boom") }
	outcome := runIsolated("fabrication_pattern", boom, Input{Path: "x.go"})
	if outcome.Compliant || !outcome.Failed {
		t.Fatalf("panic 模块应标记失败: %+v", outcome)
	}
	if len(outcome.Violations) != 1 || outcome.Violations[0].PatternID != "validator_failure" {
		t.Fatalf("应产出 validator_failure 违规: %+v", outcome.Violations)
	}
	if outcome.Violations[0].Validator != "fabrication_pattern" {
		t.Errorf("违规应归属 panic 的模块: %+v", outcome.Violations[0])
	}
}

func TestMergeDedup(t *testing.T) {
	a := []Violation{
		{Validator: "m1", PatternID: "p1", Line: 3},
		{Validator: "m1", PatternID: "p2", Line: 3},
	}
	b := []Violation{
		{Validator: "m1", PatternID: "p1", Line: 3, Message: "后到的重复项"},
		{Validator: "m2", PatternID: "p1", Line: 3},
	}
	merged := mergeViolations(a, b)
	if len(merged) != 3 {
		t.Fatalf("len(merged) = %d, want 3: %+v", len(merged), merged)
	}
	// 先到先得
	if merged[0].Message != "" {
		t.Errorf("重复项应保留先到的: %+v", merged[0])
	}
}

func TestUncheckedAssumption(t *testing.T) {
	src := `func parsePort(s string) int {
	// assume the input is always valid
	n, _ := strconv.Atoi(s)
	return n
}
`
	o := NewOrchestrator()
	r := o.Validate(buildInput("port.go", src))
	found := false
	for _, v := range r.Violations {
		if v.PatternID == "unchecked_assumption" {
			found = true
			if v.Function != "parsePort" {
				t.Errorf("Function = %q, want parsePort", v.Function)
			}
		}
	}
	if !found {
		t.Errorf("应有 unchecked_assumption 违规: %+v", r.Violations)
	}
}

func TestGuardedAssumptionAllowed(t *testing.T) {
	src := `func parsePort(s string) (int, error) {
	// assume the input is a port number
	if s == "" {
		return 0, errors.New("empty port")
	}
	return strconv.Atoi(s)
}
`
	o := NewOrchestrator()
	r := o.Validate(buildInput("port.go", src))
	for _, v := range r.Violations {
		if v.PatternID == "unchecked_assumption" {
			t.Errorf("有校验的断言不应违规: %+v", v)
		}
	}
}

func TestNameBehaviorMismatch(t *testing.T) {
	src := `func fetchOrders() []Order {
	orders := cached
	return orders
}
`
	o := NewOrchestrator()
	r := o.Validate(buildInput("orders.go", src))
	found := false
	for _, v := range r.Violations {
		if v.PatternID == "name_behavior_mismatch" && v.Validator == ModuleConsistency {
			found = true
		}
	}
	if !found {
		t.Errorf("应有 name_behavior_mismatch 违规: %+v", r.Violations)
	}
}
