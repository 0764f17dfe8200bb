package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"codeRealityScanner/internal/realcheck"
	"codeRealityScanner/internal/realcheck/matcher"
	"codeRealityScanner/internal/realcheck/scorer"
	"codeRealityScanner/internal/scanner"
)

func sampleSummary() *scanner.ScanSummary {
	clean := scorer.Score("/src/clean.go", nil, scorer.DefaultThreshold, false)
	bad := scorer.Score("/src/bad.go", []matcher.Detection{
		{PatternID: "hardcoded_credential", Category: "fabrication", Severity: "critical", Line: 3},
	}, scorer.DefaultThreshold, false)

	return &scanner.ScanSummary{
		RootPath:      "/src",
		TotalFiles:    3,
		RealFiles:     1,
		AverageScore:  0.875,
		GradeDist:     map[string]int{"PERFECT": 1, "C": 1},
		CriticalCount: 1,
		CriticalFiles: []string{"/src/bad.go"},
		Results: []*realcheck.Output{
			{File: clean},
			{File: bad},
		},
		Errors: []scanner.ErrorEntry{
			{Path: "/src/broken.bin", Kind: "file_read_error", Message: "二进制文件"},
		},
		StartedAt: time.Now(),
		ElapsedMS: 12,
	}
}

func TestBuild(t *testing.T) {
	r := Build(sampleSummary())
	if r.ScanInfo.RootPath != "/src" {
		t.Errorf("RootPath = %s", r.ScanInfo.RootPath)
	}
	if r.Summary.OverallGrade != "A" {
		t.Errorf("OverallGrade = %s, want A (avg 0.875)", r.Summary.OverallGrade)
	}
	if r.Summary.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", r.Summary.ErrorCount)
	}
	if len(r.Details) != 2 {
		t.Errorf("len(Details) = %d, want 2", len(r.Details))
	}
	// 两个结果里一个 PERFECT，占比 0.5
	if r.Summary.TopGradeRate != 0.5 {
		t.Errorf("TopGradeRate = %f, want 0.5", r.Summary.TopGradeRate)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Build(sampleSummary()).WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("输出应为合法 JSON: %v", err)
	}
	for _, key := range []string{"scan_info", "summary", "details", "errors"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("JSON 缺少 %s 段", key)
		}
	}

	var info ScanInfo
	if err := json.Unmarshal(doc["scan_info"], &info); err != nil {
		t.Fatal(err)
	}
	if info.RootPath != "/src" || info.Version == "" {
		t.Errorf("scan_info 不完整: %+v", info)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	Build(sampleSummary()).WriteText(&buf, true)
	out := buf.String()

	for _, want := range []string{"/src", "bad.go", "hardcoded_credential", "file_read_error"} {
		if !strings.Contains(out, want) {
			t.Errorf("文本报告缺少 %q", want)
		}
	}
}

func TestTopGradeRateEmpty(t *testing.T) {
	s := &scanner.ScanSummary{GradeDist: map[string]int{}}
	if got := topGradeRate(s); got != 0 {
		t.Errorf("空结果占比 = %f, want 0", got)
	}
}
