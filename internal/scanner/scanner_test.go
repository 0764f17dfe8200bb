package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func defaultOpts() Options {
	return Options{
		Extensions: []string{"go", "py", "js", "ts"},
		Recursive:  true,
		Workers:    2,
		Threshold:  0.95,
	}
}

const cleanGo = `func Load(ctx context.Context) ([]Item, error) {
	rows, err := db.Query("SELECT id FROM items")
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}
`

const stubPy = `# TODO: implement
def get_users():
    return {}
`

func TestScanTotalsAddUp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", cleanGo)
	writeFile(t, dir, "b.py", stubPy)
	writeFile(t, dir, "sub/c.py", stubPy)
	// 二进制文件会进入 errors
	writeFile(t, dir, "bad.go", "package x\x00binary")
	// 不在扩展名列表内，不计入
	writeFile(t, dir, "notes.txt", "hello")

	s, err := Scan(context.Background(), dir, defaultOpts())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(s.Results) != 3 {
		t.Errorf("len(Results) = %d, want 3", len(s.Results))
	}
	if len(s.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1: %+v", len(s.Errors), s.Errors)
	}
	if s.TotalFiles != len(s.Results)+len(s.Errors) {
		t.Errorf("TotalFiles = %d, want %d", s.TotalFiles, len(s.Results)+len(s.Errors))
	}
	if s.Errors[0].Kind != "file_read_error" {
		t.Errorf("Errors[0].Kind = %s, want file_read_error", s.Errors[0].Kind)
	}
}

func TestScanNonRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", stubPy)
	writeFile(t, dir, "sub/b.py", stubPy)

	opts := defaultOpts()
	opts.Recursive = false
	s, err := Scan(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(s.Results) != 1 {
		t.Errorf("非递归应只扫顶层: %d", len(s.Results))
	}
}

func TestScanSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", stubPy)
	writeFile(t, dir, ".hidden.py", stubPy)
	writeFile(t, dir, ".git/hook.py", stubPy)

	s, err := Scan(context.Background(), dir, defaultOpts())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(s.Results) != 1 {
		t.Errorf("隐藏文件与隐藏目录应跳过: %d", len(s.Results))
	}
}

func TestScanExitCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clean.go", cleanGo)
	s, err := Scan(context.Background(), dir, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	if s.ExitCode() != 0 {
		t.Errorf("干净目录 ExitCode = %d, want 0", s.ExitCode())
	}

	writeFile(t, dir, "pay.go", "func init() {\n\tapi_key := \"sk-live-abcdef0123456789\"\n\t_ = api_key\n}\n")
	s, err = Scan(context.Background(), dir, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	if s.CriticalCount == 0 {
		t.Fatal("应统计到 critical 命中")
	}
	if s.ExitCode() != 1 {
		t.Errorf("含 critical 的目录 ExitCode = %d, want 1", s.ExitCode())
	}
}

func TestScanGamingExitCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.py", "def build(findings):\n    excluded_findings = [\"x\"]\n    return findings\n")
	s, err := Scan(context.Background(), dir, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	if s.GamingCount == 0 {
		t.Fatal("应统计到指标操纵命中")
	}
	if s.ExitCode() != 1 {
		t.Errorf("含指标操纵的目录 ExitCode = %d, want 1", s.ExitCode())
	}
}

func TestScanEmptyExtensions(t *testing.T) {
	_, err := Scan(context.Background(), t.TempDir(), Options{Recursive: true})
	if err == nil {
		t.Fatal("空扩展名列表应返回配置错误")
	}
}

func TestScanBadThreshold(t *testing.T) {
	for _, bad := range []float64{1.5, -0.1} {
		opts := defaultOpts()
		opts.Threshold = bad
		_, err := Scan(context.Background(), t.TempDir(), opts)
		if err == nil {
			t.Fatalf("非法阈值 %v 应返回配置错误", bad)
		}
	}
}

// TestScanZeroThresholdDefaults 阈值 0 视为未设置，取默认值而非报错
func TestScanZeroThresholdDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clean.go", cleanGo)
	opts := defaultOpts()
	opts.Threshold = 0
	s, err := Scan(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("阈值 0 不应报错: %v", err)
	}
	if s.RealFiles != 1 {
		t.Errorf("默认阈值下干净文件应判定真实: %+v", s)
	}
}

func TestScanCancelled(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, dir, filepath.Join("d", "f"+string(rune('a'+i))+".py"), stubPy)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := Scan(ctx, dir, defaultOpts())
	if err == nil {
		t.Fatal("已取消的 ctx 应返回错误")
	}
	if s == nil {
		t.Fatal("取消后仍应返回部分汇总")
	}
	if len(s.Results) != 0 {
		t.Errorf("派发前已取消，不应有结果: %d", len(s.Results))
	}
}

func TestScanCriticalRanking(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one_crit.go", "func init() {\n\tapi_key := \"sk-live-abcdef0123456789\"\n\t_ = api_key\n}\n")
	writeFile(t, dir, "two_crit.go", "func init() {\n\tapi_key := \"sk-live-abcdef0123456789\"\n\ttoken := \"ghp-0123456789abcdef\"\n\t_, _ = api_key, token\n}\n")
	writeFile(t, dir, "clean.go", cleanGo)

	s, err := Scan(context.Background(), dir, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.CriticalFiles) < 2 {
		t.Fatalf("len(CriticalFiles) = %d, want >= 2", len(s.CriticalFiles))
	}
	if filepath.Base(s.CriticalFiles[0]) != "two_crit.go" {
		t.Errorf("critical 多者应排前: %v", s.CriticalFiles)
	}
	for _, f := range s.CriticalFiles {
		if filepath.Base(f) == "clean.go" {
			t.Error("干净文件不应进入危害榜")
		}
	}
}

func TestScanSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", stubPy)
	s, err := Scan(context.Background(), path, defaultOpts())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(s.Results) != 1 {
		t.Errorf("单文件扫描应返回 1 条结果: %d", len(s.Results))
	}
}
