package realcheck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("写临时文件失败: %v", err)
	}
	return path
}

func TestCheckFileStub(t *testing.T) {
	path := writeTemp(t, "users.py", `# TODO: implement
def get_users():
    return {}
`)
	out, err := NewChecker(0, 0).CheckFile(path)
	if err != nil {
		t.Fatalf("CheckFile() error = %v", err)
	}
	if out.File.RealityScore >= 0.80 {
		t.Errorf("RealityScore = %f, want < 0.80", out.File.RealityScore)
	}
	if out.File.IsReal {
		t.Error("桩实现不应判定真实")
	}
	if out.Result.IsValid {
		t.Error("桩实现 is_valid 应为 false")
	}
	if out.File.Digest == "" {
		t.Error("应记录内容摘要")
	}
}

func TestCheckFileClean(t *testing.T) {
	path := writeTemp(t, "load.go", `func LoadUsers(ctx context.Context, db *sql.DB) ([]User, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name FROM users")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
`)
	out, err := NewChecker(0, 0).CheckFile(path)
	if err != nil {
		t.Fatalf("CheckFile() error = %v", err)
	}
	if out.File.RealityScore != 1.0 {
		t.Errorf("RealityScore = %f, want 1.0 (detections: %+v)", out.File.RealityScore, out.File.Detections)
	}
	if !out.File.IsReal || !out.Result.IsValid {
		t.Error("真实实现应同时通过计分与校验")
	}
}

// TestCheckFileDegraded 括号失衡文件降级为仅文本规则
func TestCheckFileDegraded(t *testing.T) {
	path := writeTemp(t, "broken.go", `func Broken() {
	// TODO: finish
	if x {
`)
	out, err := NewChecker(0, 0).CheckFile(path)
	if err != nil {
		t.Fatalf("降级不应返回错误: %v", err)
	}
	if !out.File.Degraded {
		t.Error("应标记 Degraded")
	}
	found := false
	for _, d := range out.File.Detections {
		if d.PatternID == "todo_in_production" {
			found = true
		}
	}
	if !found {
		t.Errorf("降级后文本规则应照常命中: %+v", out.File.Detections)
	}
	// 有命中时结论同样要带降级标注
	if !strings.Contains(out.File.Summary, "结构解析降级") {
		t.Errorf("Summary 应标注降级: %q", out.File.Summary)
	}
}

func TestCheckFileIdempotent(t *testing.T) {
	path := writeTemp(t, "same.py", `def count():
    return 42
`)
	c := NewChecker(0, 0)
	a, err := c.CheckFile(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.CheckFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if a.File.Digest != b.File.Digest {
		t.Error("同内容摘要应一致")
	}
	if a.File.RealityScore != b.File.RealityScore || len(a.File.Detections) != len(b.File.Detections) {
		t.Error("同内容的检测结果应幂等")
	}
}
