package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	checkerrors "codeRealityScanner/internal/realcheck/errors"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("写临时文件失败: %v", err)
	}
	return path
}

func TestReadSource(t *testing.T) {
	path := writeTemp(t, "demo.go", []byte("package demo\n\nfunc A() {}\n"))
	sf, err := ReadSource(path, 0)
	if err != nil {
		t.Fatalf("ReadSource() error = %v", err)
	}
	if len(sf.Lines) != 4 {
		t.Errorf("len(Lines) = %d, want 4", len(sf.Lines))
	}
	if sf.Lines[0] != "package demo" {
		t.Errorf("Lines[0] = %q", sf.Lines[0])
	}
	if len(sf.Digest) != 64 {
		t.Errorf("SM3 摘要长度 = %d, want 64", len(sf.Digest))
	}
}

func TestReadSourceCRLF(t *testing.T) {
	path := writeTemp(t, "win.py", []byte("def a():\r\n    pass\r\n"))
	sf, err := ReadSource(path, 0)
	if err != nil {
		t.Fatalf("ReadSource() error = %v", err)
	}
	if sf.Lines[0] != "def a():" {
		t.Errorf("应去掉行尾 \\r: %q", sf.Lines[0])
	}
}

func TestReadSourceNotFound(t *testing.T) {
	_, err := ReadSource("/no/such/file.go", 0)
	var ce *checkerrors.CheckerError
	if !errors.As(err, &ce) {
		t.Fatalf("应返回 CheckerError, got %T", err)
	}
	if ce.Kind() != "file_read_error" {
		t.Errorf("Kind() = %s, want file_read_error", ce.Kind())
	}
}

func TestReadSourceTooLarge(t *testing.T) {
	path := writeTemp(t, "big.go", make([]byte, 200))
	_, err := ReadSource(path, 100)
	var ce *checkerrors.CheckerError
	if !errors.As(err, &ce) || ce.Code != checkerrors.ErrFileTooLarge {
		t.Fatalf("应返回超限错误, got %v", err)
	}
}

func TestReadSourceBinary(t *testing.T) {
	// PNG 魔数
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	path := writeTemp(t, "img.go", png)
	_, err := ReadSource(path, 0)
	var ce *checkerrors.CheckerError
	if !errors.As(err, &ce) || ce.Code != checkerrors.ErrFileBinary {
		t.Fatalf("应识别为二进制, got %v", err)
	}
}

func TestReadSourceNulByte(t *testing.T) {
	path := writeTemp(t, "weird.go", []byte("package x\x00func"))
	if _, err := ReadSource(path, 0); err == nil {
		t.Fatal("含 NUL 的文件应判为二进制")
	}
}

func TestGBKFallback(t *testing.T) {
	// "配置" 的 GBK 编码
	gbk := []byte{0xC5, 0xE4, 0xD6, 0xC3}
	path := writeTemp(t, "gbk.go", append([]byte("// "), gbk...))
	sf, err := ReadSource(path, 0)
	if err != nil {
		t.Fatalf("GBK 文件应可回退解码: %v", err)
	}
	if sf.Lines[0] != "// 配置" {
		t.Errorf("Lines[0] = %q, want %q", sf.Lines[0], "// 配置")
	}
}

func TestDigestStable(t *testing.T) {
	d1 := Digest([]byte("hello"))
	d2 := Digest([]byte("hello"))
	d3 := Digest([]byte("world"))
	if d1 != d2 {
		t.Error("同内容摘要应一致")
	}
	if d1 == d3 {
		t.Error("不同内容摘要不应一致")
	}
}

func TestMatchExtension(t *testing.T) {
	allowed := []string{"go", ".py", "TS"}
	cases := []struct {
		path string
		want bool
	}{
		{"a/b/main.go", true},
		{"app.PY", true},
		{"web.ts", true},
		{"style.css", false},
		{"Makefile", false},
	}
	for _, c := range cases {
		if got := MatchExtension(c.path, allowed); got != c.want {
			t.Errorf("MatchExtension(%s) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestIsHiddenName(t *testing.T) {
	if !IsHiddenName(".git") {
		t.Error(".git 应为隐藏")
	}
	if IsHiddenName("main.go") || IsHiddenName(".") {
		t.Error("main.go 与 . 不应为隐藏")
	}
}
