package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	checkerrors "codeRealityScanner/internal/realcheck/errors"
)

// DefaultMaxFileSize 默认单文件大小上限
const DefaultMaxFileSize = 10 * 1024 * 1024

// SourceFile 读入后的源码文件
type SourceFile struct {
	Path   string   // 绝对路径
	Size   int64    // 字节数
	Lines  []string // 按行拆分的内容
	Digest string   // SM3 摘要 (十六进制)
}

// ReadSource 安全读入一个源码文件
// 目录、超限、二进制、无法解码的文件均返回带分类码的错误
func ReadSource(filePath string, maxSize int64) (*SourceFile, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, checkerrors.FileReadError(filePath, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, checkerrors.FileNotFoundError(absPath)
		}
		return nil, checkerrors.FileReadError(absPath, err)
	}
	if stat.IsDir() {
		return nil, checkerrors.FileReadError(absPath, os.ErrInvalid).
			WithOperation("read_source")
	}
	if stat.Size() > maxSize {
		return nil, checkerrors.FileTooLargeError(absPath, stat.Size(), maxSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, checkerrors.FileReadError(absPath, err)
	}

	if kind, binary := sniffBinary(data); binary {
		return nil, checkerrors.BinaryFileError(absPath, kind)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, checkerrors.FileReadError(absPath, err).
			WithOperation("decode_text")
	}

	return &SourceFile{
		Path:   absPath,
		Size:   stat.Size(),
		Lines:  SplitLines(text),
		Digest: Digest(data),
	}, nil
}

// sniffBinary 通过魔数与 NUL 字节判断是否为二进制文件
func sniffBinary(data []byte) (string, bool) {
	head := data
	if len(head) > 262 {
		head = head[:262]
	}
	if filetype.IsImage(head) || filetype.IsArchive(head) ||
		filetype.IsAudio(head) || filetype.IsVideo(head) {
		if kind, err := filetype.Match(head); err == nil {
			return kind.Extension, true
		}
		return "binary", true
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return "binary", true
	}
	return "", false
}

// decodeText 按 UTF-8 解码，失败时回退 GBK
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// SplitLines 按行拆分，统一去掉 \r
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// FileExists 检查文件是否存在
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsDirectory 检查路径是否为目录
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// MatchExtension 文件扩展名是否在允许列表内
// 列表项不带点，小写比较
func MatchExtension(path string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == strings.ToLower(strings.TrimPrefix(a, ".")) {
			return true
		}
	}
	return false
}

// IsHiddenName 隐藏文件或目录
func IsHiddenName(name string) bool {
	return len(name) > 0 && name[0] == '.' && name != "." && name != ".."
}
