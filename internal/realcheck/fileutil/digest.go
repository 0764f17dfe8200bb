package fileutil

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/tjfoc/gmsm/sm3"
)

// Digest 计算内容的 SM3 摘要，返回十六进制字符串
// 同一摘要对应同一套命中结果，可用于结果幂等校验
func Digest(data []byte) string {
	h := sm3.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DigestFile 流式计算文件的 SM3 摘要
func DigestFile(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sm3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
