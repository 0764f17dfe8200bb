// Package security 报告落盘的加密支持
// 密钥由本机指纹派生，报告库文件拷到别的机器上无法解开
package security

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/tjfoc/gmsm/sm3"
	"github.com/tjfoc/gmsm/sm4"
)

// KeyProvider 密钥来源
type KeyProvider interface {
	GetKey() ([]byte, error)
}

// ==========================================
// 本机指纹密钥
// ==========================================

// MachineKeyProvider 由 machine-id 派生 SM4 密钥
type MachineKeyProvider struct {
	once sync.Once
	key  []byte
	err  error
}

// GetKey 返回 16 字节密钥，进程内只派生一次
func (p *MachineKeyProvider) GetKey() ([]byte, error) {
	p.once.Do(func() {
		info, err := host.Info()
		if err != nil {
			p.err = fmt.Errorf("读取主机信息失败: %w", err)
			return
		}
		raw := strings.TrimSpace(info.HostID)
		// 容器环境可能没有 machine-id，退回主机名
		if raw == "" {
			raw = info.Hostname
		}
		if raw == "" {
			p.err = errors.New("machine-id 与主机名均为空")
			return
		}
		sum := sm3.Sm3Sum([]byte("crs-report-key:" + raw))
		p.key = sum[:sm4.BlockSize]
	})
	return p.key, p.err
}

// StaticKeyProvider 固定密钥，测试用
type StaticKeyProvider struct {
	Key []byte
}

func (p *StaticKeyProvider) GetKey() ([]byte, error) {
	if len(p.Key) != sm4.BlockSize {
		return nil, fmt.Errorf("密钥长度 %d, 需要 %d", len(p.Key), sm4.BlockSize)
	}
	return p.Key, nil
}

// ==========================================
// SM4-CBC 报告加密
// ==========================================

// BlobCipher 对报告 JSON 做 SM4-CBC 加解密
// 密文格式: [16字节随机IV] + [密文]
type BlobCipher struct {
	keyProvider KeyProvider
}

// NewBlobCipher 创建加密器，kp 为 nil 时使用本机指纹密钥
func NewBlobCipher(kp KeyProvider) *BlobCipher {
	if kp == nil {
		kp = &MachineKeyProvider{}
	}
	return &BlobCipher{keyProvider: kp}
}

// Encrypt 加密报告内容
func (c *BlobCipher) Encrypt(plaintext []byte) ([]byte, error) {
	key, err := c.keyProvider.GetKey()
	if err != nil {
		return nil, err
	}
	block, err := sm4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("SM4 密钥无效: %w", err)
	}

	padded := pkcs7Pad(plaintext, sm4.BlockSize)
	out := make([]byte, sm4.BlockSize+len(padded))
	iv := out[:sm4.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("生成 IV 失败: %w", err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[sm4.BlockSize:], padded)
	return out, nil
}

// Decrypt 解密报告内容
func (c *BlobCipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < sm4.BlockSize {
		return nil, errors.New("密文过短")
	}
	key, err := c.keyProvider.GetKey()
	if err != nil {
		return nil, err
	}
	block, err := sm4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("SM4 密钥无效: %w", err)
	}

	iv := blob[:sm4.BlockSize]
	body := blob[sm4.BlockSize:]
	if len(body)%sm4.BlockSize != 0 {
		return nil, errors.New("密文长度不是分组整数倍")
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
	return pkcs7Unpad(plain)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("数据为空")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > len(data) {
		return nil, errors.New("填充长度非法")
	}
	for i := len(data) - n; i < len(data); i++ {
		if data[i] != byte(n) {
			return nil, errors.New("填充字节非法")
		}
	}
	return data[:len(data)-n], nil
}
