package security

import (
	"bytes"
	"testing"
)

func testCipher() *BlobCipher {
	return NewBlobCipher(&StaticKeyProvider{Key: []byte("0123456789abcdef")})
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c := testCipher()
	plain := []byte(`{"summary":{"total_files":3}}`)

	blob, err := c.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Contains(blob, plain) {
		t.Error("密文不应包含明文")
	}

	got, err := c.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("解密结果 = %q, want %q", got, plain)
	}
}

// TestEncryptRandomIV 相同明文两次加密应产生不同密文
func TestEncryptRandomIV(t *testing.T) {
	c := testCipher()
	plain := []byte("same content")
	a, err := c.Encrypt(plain)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encrypt(plain)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("随机 IV 下两次密文不应相同")
	}
}

func TestDecryptGarbage(t *testing.T) {
	c := testCipher()
	if _, err := c.Decrypt([]byte("short")); err == nil {
		t.Error("过短密文应报错")
	}
	if _, err := c.Decrypt(make([]byte, 20)); err == nil {
		t.Error("非分组整数倍密文应报错")
	}
}

func TestStaticKeyProviderLength(t *testing.T) {
	p := &StaticKeyProvider{Key: []byte("short")}
	if _, err := p.GetKey(); err == nil {
		t.Error("非 16 字节密钥应报错")
	}
}

func TestMachineKeyStable(t *testing.T) {
	p := &MachineKeyProvider{}
	k1, err := p.GetKey()
	if err != nil {
		t.Skipf("本机无法派生密钥: %v", err)
	}
	k2, _ := p.GetKey()
	if !bytes.Equal(k1, k2) {
		t.Error("同进程内密钥应稳定")
	}
	if len(k1) != 16 {
		t.Errorf("密钥长度 = %d, want 16", len(k1))
	}
}
