package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfig_Integration 是一个综合集成测试
// 它会创建一个临时配置文件，设置环境变量，然后加载配置并验证结果
func TestLoadConfig_Integration(t *testing.T) {
	// 1. 准备测试数据 (YAML 内容)
	// 故意漏掉 scanner.workers，测试默认值是否生效
	// 故意写一个 checker.threshold，稍后尝试用环境变量覆盖它
	yamlContent := []byte(`
agent:
  log_level: "warn"
  data_dir: "/tmp/crs_data"

scanner:
  extensions:
    - "go"
    - "py"
  timeout: "30s"

checker:
  threshold: 0.90

storage:
  reports_limit: 20
`)

	// 2. 创建临时配置文件
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config_test.yaml")
	if err := os.WriteFile(tmpFile, yamlContent, 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	// 3. 设置环境变量 (测试 Viper 的 Env 覆盖能力)
	// 对应 loader.go 中的 SetEnvPrefix("CRS") 和 Replace(".", "_")
	// checker.threshold -> CRS_CHECKER_THRESHOLD
	os.Setenv("CRS_CHECKER_THRESHOLD", "0.80")
	defer os.Unsetenv("CRS_CHECKER_THRESHOLD")

	// 4. 执行加载
	// 注意：由于 loader.go 使用了 sync.Once，这个函数在整个测试包中只能有效运行一次
	if err := LoadConfig(tmpFile); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// 5. 获取全局配置
	cfg := Get()

	// ==========================================
	// 6. 断言验证
	// ==========================================

	// 验证 A: 配置文件中的值是否正确读取
	if cfg.Agent.LogLevel != "warn" {
		t.Errorf("Expected Agent.LogLevel 'warn', got '%s'", cfg.Agent.LogLevel)
	}
	if cfg.Agent.DataDir != "/tmp/crs_data" {
		t.Errorf("Expected Agent.DataDir '/tmp/crs_data', got '%s'", cfg.Agent.DataDir)
	}
	if cfg.Storage.ReportsLimit != 20 {
		t.Errorf("Expected Storage.ReportsLimit 20, got %d", cfg.Storage.ReportsLimit)
	}

	// 验证 B: 默认值是否生效 (配置文件中没写 workers，loader.go 默认为 4)
	if cfg.Scanner.Workers != 4 {
		t.Errorf("Expected Scanner.Workers default 4, got %d", cfg.Scanner.Workers)
	}
	if cfg.Database.FileName != "reports.db" {
		t.Errorf("Expected Database.FileName default 'reports.db', got '%s'", cfg.Database.FileName)
	}

	// 验证 C: 环境变量是否覆盖了配置文件
	// 文件里是 0.90，环境变量是 0.80
	// Viper 的优先级：Env > ConfigFile > Default
	if cfg.Checker.Threshold != 0.80 {
		t.Errorf("Environment variable override failed. Expected 0.80, got %v", cfg.Checker.Threshold)
	}

	// 验证 D: 复杂类型的解析 (Duration)
	if cfg.Scanner.Timeout != 30*time.Second {
		t.Errorf("Duration parsing failed. Expected 30s, got %v", cfg.Scanner.Timeout)
	}

	// 验证 E: 切片解析
	if len(cfg.Scanner.Extensions) != 2 || cfg.Scanner.Extensions[0] != "go" {
		t.Errorf("Slice parsing failed. Got %v", cfg.Scanner.Extensions)
	}

	t.Logf("Config loaded successfully: %+v", cfg)
}
