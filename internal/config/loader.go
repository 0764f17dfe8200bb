package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// GlobalConfig 全局配置单例
// 在调用 LoadConfig 成功后，该变量会被填充，后续模块直接读取即可
var (
	GlobalConfig *AppConfig
	loadOnce     sync.Once
)

// Version 程序版本号
const Version = "1.0.0"

// LoadConfig 加载配置
// configPath: 配置文件路径 (e.g., "/etc/codeRealityScanner/config.yaml")
// 如果传入空字符串，Viper 会尝试在默认路径搜索；搜索不到时退回默认值运行
func LoadConfig(configPath string) error {
	var err error

	loadOnce.Do(func() {
		v := viper.New()

		// 1. 设置默认值 (兜底策略)
		setDefaults(v)

		// 2. 配置读取规则
		if configPath != "" {
			// 如果指定了具体文件，直接读取
			v.SetConfigFile(configPath)
		} else {
			// 否则在常见目录搜索名为 "config" 的文件
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("/etc/codeRealityScanner/") // 生产环境标准路径
			v.AddConfigPath(".")                        // 当前目录 (开发调试用)
		}

		// 3. 配置环境变量覆盖
		// 允许通过环境变量 CRS_CHECKER_THRESHOLD 来覆盖 checker.threshold
		v.SetEnvPrefix("CRS")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 4. 读取配置文件
		if readErr := v.ReadInConfig(); readErr != nil {
			// 扫描工具允许无配置文件运行，全部走默认值
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
				err = fmt.Errorf("failed to read config file: %v", readErr)
				return
			}
		}

		// 5. 反序列化到结构体
		var config AppConfig
		if err = v.Unmarshal(&config); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %v", err)
			return
		}

		// 6. 赋值给全局单例
		GlobalConfig = &config
	})

	return err
}

// setDefaults 定义配置文件的"默认行为"
func setDefaults(v *viper.Viper) {
	// Agent 基础
	v.SetDefault("agent.log_level", "info")
	v.SetDefault("agent.log_file", "") // 默认只打控制台
	v.SetDefault("agent.data_dir", "./data")
	v.SetDefault("agent.log_max_size", 100)  // 100MB 切割
	v.SetDefault("agent.log_max_backups", 5) // 保留最近 5 个
	v.SetDefault("agent.log_max_age", 30)    // 保留 30 天
	v.SetDefault("agent.log_compress", true) // 默认压缩旧日志
	v.SetDefault("agent.log_stdout", true)

	// Scanner 扫描策略
	v.SetDefault("scanner.extensions", []string{"go", "py", "js", "jsx", "ts", "tsx"})
	v.SetDefault("scanner.recursive", true)
	v.SetDefault("scanner.workers", 4)
	v.SetDefault("scanner.progress_every", 50)
	v.SetDefault("scanner.max_file_size", 10*1024*1024) // 10MB
	v.SetDefault("scanner.timeout", "0s")               // 默认不限时

	// Checker 检测策略
	v.SetDefault("checker.threshold", 0.95)
	v.SetDefault("checker.verbose", false)

	// Database 数据库配置
	v.SetDefault("database.file_name", "reports.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.synchronous", "NORMAL")
	v.SetDefault("database.temp_store", "MEMORY")
	v.SetDefault("database.foreign_keys", true)

	// Storage 存储引擎配置
	v.SetDefault("storage.save_reports", false)
	v.SetDefault("storage.reports_limit", 100)
	v.SetDefault("storage.encrypt_reports", true)
}

// Get 获取配置的安全访问器
func Get() *AppConfig {
	if GlobalConfig == nil {
		// 防御性编程：如果没有初始化就调用，panic 提示开发者必须先 LoadConfig
		panic("Config not initialized! Call LoadConfig() first.")
	}
	return GlobalConfig
}
