package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorLevel 错误级别
type ErrorLevel int

const (
	LevelInfo    ErrorLevel = iota // 信息
	LevelWarning                   // 警告
	LevelError                     // 错误
	LevelFatal                     // 致命错误
)

// String 返回错误级别的字符串表示
func (l ErrorLevel) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode 错误代码
type ErrorCode int

const (
	// 通用错误 (1000-1999)
	ErrUnknown      ErrorCode = 1000
	ErrInvalidInput ErrorCode = 1001
	ErrTimeout      ErrorCode = 1002
	ErrCancelled    ErrorCode = 1003
	ErrInternal     ErrorCode = 1004

	// 文件错误 (2000-2999): 可恢复，跳过文件并记入 errors
	ErrFileNotFound   ErrorCode = 2000
	ErrFileEmpty      ErrorCode = 2001
	ErrFileTooLarge   ErrorCode = 2002
	ErrFileReadFailed ErrorCode = 2003
	ErrFileBinary     ErrorCode = 2004
	ErrFileEncoding   ErrorCode = 2005

	// 结构解析错误 (3000-3999): 可恢复，降级为仅文本规则
	ErrOutlineFailed    ErrorCode = 3000
	ErrOutlineUnbalance ErrorCode = 3001

	// 配置错误 (4000-4999): 致命，扫描开始前即失败
	ErrConfigInvalid   ErrorCode = 4000
	ErrConfigThreshold ErrorCode = 4001
	ErrConfigExtension ErrorCode = 4002
	ErrCatalogEmpty    ErrorCode = 4003

	// 校验模块错误 (5000-5999): 可恢复，隔离到单个模块
	ErrValidatorFailed ErrorCode = 5000
	ErrValidatorPanic  ErrorCode = 5001
)

// 错误代码描述映射
var errorDescriptions = map[ErrorCode]string{
	ErrUnknown:      "未知错误",
	ErrInvalidInput: "无效的输入",
	ErrTimeout:      "操作超时",
	ErrCancelled:    "操作已取消",
	ErrInternal:     "内部错误",

	ErrFileNotFound:   "文件不存在",
	ErrFileEmpty:      "文件为空",
	ErrFileTooLarge:   "文件过大",
	ErrFileReadFailed: "文件读取失败",
	ErrFileBinary:     "二进制文件无法检测",
	ErrFileEncoding:   "编码转换失败",

	ErrOutlineFailed:    "结构提取失败",
	ErrOutlineUnbalance: "代码块不平衡",

	ErrConfigInvalid:   "配置无效",
	ErrConfigThreshold: "阈值配置超出范围",
	ErrConfigExtension: "扩展名过滤器无效",
	ErrCatalogEmpty:    "检测规则目录为空",

	ErrValidatorFailed: "校验模块执行失败",
	ErrValidatorPanic:  "校验模块发生异常",
}

// Description 返回错误代码的描述
func (c ErrorCode) Description() string {
	if desc, ok := errorDescriptions[c]; ok {
		return desc
	}
	return "未知错误"
}

// Kind 返回错误代码所属的错误分类标识
// 记入 ScanSummary.Errors 时使用
func (c ErrorCode) Kind() string {
	switch {
	case c >= 2000 && c < 3000:
		return "file_read_error"
	case c >= 3000 && c < 4000:
		return "structural_parse_error"
	case c >= 4000 && c < 5000:
		return "configuration_error"
	case c >= 5000 && c < 6000:
		return "validator_error"
	default:
		return "unknown_error"
	}
}

// IsFatalCode 配置类错误是致命的，其余均可恢复
func (c ErrorCode) IsFatalCode() bool {
	return c >= 4000 && c < 5000
}

// CheckerError 检测器错误
type CheckerError struct {
	Code      ErrorCode  // 错误代码
	Level     ErrorLevel // 错误级别
	Message   string     // 错误消息
	Component string     // 组件名称
	FilePath  string     // 相关文件路径
	Operation string     // 操作名称
	Cause     error      // 原始错误
	Timestamp time.Time  // 发生时间
}

// NewCheckerError 创建检测器错误
func NewCheckerError(code ErrorCode, message string) *CheckerError {
	level := LevelError
	if code.IsFatalCode() {
		level = LevelFatal
	}
	return &CheckerError{
		Code:      code,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Error 实现 error 接口
func (e *CheckerError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] ", e.Level.String()))

	if e.Component != "" {
		sb.WriteString(fmt.Sprintf("[%s] ", e.Component))
	}

	sb.WriteString(e.Message)

	if e.FilePath != "" {
		sb.WriteString(fmt.Sprintf(" (文件: %s)", e.FilePath))
	}

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	return sb.String()
}

// Unwrap 返回原始错误
func (e *CheckerError) Unwrap() error {
	return e.Cause
}

// Kind 返回错误所属的分类标识
func (e *CheckerError) Kind() string {
	return e.Code.Kind()
}

// WithLevel 设置错误级别
func (e *CheckerError) WithLevel(level ErrorLevel) *CheckerError {
	e.Level = level
	return e
}

// WithComponent 设置组件名称
func (e *CheckerError) WithComponent(component string) *CheckerError {
	e.Component = component
	return e
}

// WithFile 设置相关文件
func (e *CheckerError) WithFile(filePath string) *CheckerError {
	e.FilePath = filePath
	return e
}

// WithOperation 设置操作名称
func (e *CheckerError) WithOperation(operation string) *CheckerError {
	e.Operation = operation
	return e
}

// WithCause 设置原始错误
func (e *CheckerError) WithCause(cause error) *CheckerError {
	e.Cause = cause
	return e
}

// IsFatal 是否是致命错误
func (e *CheckerError) IsFatal() bool {
	return e.Level == LevelFatal
}

// UserMessage 返回用户友好的错误消息
func (e *CheckerError) UserMessage() string {
	var sb strings.Builder

	// 基本描述
	sb.WriteString(e.Code.Description())

	// 添加具体信息
	if e.Message != "" && e.Message != e.Code.Description() {
		sb.WriteString("：")
		sb.WriteString(e.Message)
	}

	// 添加解决建议
	suggestion := e.getSuggestion()
	if suggestion != "" {
		sb.WriteString("\n建议：")
		sb.WriteString(suggestion)
	}

	return sb.String()
}

// getSuggestion 获取解决建议
func (e *CheckerError) getSuggestion() string {
	switch e.Code {
	case ErrFileNotFound:
		return "请检查文件路径是否正确"
	case ErrFileEmpty:
		return "请确认文件内容不为空"
	case ErrFileTooLarge:
		return "请调整配置中的文件大小限制 (scanner.max_file_size)"
	case ErrFileBinary:
		return "该文件被识别为二进制内容，请确认扩展名过滤器是否正确"
	case ErrConfigThreshold:
		return "阈值必须在 (0, 1] 区间内"
	case ErrConfigExtension:
		return "请至少指定一个有效的扩展名，如 go,py,js"
	case ErrCatalogEmpty:
		return "检测规则目录为空，程序构建可能损坏"
	case ErrTimeout:
		return "请增加扫描超时时间，或缩小扫描范围"
	default:
		return ""
	}
}

// ============================================================
// 便捷构造函数
// ============================================================

// FileNotFoundError 文件未找到错误
func FileNotFoundError(filePath string) *CheckerError {
	return NewCheckerError(ErrFileNotFound, fmt.Sprintf("文件不存在: %s", filePath)).
		WithFile(filePath)
}

// FileReadError 文件读取失败错误
func FileReadError(filePath string, cause error) *CheckerError {
	return NewCheckerError(ErrFileReadFailed, "文件读取失败").
		WithFile(filePath).
		WithCause(cause)
}

// FileTooLargeError 文件过大错误
func FileTooLargeError(filePath string, size, maxSize int64) *CheckerError {
	return NewCheckerError(ErrFileTooLarge,
		fmt.Sprintf("文件大小 %d 字节，超过限制 %d 字节", size, maxSize)).
		WithFile(filePath)
}

// BinaryFileError 二进制文件错误
func BinaryFileError(filePath string, kind string) *CheckerError {
	return NewCheckerError(ErrFileBinary,
		fmt.Sprintf("文件被识别为 %s 类型，跳过检测", kind)).
		WithFile(filePath)
}

// OutlineError 结构提取失败错误 (可降级)
func OutlineError(filePath string, cause error) *CheckerError {
	return NewCheckerError(ErrOutlineFailed, "结构提取失败，降级为仅文本规则").
		WithFile(filePath).
		WithCause(cause).
		WithLevel(LevelWarning)
}

// ThresholdError 阈值配置错误
func ThresholdError(threshold float64) *CheckerError {
	return NewCheckerError(ErrConfigThreshold,
		fmt.Sprintf("阈值 %v 超出 (0, 1] 范围", threshold))
}

// ExtensionError 扩展名过滤器错误
func ExtensionError(detail string) *CheckerError {
	return NewCheckerError(ErrConfigExtension, detail)
}

// ValidatorError 校验模块错误
func ValidatorError(validator string, cause error) *CheckerError {
	return NewCheckerError(ErrValidatorFailed,
		fmt.Sprintf("校验模块 %s 执行失败", validator)).
		WithComponent(validator).
		WithCause(cause)
}
