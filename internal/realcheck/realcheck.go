package realcheck

import (
	"codeRealityScanner/internal/logger"
	"codeRealityScanner/internal/realcheck/engine"
	"codeRealityScanner/internal/realcheck/fileutil"
	"codeRealityScanner/internal/realcheck/matcher"
	"codeRealityScanner/internal/realcheck/outline"
	"codeRealityScanner/internal/realcheck/scorer"
)

// Output 单文件的完整检测输出
type Output struct {
	Result  *engine.UnifiedResult `json:"validation"` // 校验模块合并结果
	File    *scorer.FileResult    `json:"file"`       // 计分结果
}

// Checker 单文件检测器
// 并发安全，可在扫描工作池中共享
type Checker struct {
	matcher      *matcher.Matcher
	orchestrator *engine.Orchestrator
	threshold    float64
	maxFileSize  int64
}

// NewChecker 创建检测器
// threshold<=0 时取默认阈值，maxFileSize<=0 时取默认上限
func NewChecker(threshold float64, maxFileSize int64) *Checker {
	if threshold <= 0 {
		threshold = scorer.DefaultThreshold
	}
	return &Checker{
		matcher:      matcher.New(),
		orchestrator: engine.NewOrchestrator(),
		threshold:    threshold,
		maxFileSize:  maxFileSize,
	}
}

// CheckFile 读取并检测单个文件
func (c *Checker) CheckFile(path string) (*Output, error) {
	sf, err := fileutil.ReadSource(path, c.maxFileSize)
	if err != nil {
		return nil, err
	}
	return c.CheckSource(sf), nil
}

// CheckSource 对已读入的源码执行检测
func (c *Checker) CheckSource(sf *fileutil.SourceFile) *Output {
	ol, olErr := outline.Parse(sf.Path, sf.Lines)
	if olErr != nil {
		// 结构解析失败可降级: 只跑文本规则
		logger.Warn("结构解析降级", "file", sf.Path, "err", olErr)
	}

	usable := ol
	if ol != nil && ol.Partial {
		usable = nil
	}

	detections := c.matcher.Run(sf.Path, sf.Lines, usable)
	result := scorer.Score(sf.Path, detections, c.threshold, olErr != nil)
	result.Digest = sf.Digest

	unified := c.orchestrator.Validate(engine.Input{
		Path:       sf.Path,
		Lines:      sf.Lines,
		Outline:    ol,
		OutlineErr: olErr,
	})

	return &Output{Result: unified, File: result}
}
