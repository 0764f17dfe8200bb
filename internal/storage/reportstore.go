package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"codeRealityScanner/internal/logger"
	"codeRealityScanner/internal/report"
	"codeRealityScanner/internal/security"
)

// ReportRecord 报告落盘的物理行
// 报告正文是加密 (或明文) 后的 JSON 二进制块
type ReportRecord struct {
	ID            uint    `gorm:"primaryKey;autoIncrement"`
	RootPath      string  `gorm:"index"`
	OverallGrade  string
	AverageScore  float64
	TotalFiles    int
	CriticalCount int
	Encrypted     bool
	Blob          []byte `gorm:"type:blob"`
	CreatedAt     time.Time
}

// ReportMeta 列表展示用的元信息
type ReportMeta struct {
	ID            uint      `json:"id"`
	RootPath      string    `json:"root_path"`
	OverallGrade  string    `json:"overall_grade"`
	AverageScore  float64   `json:"average_score"`
	TotalFiles    int       `json:"total_files"`
	CriticalCount int       `json:"critical_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReportStore 历史报告存取
type ReportStore struct {
	db      *gorm.DB
	cipher  *security.BlobCipher
	encrypt bool
	limit   int // 保留条数，超出后淘汰最旧
}

// NewReportStore 创建报告存取器
// encrypt 为 true 时报告正文用本机密钥 SM4 加密落盘
func NewReportStore(db *gorm.DB, encrypt bool, limit int) *ReportStore {
	return &ReportStore{
		db:      db,
		cipher:  security.NewBlobCipher(nil),
		encrypt: encrypt,
		limit:   limit,
	}
}

// Save 写入一份报告，返回记录 ID
func (s *ReportStore) Save(r *report.Report) (uint, error) {
	blob, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("序列化报告失败: %w", err)
	}
	if s.encrypt {
		blob, err = s.cipher.Encrypt(blob)
		if err != nil {
			return 0, fmt.Errorf("加密报告失败: %w", err)
		}
	}

	rec := &ReportRecord{
		RootPath:      r.ScanInfo.RootPath,
		OverallGrade:  r.Summary.OverallGrade,
		AverageScore:  r.Summary.AverageScore,
		TotalFiles:    r.Summary.TotalFiles,
		CriticalCount: r.Summary.CriticalCount,
		Encrypted:     s.encrypt,
		Blob:          blob,
	}
	if err := s.db.Create(rec).Error; err != nil {
		return 0, fmt.Errorf("写入报告失败: %w", err)
	}

	s.prune()
	logger.Info("报告已保存", "id", rec.ID, "root", rec.RootPath, "grade", rec.OverallGrade)
	return rec.ID, nil
}

// prune 超出保留条数时删除最旧的记录
func (s *ReportStore) prune() {
	if s.limit <= 0 {
		return
	}
	var count int64
	if err := s.db.Model(&ReportRecord{}).Count(&count).Error; err != nil {
		return
	}
	if count <= int64(s.limit) {
		return
	}
	excess := count - int64(s.limit)
	err := s.db.Where("id IN (?)",
		s.db.Model(&ReportRecord{}).Select("id").Order("id ASC").Limit(int(excess)),
	).Delete(&ReportRecord{}).Error
	if err != nil {
		logger.Warn("淘汰旧报告失败", "err", err)
	}
}

// List 按时间倒序列出报告元信息
func (s *ReportStore) List(limit int) ([]ReportMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []ReportRecord
	err := s.db.Select("id", "root_path", "overall_grade", "average_score",
		"total_files", "critical_count", "created_at").
		Order("id DESC").Limit(limit).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("读取报告列表失败: %w", err)
	}

	metas := make([]ReportMeta, 0, len(recs))
	for _, r := range recs {
		metas = append(metas, ReportMeta{
			ID:            r.ID,
			RootPath:      r.RootPath,
			OverallGrade:  r.OverallGrade,
			AverageScore:  r.AverageScore,
			TotalFiles:    r.TotalFiles,
			CriticalCount: r.CriticalCount,
			CreatedAt:     r.CreatedAt,
		})
	}
	return metas, nil
}

// Load 读取并解开一份完整报告
func (s *ReportStore) Load(id uint) (*report.Report, error) {
	var rec ReportRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		return nil, fmt.Errorf("报告 %d 不存在: %w", id, err)
	}

	blob := rec.Blob
	if rec.Encrypted {
		var err error
		blob, err = s.cipher.Decrypt(blob)
		if err != nil {
			return nil, fmt.Errorf("解密报告 %d 失败: %w", id, err)
		}
	}

	var r report.Report
	if err := json.Unmarshal(blob, &r); err != nil {
		return nil, fmt.Errorf("解析报告 %d 失败: %w", id, err)
	}
	return &r, nil
}

// Count 报告总数
func (s *ReportStore) Count() (int64, error) {
	var n int64
	err := s.db.Model(&ReportRecord{}).Count(&n).Error
	return n, err
}
