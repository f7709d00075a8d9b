package repository

import (
	"context"

	"gorm.io/gorm"

	"exam-proctor/internal/model"
)

// SubstitutionRepository 代监考记录数据访问接口（只增）
type SubstitutionRepository interface {
	Create(ctx context.Context, rec *model.SubstitutionRecord) error
	// GetBySubstitute 该监考人在该考试的最近一条代监考记录
	GetBySubstitute(ctx context.Context, scheduleID, substituteID int64) (*model.SubstitutionRecord, error)
}

type substitutionRepo struct {
	db *gorm.DB
}

// NewSubstitutionRepo 创建 SubstitutionRepository 实例
func NewSubstitutionRepo(db *gorm.DB) SubstitutionRepository {
	return &substitutionRepo{db: db}
}

func (r *substitutionRepo) Create(ctx context.Context, rec *model.SubstitutionRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *substitutionRepo) GetBySubstitute(ctx context.Context, scheduleID, substituteID int64) (*model.SubstitutionRecord, error) {
	var rec model.SubstitutionRecord
	err := r.db.WithContext(ctx).
		Where("examdetails_id = ? AND substitute_proctor_id = ?", scheduleID, substituteID).
		Order("substitution_id DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
