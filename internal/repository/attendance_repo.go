package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exam-proctor/internal/model"
)

// AttendanceRepository 监考签到数据访问接口
type AttendanceRepository interface {
	Create(ctx context.Context, record *model.AttendanceRecord) error
	GetByID(ctx context.Context, id int64) (*model.AttendanceRecord, error)
	// GetByIDForUpdate 在事务连接上调用，锁定该行直到事务结束
	GetByIDForUpdate(ctx context.Context, id int64) (*model.AttendanceRecord, error)
	// GetByScheduleAndProctor 必须在事务连接上调用，使用 FOR UPDATE 串行化同一对的并发提交
	GetByScheduleAndProctor(ctx context.Context, scheduleID, proctorID int64) (*model.AttendanceRecord, error)
	// SetTimeOut 仅在 time_out 为空时写入，返回是否实际更新
	SetTimeOut(ctx context.Context, id int64, at time.Time) (bool, error)
	// ListScheduleIDs 存在当前签到的考试 ID
	ListScheduleIDs(ctx context.Context) ([]int64, error)
	ListBySchedules(ctx context.Context, scheduleIDs []int64) ([]model.AttendanceRecord, error)
	// ListBySchedulesForUpdate 归档扫描使用，锁定返回的行
	ListBySchedulesForUpdate(ctx context.Context, scheduleIDs []int64) ([]model.AttendanceRecord, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepo) GetByID(ctx context.Context, id int64) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("attendance_id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("attendance_id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) GetByScheduleAndProctor(ctx context.Context, scheduleID, proctorID int64) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("examdetails_id = ? AND proctor_id = ?", scheduleID, proctorID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) SetTimeOut(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("attendance_id = ? AND time_out IS NULL", id).
		Update("time_out", at)
	return result.RowsAffected > 0, result.Error
}

func (r *attendanceRepo) ListScheduleIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Distinct("examdetails_id").
		Order("examdetails_id ASC").
		Pluck("examdetails_id", &ids).Error
	return ids, err
}

func (r *attendanceRepo) ListBySchedules(ctx context.Context, scheduleIDs []int64) ([]model.AttendanceRecord, error) {
	var list []model.AttendanceRecord
	if len(scheduleIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("examdetails_id IN ?", scheduleIDs).
		Order("time_in ASC").
		Find(&list).Error
	return list, err
}

func (r *attendanceRepo) ListBySchedulesForUpdate(ctx context.Context, scheduleIDs []int64) ([]model.AttendanceRecord, error) {
	var list []model.AttendanceRecord
	if len(scheduleIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("examdetails_id IN ?", scheduleIDs).
		Order("attendance_id ASC").
		Find(&list).Error
	return list, err
}

func (r *attendanceRepo) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("attendance_id IN ?", ids).
		Delete(&model.AttendanceRecord{})
	return result.RowsAffected, result.Error
}
