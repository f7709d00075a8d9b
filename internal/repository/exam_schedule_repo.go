package repository

import (
	"context"

	"gorm.io/gorm"

	"exam-proctor/internal/model"
)

// ExamScheduleFilter 监考看板筛选条件，空值表示不限
type ExamScheduleFilter struct {
	CollegeName string
	ExamDate    string
}

// ExamScheduleRepository 排考记录只读访问接口
type ExamScheduleRepository interface {
	GetByID(ctx context.Context, id int64) (*model.ExamSchedule, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.ExamSchedule, error)
	// ListWithoutCode 尚未生成验证码的考试
	ListWithoutCode(ctx context.Context) ([]model.ExamSchedule, error)
	// ListByProctor 指派给该监考人的考试（proctor_id 或 proctors 命中）
	ListByProctor(ctx context.Context, proctorID int64) ([]model.ExamSchedule, error)
	List(ctx context.Context, filter ExamScheduleFilter) ([]model.ExamSchedule, error)
}

type examScheduleRepo struct {
	db *gorm.DB
}

// NewExamScheduleRepo 创建 ExamScheduleRepository 实例
func NewExamScheduleRepo(db *gorm.DB) ExamScheduleRepository {
	return &examScheduleRepo{db: db}
}

func (r *examScheduleRepo) GetByID(ctx context.Context, id int64) (*model.ExamSchedule, error) {
	var s model.ExamSchedule
	err := r.db.WithContext(ctx).
		Where("examdetails_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *examScheduleRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.ExamSchedule, error) {
	var list []model.ExamSchedule
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("examdetails_id IN ?", ids).
		Order("examdetails_id ASC").
		Find(&list).Error
	return list, err
}

func (r *examScheduleRepo) ListWithoutCode(ctx context.Context) ([]model.ExamSchedule, error) {
	var list []model.ExamSchedule
	err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM tbl_exam_otp o WHERE o.examdetails_id = tbl_examdetails.examdetails_id)").
		Order("examdetails_id ASC").
		Find(&list).Error
	return list, err
}

func (r *examScheduleRepo) ListByProctor(ctx context.Context, proctorID int64) ([]model.ExamSchedule, error) {
	var list []model.ExamSchedule
	err := r.db.WithContext(ctx).
		Where("proctor_id = ? OR ? = ANY(proctors)", proctorID, proctorID).
		Order("exam_date ASC, examdetails_id ASC").
		Find(&list).Error
	return list, err
}

func (r *examScheduleRepo) List(ctx context.Context, filter ExamScheduleFilter) ([]model.ExamSchedule, error) {
	var list []model.ExamSchedule
	query := r.db.WithContext(ctx).Model(&model.ExamSchedule{})
	if filter.CollegeName != "" {
		query = query.Where("college_name = ?", filter.CollegeName)
	}
	if filter.ExamDate != "" {
		// exam_date 可能带时间后缀，按前缀匹配
		query = query.Where("LEFT(exam_date, 10) = ?", filter.ExamDate)
	}
	err := query.Order("exam_date ASC, examdetails_id ASC").Find(&list).Error
	return list, err
}
