package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam-proctor/internal/dto"
	"exam-proctor/internal/metrics"
	"exam-proctor/internal/model"
	"exam-proctor/internal/repository"
	pkgerrors "exam-proctor/pkg/errors"
)

// ── 签到模块业务错误 ──

var (
	ErrMissingFields      = pkgerrors.Validation("otp_code and user_id are required")
	ErrInvalidRole        = pkgerrors.Validation("role must be either assigned or sub")
	ErrRemarksRequired    = pkgerrors.Validation("remarks required when substituting")
	ErrAlreadyRecorded    = pkgerrors.Conflict("attendance already recorded")
	ErrPersonNotFound     = pkgerrors.NotFound("user not found")
	ErrAttendanceNotFound = pkgerrors.NotFound("attendance record not found")
	ErrNotOwnAttendance   = pkgerrors.Validation("attendance record belongs to another proctor")
	ErrAlreadyCheckedOut  = pkgerrors.Conflict("already checked out")
	ErrCheckOutClosed     = pkgerrors.Conflict("exam ended, check-out closed")
)

// AttendanceService 签到业务接口
type AttendanceService interface {
	// SubmitAttendance 记录签到；同一 (考试, 监考人) 只能成功一次
	SubmitAttendance(ctx context.Context, req *dto.SubmitAttendanceRequest) (*dto.SubmitAttendanceResponse, error)
	// CheckOut 本人签退，只能签退一次；考试结束超过签退宽限期后关闭
	CheckOut(ctx context.Context, attendanceID, userID int64) (*dto.CheckOutResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	rules  Rules
	now    Clock
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, rules Rules, clock Clock, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, rules: rules, now: orNow(clock), logger: logger}
}

// ────────────────────── SubmitAttendance ──────────────────────

func (s *attendanceService) SubmitAttendance(ctx context.Context, req *dto.SubmitAttendanceRequest) (*dto.SubmitAttendanceResponse, error) {
	code := NormalizeCode(req.OTPCode)
	if code == "" || req.UserID <= 0 {
		return nil, ErrMissingFields
	}
	role, ok := model.ParseAttendanceRole(req.Role)
	if !ok {
		return nil, ErrInvalidRole
	}
	remarks := strings.TrimSpace(req.Remarks)
	if role.IsSubstitute() && remarks == "" {
		metrics.AttendanceSubmissionsTotal.WithLabelValues(string(role), "rejected").Inc()
		return nil, ErrRemarksRequired
	}

	vc, err := s.repo.VerificationCode.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.AttendanceSubmissionsTotal.WithLabelValues(string(role), "rejected").Inc()
			return nil, ErrCodeInvalid
		}
		s.logger.Error("查询验证码失败", zap.Error(err))
		return nil, err
	}

	sch, err := s.repo.ExamSchedule.GetByID(ctx, vc.ExamDetailsID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询考试失败", zap.Int64("examdetails_id", vc.ExamDetailsID), zap.Error(err))
		return nil, err
	}

	now := s.now()

	// 查重 + 写签到 + 写代监考记录在同一事务中完成
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	txRepo := s.repo.WithTx(tx)

	_, err = txRepo.Attendance.GetByScheduleAndProctor(ctx, sch.ExamDetailsID, req.UserID)
	if err == nil {
		rollback()
		metrics.AttendanceSubmissionsTotal.WithLabelValues(string(role), "duplicate").Inc()
		return nil, ErrAlreadyRecorded
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		rollback()
		s.logger.Error("查询签到记录失败", zap.Error(err))
		return nil, err
	}

	person, err := txRepo.Person.GetByID(ctx, req.UserID)
	if err != nil {
		rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		s.logger.Error("查询人员失败", zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	rec := &model.AttendanceRecord{
		ExamDetailsID: sch.ExamDetailsID,
		ProctorID:     req.UserID,
		IsSubstitute:  role.IsSubstitute(),
		OTPCode:       code,
		TimeIn:        now,
	}
	if remarks != "" {
		rec.Remarks = &remarks
	}

	if err := txRepo.Attendance.Create(ctx, rec); err != nil {
		rollback()
		if repository.IsUniqueViolation(err, repository.ConstraintAttendancePair) {
			metrics.AttendanceSubmissionsTotal.WithLabelValues(string(role), "duplicate").Inc()
			return nil, ErrAlreadyRecorded
		}
		metrics.AttendanceSubmissionsTotal.WithLabelValues(string(role), "error").Inc()
		s.logger.Error("写入签到记录失败", zap.Error(err))
		return nil, err
	}

	if role.IsSubstitute() {
		sub := &model.SubstitutionRecord{
			ExamDetailsID:       sch.ExamDetailsID,
			OriginalProctorID:   sch.OriginalProctorID(),
			SubstituteProctorID: req.UserID,
			Justification:       remarks,
		}
		if err := txRepo.Substitution.Create(ctx, sub); err != nil {
			rollback()
			metrics.AttendanceSubmissionsTotal.WithLabelValues(string(role), "error").Inc()
			s.logger.Error("写入代监考记录失败", zap.Error(err))
			return nil, err
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	metrics.AttendanceSubmissionsTotal.WithLabelValues(string(role), "created").Inc()
	status := DeriveStatus(rec, sch.Window(s.rules.Location), now, s.rules.LateThreshold)

	s.logger.Info("监考签到成功",
		zap.Int64("attendance_id", rec.AttendanceID),
		zap.Int64("examdetails_id", sch.ExamDetailsID),
		zap.Int64("proctor_id", req.UserID),
		zap.String("role", string(role)),
		zap.String("status", string(status)),
	)

	return &dto.SubmitAttendanceResponse{
		AttendanceID: rec.AttendanceID,
		TimeIn:       formatInstant(rec.TimeIn.In(s.rules.Location)),
		Status:       string(status),
		Role:         string(role),
		IsSubstitute: rec.IsSubstitute,
		ProctorName:  person.DisplayName(),
	}, nil
}

// ────────────────────── CheckOut ──────────────────────

func (s *attendanceService) CheckOut(ctx context.Context, attendanceID, userID int64) (*dto.CheckOutResponse, error) {
	// 行锁与归档扫描互斥
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	txRepo := s.repo.WithTx(tx)

	rec, err := txRepo.Attendance.GetByIDForUpdate(ctx, attendanceID)
	if err != nil {
		rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		s.logger.Error("查询签到记录失败", zap.Int64("attendance_id", attendanceID), zap.Error(err))
		return nil, err
	}
	if rec.ProctorID != userID {
		rollback()
		return nil, ErrNotOwnAttendance
	}
	if rec.TimeOut != nil {
		rollback()
		return nil, ErrAlreadyCheckedOut
	}

	now := s.now()
	sch, err := txRepo.ExamSchedule.GetByID(ctx, rec.ExamDetailsID)
	switch {
	case err == nil:
		if archivable(sch.Window(s.rules.Location), now, s.rules.CheckoutGrace) {
			rollback()
			return nil, ErrCheckOutClosed
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 考试已被删除，不限制签退
	default:
		rollback()
		s.logger.Error("查询考试失败", zap.Int64("examdetails_id", rec.ExamDetailsID), zap.Error(err))
		return nil, err
	}

	updated, err := txRepo.Attendance.SetTimeOut(ctx, attendanceID, now)
	if err != nil {
		rollback()
		s.logger.Error("签退失败", zap.Int64("attendance_id", attendanceID), zap.Error(err))
		return nil, err
	}
	if !updated {
		rollback()
		return nil, ErrAlreadyCheckedOut
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return &dto.CheckOutResponse{
		AttendanceID: rec.AttendanceID,
		TimeIn:       formatInstant(rec.TimeIn.In(s.rules.Location)),
		TimeOut:      formatInstant(now.In(s.rules.Location)),
	}, nil
}
