package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam-proctor/internal/dto"
	"exam-proctor/internal/metrics"
	"exam-proctor/internal/model"
	"exam-proctor/internal/repository"
	pkgerrors "exam-proctor/pkg/errors"
)

// ── 验证码模块业务错误 ──

var (
	ErrCodeInvalid      = pkgerrors.NotFound("invalid code")
	ErrCodeExpired      = pkgerrors.Conflict("code expired")
	ErrTooEarly         = pkgerrors.Conflict("too early")
	ErrExamEnded        = pkgerrors.Conflict("exam ended, attendance closed")
	ErrScheduleNotFound = pkgerrors.NotFound("exam schedule not found")
	ErrCodeExhausted    = errors.New("验证码生成重试次数耗尽")
)

// 易混淆字符（0/O、1/I）已剔除
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// 单个考试生成验证码的最大尝试次数
const maxCodeAttempts = 16

// OTPService 验证码业务接口
type OTPService interface {
	// IssueCodes 为指定考试生成验证码；ids 为空时处理所有尚无验证码的考试
	IssueCodes(ctx context.Context, scheduleIDs []int64) (*dto.IssueCodesResponse, error)
	// ResetCodes 删除指定考试的验证码；ids 为空时全部删除
	ResetCodes(ctx context.Context, scheduleIDs []int64) (*dto.ResetCodesResponse, error)
	// VerifyCode 校验验证码，无副作用
	VerifyCode(ctx context.Context, code string, userID int64) (*dto.VerifyCodeResponse, error)
}

type otpService struct {
	repo     *repository.Repository
	rules    Rules
	now      Clock
	generate func(length int) (string, error)
	logger   *zap.Logger
}

// NewOTPService 创建 OTPService 实例
func NewOTPService(repo *repository.Repository, rules Rules, clock Clock, logger *zap.Logger) OTPService {
	return &otpService{
		repo:     repo,
		rules:    rules,
		now:      orNow(clock),
		generate: generateCode,
		logger:   logger,
	}
}

// NormalizeCode 验证码大小写不敏感，统一去空白转大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ────────────────────── IssueCodes ──────────────────────

func (s *otpService) IssueCodes(ctx context.Context, scheduleIDs []int64) (*dto.IssueCodesResponse, error) {
	var (
		targets []model.ExamSchedule
		err     error
	)
	if len(scheduleIDs) == 0 {
		targets, err = s.repo.ExamSchedule.ListWithoutCode(ctx)
	} else {
		// 不存在的考试不会出现在结果中，即静默跳过
		targets, err = s.repo.ExamSchedule.ListByIDs(ctx, uniqueIDs(scheduleIDs))
	}
	if err != nil {
		s.logger.Error("查询待生成验证码的考试失败", zap.Error(err))
		return nil, err
	}

	used := make(map[string]bool)
	if len(targets) > 0 {
		codes, err := s.repo.VerificationCode.ListAllCodes(ctx)
		if err != nil {
			s.logger.Error("查询已有验证码失败", zap.Error(err))
			return nil, err
		}
		for _, c := range codes {
			used[NormalizeCode(c)] = true
		}
	}

	now := s.now()
	resp := &dto.IssueCodesResponse{Records: []dto.IssuedCodePreview{}}

	for i := range targets {
		sch := &targets[i]

		exists, err := s.repo.VerificationCode.ExistsForSchedule(ctx, sch.ExamDetailsID)
		if err != nil {
			s.logger.Error("查询考试验证码失败", zap.Int64("examdetails_id", sch.ExamDetailsID), zap.Error(err))
			return nil, err
		}
		if exists {
			continue
		}

		vc, err := s.createCode(ctx, sch, s.expiryFor(sch, now), used)
		if err != nil {
			s.logger.Error("生成验证码失败", zap.Int64("examdetails_id", sch.ExamDetailsID), zap.Error(err))
			return nil, err
		}
		if vc == nil {
			continue
		}

		resp.GeneratedCount++
		metrics.CodesIssuedTotal.Inc()
		if len(resp.Records) < s.rules.PreviewLimit {
			resp.Records = append(resp.Records, s.toPreview(sch, vc))
		}
	}

	s.logger.Info("验证码生成完成",
		zap.Int("targets", len(targets)),
		zap.Int("generated", resp.GeneratedCount),
	)
	return resp, nil
}

// createCode 生成并写入一条验证码
// 与库中及本批次已用码查重；写入时撞上验证码唯一约束则换码重试，
// 撞上考试唯一约束说明并发请求已生成，返回 nil 跳过
func (s *otpService) createCode(ctx context.Context, sch *model.ExamSchedule, expiresAt time.Time, used map[string]bool) (*model.VerificationCode, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate, err := s.generate(s.rules.CodeLength)
		if err != nil {
			return nil, err
		}
		if used[candidate] {
			continue
		}

		vc := &model.VerificationCode{
			ExamDetailsID: sch.ExamDetailsID,
			OTPCode:       candidate,
			ExpiresAt:     expiresAt,
		}
		err = s.repo.VerificationCode.Create(ctx, vc)
		switch {
		case err == nil:
			used[candidate] = true
			return vc, nil
		case repository.IsUniqueViolation(err, repository.ConstraintOTPSchedule):
			return nil, nil
		case repository.IsUniqueViolation(err, repository.ConstraintOTPCode):
			used[candidate] = true
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrCodeExhausted
}

// expiryFor 有效期至考试结束；结束时间无法解析时取 now + CodeFallbackTTL
func (s *otpService) expiryFor(sch *model.ExamSchedule, now time.Time) time.Time {
	w := sch.Window(s.rules.Location)
	if w.HasEnd {
		return w.End
	}
	s.logger.Warn("考试结束时间无法解析，验证码使用默认有效期",
		zap.Int64("examdetails_id", sch.ExamDetailsID),
		zap.Duration("ttl", s.rules.CodeFallbackTTL),
	)
	return now.Add(s.rules.CodeFallbackTTL)
}

func (s *otpService) toPreview(sch *model.ExamSchedule, vc *model.VerificationCode) dto.IssuedCodePreview {
	w := sch.Window(s.rules.Location)
	return dto.IssuedCodePreview{
		ExamDetailsID: sch.ExamDetailsID,
		CourseID:      sch.CourseID,
		SectionName:   sch.SectionDisplay(),
		OTPCode:       vc.OTPCode,
		ExamDate:      sch.ExamDate,
		ExamStartTime: displayBound(w.Start, w.HasStart, sch.ExamStartTime),
		ExamEndTime:   displayBound(w.End, w.HasEnd, sch.ExamEndTime),
		ExpiresAt:     formatInstant(vc.ExpiresAt.In(s.rules.Location)),
	}
}

// ────────────────────── ResetCodes ──────────────────────

func (s *otpService) ResetCodes(ctx context.Context, scheduleIDs []int64) (*dto.ResetCodesResponse, error) {
	var (
		n   int64
		err error
	)
	if len(scheduleIDs) == 0 {
		n, err = s.repo.VerificationCode.DeleteAll(ctx)
	} else {
		n, err = s.repo.VerificationCode.DeleteBySchedules(ctx, uniqueIDs(scheduleIDs))
	}
	if err != nil {
		s.logger.Error("删除验证码失败", zap.Int("ids", len(scheduleIDs)), zap.Error(err))
		return nil, err
	}

	metrics.CodesResetTotal.Add(float64(n))
	s.logger.Info("验证码已重置", zap.Int64("deleted", n))
	return &dto.ResetCodesResponse{DeletedCount: n}, nil
}

// ────────────────────── VerifyCode ──────────────────────

func (s *otpService) VerifyCode(ctx context.Context, code string, userID int64) (*dto.VerifyCodeResponse, error) {
	code = NormalizeCode(code)
	if code == "" {
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrCodeInvalid
	}

	vc, err := s.repo.VerificationCode.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
			return nil, ErrCodeInvalid
		}
		s.logger.Error("查询验证码失败", zap.Error(err))
		return nil, err
	}

	now := s.now()
	if vc.ExpiredAt(now) {
		metrics.VerificationsTotal.WithLabelValues("expired").Inc()
		return nil, ErrCodeExpired
	}

	sch, err := s.repo.ExamSchedule.GetByID(ctx, vc.ExamDetailsID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询考试失败", zap.Int64("examdetails_id", vc.ExamDetailsID), zap.Error(err))
		return nil, err
	}

	w := sch.Window(s.rules.Location)
	if w.Complete() {
		if now.Before(w.Start.Add(-s.rules.EarlyEntryWindow)) {
			metrics.VerificationsTotal.WithLabelValues("too_early").Inc()
			return nil, pkgerrors.Wrapf(ErrTooEarly,
				"too early: you may verify starting %d minutes before exam start",
				int(s.rules.EarlyEntryWindow/time.Minute))
		}
		if now.After(w.End) {
			metrics.VerificationsTotal.WithLabelValues("ended").Inc()
			return nil, ErrExamEnded
		}
	} else {
		s.logger.Warn("考试时间无法解析，跳过时段校验", zap.Int64("examdetails_id", sch.ExamDetailsID))
	}

	names := newNameBook(s.repo.Person, s.logger)
	resp := &dto.VerifyCodeResponse{
		Valid:         true,
		ExamDetailsID: sch.ExamDetailsID,
		CourseID:      sch.CourseID,
		SectionName:   sch.SectionDisplay(),
		ExamDate:      sch.ExamDate,
		ExamStartTime: displayBound(w.Start, w.HasStart, sch.ExamStartTime),
		ExamEndTime:   displayBound(w.End, w.HasEnd, sch.ExamEndTime),
		BuildingName:  sch.BuildingName,
		RoomID:        sch.RoomID,
	}

	if sch.IsAssigned(userID) {
		id := userID
		resp.VerificationStatus = string(model.VerificationAssigned)
		resp.Message = "Code verified. You are the assigned proctor for this exam."
		resp.AssignedProctorID = &id
		resp.AssignedProctorName = names.name(ctx, id)
	} else {
		resp.VerificationStatus = string(model.VerificationNotAssigned)
		resp.Message = "Code verified, but you are not assigned to this exam. You may proceed as a substitute proctor."
		if orig := sch.OriginalProctorID(); orig != nil {
			resp.AssignedProctorID = orig
			resp.AssignedProctorName = names.name(ctx, *orig)
		}
	}

	metrics.VerificationsTotal.WithLabelValues(resp.VerificationStatus).Inc()
	return resp, nil
}

// ── 辅助函数 ──

// generateCode 使用 crypto/rand 从 codeAlphabet 中生成验证码
func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// uniqueIDs 去重并保持原有顺序
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// [自证通过] internal/service/otp_service.go
