package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"exam-proctor/internal/model"
	pkgerrors "exam-proctor/pkg/errors"
	"exam-proctor/pkg/examtime"
)

// ── IssueCodes 测试 ──

func TestOTPService_IssueCodes_Idempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.otp()

	first, err := svc.IssueCodes(context.Background(), []int64{scheduleS})
	if err != nil {
		t.Fatalf("首次生成失败: %v", err)
	}
	if first.GeneratedCount != 1 || len(first.Records) != 1 {
		t.Fatalf("期望生成 1 条，实际 count=%d records=%d", first.GeneratedCount, len(first.Records))
	}

	second, err := svc.IssueCodes(context.Background(), []int64{scheduleS})
	if err != nil {
		t.Fatalf("再次生成失败: %v", err)
	}
	if second.GeneratedCount != 0 {
		t.Errorf("重复生成应跳过，实际 generated_count=%d", second.GeneratedCount)
	}
	if len(f.codes.byCode) != 1 {
		t.Errorf("考试 S 应只有 1 条验证码，实际 %d", len(f.codes.byCode))
	}
}

func TestOTPService_IssueCodes_CodeShapeAndExpiry(t *testing.T) {
	f := newFixture(t)
	resp, err := f.otp().IssueCodes(context.Background(), []int64{scheduleS})
	if err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}

	rec := resp.Records[0]
	if len(rec.OTPCode) != 6 {
		t.Errorf("验证码长度期望 6，实际 %q", rec.OTPCode)
	}
	for _, r := range rec.OTPCode {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Errorf("验证码含非法字符 %q", r)
		}
	}
	if rec.SectionName != "IT3R1, IT3R2" {
		t.Errorf("SectionName 期望多班级拼接，实际 %q", rec.SectionName)
	}

	vc := f.codes.forSchedule(scheduleS)
	wantExpiry := time.Date(2025, 3, 1, 10, 0, 0, 0, testLoc)
	if !vc.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("有效期应为考试结束时刻 %v，实际 %v", wantExpiry, vc.ExpiresAt)
	}
}

func TestOTPService_IssueCodes_FallbackExpiry(t *testing.T) {
	f := newFixture(t)
	f.schedules.add(&model.ExamSchedule{ExamDetailsID: 200, CourseID: "GE101", ExamDate: "TBA"})

	if _, err := f.otp().IssueCodes(context.Background(), []int64{200}); err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	vc := f.codes.forSchedule(200)
	if want := f.now.Add(3 * time.Hour); !vc.ExpiresAt.Equal(want) {
		t.Errorf("无法解析结束时间时有效期应为 now+3h=%v，实际 %v", want, vc.ExpiresAt)
	}
}

func TestOTPService_IssueCodes_UnparseableEndTextFallsBack(t *testing.T) {
	f := newFixture(t)
	var end examtime.Moment
	if err := end.Scan("TBA"); err != nil {
		t.Fatalf("Scan 不应报错: %v", err)
	}
	f.schedules.add(&model.ExamSchedule{
		ExamDetailsID: 202,
		CourseID:      "GE102",
		ExamDate:      "2025-03-01",
		ExamStartTime: examtime.MustParse("13:00"),
		ExamEndTime:   end,
	})

	resp, err := f.otp().IssueCodes(context.Background(), nil)
	if err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	if resp.GeneratedCount != 2 {
		t.Errorf("含脏数据的考试不应影响整批生成，期望 2，实际 %d", resp.GeneratedCount)
	}
	vc := f.codes.forSchedule(202)
	if want := f.now.Add(3 * time.Hour); vc == nil || !vc.ExpiresAt.Equal(want) {
		t.Errorf("结束时间为 TBA 时有效期应为 now+3h=%v，实际 %+v", want, vc)
	}
	for _, p := range resp.Records {
		if p.ExamDetailsID == 202 && p.ExamEndTime != "TBA" {
			t.Errorf("预览应原样展示结束时间，实际 %q", p.ExamEndTime)
		}
	}
}

func TestOTPService_IssueCodes_FullTimestampEnd(t *testing.T) {
	f := newFixture(t)
	end := time.Date(2025, 3, 2, 3, 30, 0, 0, time.UTC)
	f.schedules.add(&model.ExamSchedule{
		ExamDetailsID: 201,
		ExamDate:      "2025-03-02",
		ExamStartTime: examtime.FromTime(end.Add(-2 * time.Hour)),
		ExamEndTime:   examtime.FromTime(end),
	})

	if _, err := f.otp().IssueCodes(context.Background(), []int64{201}); err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	if vc := f.codes.forSchedule(201); !vc.ExpiresAt.Equal(end) {
		t.Errorf("完整时间戳的结束时间应原样作为有效期，实际 %v", vc.ExpiresAt)
	}
}

func TestOTPService_IssueCodes_AllWithoutCodeAndUnknownSkipped(t *testing.T) {
	f := newFixture(t)
	f.schedules.add(&model.ExamSchedule{ExamDetailsID: 101, ExamDate: "2025-03-01",
		ExamStartTime: examtime.MustParse("13:00"), ExamEndTime: examtime.MustParse("15:00")})
	f.issue(t)

	resp, err := f.otp().IssueCodes(context.Background(), nil)
	if err != nil {
		t.Fatalf("IssueCodes(all) 失败: %v", err)
	}
	if resp.GeneratedCount != 1 || resp.Records[0].ExamDetailsID != 101 {
		t.Errorf("应只为尚无验证码的考试 101 生成，实际 %+v", resp)
	}

	resp, err = f.otp().IssueCodes(context.Background(), []int64{999999})
	if err != nil {
		t.Fatalf("不存在的考试应静默跳过: %v", err)
	}
	if resp.GeneratedCount != 0 {
		t.Errorf("不存在的考试不应生成验证码")
	}
}

func TestOTPService_IssueCodes_RegeneratesOnCollision(t *testing.T) {
	f := newFixture(t)
	f.codes.byCode["AAAAAA"] = &model.VerificationCode{ExamDetailsID: 42, OTPCode: "AAAAAA"}

	svc := f.otp()
	svc.generate = sequence("AAAAAA", "BBBBBB")

	if _, err := svc.IssueCodes(context.Background(), []int64{scheduleS}); err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	if vc := f.codes.forSchedule(scheduleS); vc.OTPCode != "BBBBBB" {
		t.Errorf("撞码后应重新生成，实际 %q", vc.OTPCode)
	}
}

func TestOTPService_IssueCodes_InsertTimeCodeViolationRetries(t *testing.T) {
	f := newFixture(t)
	svc := f.otp()
	svc.generate = sequence("CCCCCC", "DDDDDD")

	// 查重之后、写入之前另一请求占用了 CCCCCC
	f.codes.beforeCreate = func(code *model.VerificationCode) {
		if code.OTPCode == "CCCCCC" {
			f.codes.byCode["CCCCCC"] = &model.VerificationCode{ExamDetailsID: 43, OTPCode: "CCCCCC"}
		}
		f.codes.beforeCreate = nil
	}

	if _, err := svc.IssueCodes(context.Background(), []int64{scheduleS}); err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	if vc := f.codes.forSchedule(scheduleS); vc == nil || vc.OTPCode != "DDDDDD" {
		t.Errorf("写入时撞码应换码重试，实际 %+v", vc)
	}
}

func TestOTPService_IssueCodes_ConcurrentIssuerWins(t *testing.T) {
	f := newFixture(t)
	svc := f.otp()
	svc.generate = sequence("EEEEEE")

	// 查重之后另一请求已为同一考试写入验证码
	f.codes.beforeCreate = func(code *model.VerificationCode) {
		f.codes.beforeCreate = nil
		f.codes.byCode["FFFFFF"] = &model.VerificationCode{ExamDetailsID: code.ExamDetailsID, OTPCode: "FFFFFF"}
	}

	resp, err := svc.IssueCodes(context.Background(), []int64{scheduleS})
	if err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	if resp.GeneratedCount != 0 {
		t.Errorf("并发方已生成时应跳过，实际 generated_count=%d", resp.GeneratedCount)
	}
	if vc := f.codes.forSchedule(scheduleS); vc.OTPCode != "FFFFFF" {
		t.Errorf("不应覆盖并发方的验证码，实际 %q", vc.OTPCode)
	}
}

func TestOTPService_IssueCodes_Exhausted(t *testing.T) {
	f := newFixture(t)
	f.codes.byCode["GGGGGG"] = &model.VerificationCode{ExamDetailsID: 44, OTPCode: "GGGGGG"}
	svc := f.otp()
	svc.generate = sequence("GGGGGG")

	_, err := svc.IssueCodes(context.Background(), []int64{scheduleS})
	if !errors.Is(err, ErrCodeExhausted) {
		t.Errorf("期望 ErrCodeExhausted，实际: %v", err)
	}
}

func TestOTPService_IssueCodes_PreviewLimit(t *testing.T) {
	f := newFixture(t)
	f.rules.PreviewLimit = 2
	for id := int64(300); id < 305; id++ {
		f.schedules.add(&model.ExamSchedule{ExamDetailsID: id, ExamDate: "2025-03-01",
			ExamStartTime: examtime.MustParse("13:00"), ExamEndTime: examtime.MustParse("15:00")})
	}

	resp, err := f.otp().IssueCodes(context.Background(), nil)
	if err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	if resp.GeneratedCount != 6 {
		t.Errorf("期望生成 6 条，实际 %d", resp.GeneratedCount)
	}
	if len(resp.Records) != 2 {
		t.Errorf("预览应截断为 2 条，实际 %d", len(resp.Records))
	}
}

// ── ResetCodes 测试 ──

func TestOTPService_ResetCodes(t *testing.T) {
	f := newFixture(t)
	f.schedules.add(&model.ExamSchedule{ExamDetailsID: 101})
	if _, err := f.otp().IssueCodes(context.Background(), nil); err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}

	resp, err := f.otp().ResetCodes(context.Background(), []int64{scheduleS, scheduleS})
	if err != nil {
		t.Fatalf("ResetCodes 失败: %v", err)
	}
	if resp.DeletedCount != 1 {
		t.Errorf("按考试删除期望 1 条，实际 %d", resp.DeletedCount)
	}

	resp, _ = f.otp().ResetCodes(context.Background(), []int64{scheduleS})
	if resp.DeletedCount != 0 {
		t.Errorf("重复删除应为 0，实际 %d", resp.DeletedCount)
	}

	resp, _ = f.otp().ResetCodes(context.Background(), nil)
	if resp.DeletedCount != 1 || len(f.codes.byCode) != 0 {
		t.Errorf("清空期望删除剩余 1 条，实际 %d", resp.DeletedCount)
	}
}

// ── VerifyCode 测试 ──

func TestOTPService_VerifyCode_Invalid(t *testing.T) {
	f := newFixture(t)
	f.issue(t)

	_, err := f.otp().VerifyCode(context.Background(), "ZZZZZZ", proctorAssign)
	if !errors.Is(err, ErrCodeInvalid) || !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("期望 ErrCodeInvalid(NotFound)，实际: %v", err)
	}
}

func TestOTPService_VerifyCode_CaseInsensitive(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t)
	f.at(7, 45, 0)

	resp, err := f.otp().VerifyCode(context.Background(), "  "+strings.ToLower(code)+" ", proctorAssign)
	if err != nil {
		t.Fatalf("小写验证码应通过: %v", err)
	}
	if !resp.Valid {
		t.Error("期望 valid=true")
	}
}

func TestOTPService_VerifyCode_ExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t)
	svc := f.otp()

	// 有效期为 10:00，恰好等于时仍有效
	f.at(10, 0, 0)
	if _, err := svc.VerifyCode(context.Background(), code, proctorAssign); err != nil {
		t.Errorf("now == expires_at 应有效，实际: %v", err)
	}

	f.at(10, 0, 1)
	if _, err := svc.VerifyCode(context.Background(), code, proctorAssign); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("now > expires_at 应返回 ErrCodeExpired，实际: %v", err)
	}
}

func TestOTPService_VerifyCode_EarlyWindowBoundary(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t)
	svc := f.otp()

	f.at(7, 30, 0)
	if _, err := svc.VerifyCode(context.Background(), code, proctorAssign); err != nil {
		t.Errorf("开考前恰好 30 分钟应可验证，实际: %v", err)
	}

	f.at(7, 29, 59)
	_, err := svc.VerifyCode(context.Background(), code, proctorAssign)
	if !errors.Is(err, ErrTooEarly) || !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("期望 ErrTooEarly(Conflict)，实际: %v", err)
	}
	if !strings.Contains(pkgerrors.Message(err), "30 minutes") {
		t.Errorf("提示应包含提前量，实际 %q", pkgerrors.Message(err))
	}
}

func TestOTPService_VerifyCode_ExamEnded(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t)

	// 人为延长有效期，使时段校验生效
	f.codes.byCode[code].ExpiresAt = time.Date(2025, 3, 1, 12, 0, 0, 0, testLoc)
	f.at(10, 0, 1)

	_, err := f.otp().VerifyCode(context.Background(), code, proctorAssign)
	if !errors.Is(err, ErrExamEnded) {
		t.Errorf("期望 ErrExamEnded，实际: %v", err)
	}
}

func TestOTPService_VerifyCode_UnresolvableTimingSkipsWindow(t *testing.T) {
	f := newFixture(t)
	f.schedules.add(&model.ExamSchedule{ExamDetailsID: 202, CourseID: "GE101", ExamDate: "TBA",
		ExamStartTime: examtime.MustParse("08:00"), ExamEndTime: examtime.MustParse("10:00")})
	if _, err := f.otp().IssueCodes(context.Background(), []int64{202}); err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	code := f.codes.forSchedule(202).OTPCode

	f.at(0, 5, 0)
	if _, err := f.otp().VerifyCode(context.Background(), code, proctorAssign); err != nil {
		t.Errorf("时间无法解析时应跳过时段校验，实际: %v", err)
	}
}

func TestOTPService_VerifyCode_ScheduleMissing(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t)
	delete(f.schedules.schedules, scheduleS)

	_, err := f.otp().VerifyCode(context.Background(), code, proctorAssign)
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("期望 ErrScheduleNotFound，实际: %v", err)
	}
}

// 场景 A：指派监考 07:45 验证
func TestOTPService_VerifyCode_Assigned(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t)
	f.at(7, 45, 0)

	resp, err := f.otp().VerifyCode(context.Background(), code, proctorAssign)
	if err != nil {
		t.Fatalf("VerifyCode 失败: %v", err)
	}
	if resp.VerificationStatus != string(model.VerificationAssigned) {
		t.Errorf("期望 valid-assigned，实际 %s", resp.VerificationStatus)
	}
	if resp.AssignedProctorID == nil || *resp.AssignedProctorID != proctorAssign {
		t.Errorf("assigned_proctor_id 期望 501，实际 %v", resp.AssignedProctorID)
	}
	if resp.AssignedProctorName != "Ana Cruz" {
		t.Errorf("assigned_proctor_name 期望 Ana Cruz，实际 %q", resp.AssignedProctorName)
	}
	if resp.ExamStartTime != "2025-03-01T08:00:00+08:00" {
		t.Errorf("开考时间应合并日期并带时区，实际 %q", resp.ExamStartTime)
	}
	if resp.RoomID != "09-301" || resp.BuildingName != "ICT Building" {
		t.Errorf("考场信息不正确: %+v", resp)
	}
}

// 场景 B：非指派人员验证
func TestOTPService_VerifyCode_NotAssigned(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t)
	f.at(7, 45, 0)

	resp, err := f.otp().VerifyCode(context.Background(), code, proctorOutside)
	if err != nil {
		t.Fatalf("VerifyCode 失败: %v", err)
	}
	if resp.VerificationStatus != string(model.VerificationNotAssigned) {
		t.Errorf("期望 valid-not-assigned，实际 %s", resp.VerificationStatus)
	}
	if !strings.Contains(resp.Message, "substitute") {
		t.Errorf("提示应引导代监考，实际 %q", resp.Message)
	}
	if resp.AssignedProctorID == nil || *resp.AssignedProctorID != proctorAssign {
		t.Errorf("应展示原监考 501，实际 %v", resp.AssignedProctorID)
	}
}

func TestOTPService_VerifyCode_LegacySingleProctor(t *testing.T) {
	f := newFixture(t)
	f.schedules.add(&model.ExamSchedule{ExamDetailsID: 203, ExamDate: "2025-03-01",
		ExamStartTime: examtime.MustParse("08:00"), ExamEndTime: examtime.MustParse("10:00"),
		ProctorID: int64Ptr(proctorOutside)})
	if _, err := f.otp().IssueCodes(context.Background(), []int64{203}); err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	f.at(8, 0, 0)

	resp, err := f.otp().VerifyCode(context.Background(), f.codes.forSchedule(203).OTPCode, proctorOutside)
	if err != nil {
		t.Fatalf("VerifyCode 失败: %v", err)
	}
	if resp.VerificationStatus != string(model.VerificationAssigned) {
		t.Errorf("proctor_id 命中应为 valid-assigned，实际 %s", resp.VerificationStatus)
	}
}

func TestOTPService_VerifyCode_NoSideEffects(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t)
	f.at(8, 0, 0)

	for i := 0; i < 3; i++ {
		if _, err := f.otp().VerifyCode(context.Background(), code, proctorAssign); err != nil {
			t.Fatalf("重复验证应始终通过: %v", err)
		}
	}
	if len(f.attendance.records) != 0 {
		t.Error("验证不应产生签到记录")
	}
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		c, err := generateCode(6)
		if err != nil {
			t.Fatalf("generateCode 失败: %v", err)
		}
		if len(c) != 6 || strings.Trim(c, codeAlphabet) != "" {
			t.Fatalf("验证码格式错误: %q", c)
		}
		seen[c] = true
	}
	if len(seen) < 190 {
		t.Errorf("随机性不足，200 次仅 %d 个不同值", len(seen))
	}
}
