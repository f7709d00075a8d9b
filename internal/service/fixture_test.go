package service

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"exam-proctor/internal/model"
	"exam-proctor/internal/repository"
	"exam-proctor/pkg/examtime"
)

// ── 测试辅助 ──

var testLoc = time.FixedZone("PHT", 8*3600)

const (
	scheduleS      int64 = 100
	proctorAssign  int64 = 501
	proctorOutside int64 = 777
)

type fixture struct {
	repo       *repository.Repository
	schedules  *mockExamScheduleRepo
	people     *mockPersonRepo
	codes      *mockVerificationCodeRepo
	attendance *mockAttendanceRepo
	subs       *mockSubstitutionRepo
	history    *mockAttendanceHistoryRepo
	rules      Rules
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codes := newMockVerificationCodeRepo()
	f := &fixture{
		schedules:  newMockExamScheduleRepo(codes),
		people:     newMockPersonRepo(),
		codes:      codes,
		attendance: newMockAttendanceRepo(),
		subs:       newMockSubstitutionRepo(),
		history:    newMockAttendanceHistoryRepo(),
	}
	f.repo = &repository.Repository{
		ExamSchedule:      f.schedules,
		Person:            f.people,
		VerificationCode:  f.codes,
		Attendance:        f.attendance,
		Substitution:      f.subs,
		AttendanceHistory: f.history,
	}
	f.rules = DefaultRules()
	f.rules.Location = testLoc

	// 考试 S：2025-03-01 08:00-10:00，指派监考 501
	f.schedules.add(&model.ExamSchedule{
		ExamDetailsID: scheduleS,
		CourseID:      "IT311",
		Sections:      pq.StringArray{"IT3R1", "IT3R2"},
		RoomID:        "09-301",
		BuildingName:  "ICT Building",
		CollegeName:   "CITC",
		ExamDate:      "2025-03-01",
		ExamStartTime: examtime.MustParse("08:00"),
		ExamEndTime:   examtime.MustParse("10:00"),
		Proctors:      pq.Int64Array{proctorAssign},
		InstructorID:  int64Ptr(900),
	})
	f.people.add(proctorAssign, "Ana", "Cruz")
	f.people.add(proctorOutside, "Ben", "Diaz")
	f.people.add(900, "Carla", "Reyes")

	f.at(7, 0, 0)
	return f
}

// at 将当前时间设为 2025-03-01 的指定时刻
func (f *fixture) at(hour, min, sec int) {
	f.now = time.Date(2025, 3, 1, hour, min, sec, 0, testLoc)
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) otp() *otpService {
	return NewOTPService(f.repo, f.rules, f.clock, zap.NewNop()).(*otpService)
}

func (f *fixture) attendanceSvc() AttendanceService {
	return NewAttendanceService(f.repo, f.rules, f.clock, zap.NewNop())
}

func (f *fixture) monitoring(locker Locker) MonitoringService {
	return NewMonitoringService(f.repo, f.rules, f.clock, locker, zap.NewNop())
}

// issue 为考试 S 生成验证码并返回
func (f *fixture) issue(t *testing.T) string {
	t.Helper()
	if _, err := f.otp().IssueCodes(context.Background(), []int64{scheduleS}); err != nil {
		t.Fatalf("IssueCodes 失败: %v", err)
	}
	vc := f.codes.forSchedule(scheduleS)
	if vc == nil {
		t.Fatal("考试 S 应已生成验证码")
	}
	return vc.OTPCode
}

// sequence 依次返回给定验证码的生成器
func sequence(codes ...string) func(int) (string, error) {
	i := 0
	return func(int) (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func int64Ptr(v int64) *int64 { return &v }
