package service

import (
	"context"
	"strings"
	"testing"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"exam-proctor/internal/model"
)

func TestCalendarService_ProctorCalendar(t *testing.T) {
	f := newFixture(t)
	// 时间未定的考试不写入日历
	f.schedules.add(&model.ExamSchedule{ExamDetailsID: 101, CourseID: "TBA", ExamDate: "TBA", Proctors: pq.Int64Array{proctorAssign}})
	svc := NewCalendarService(f.repo, f.rules, zap.NewNop())

	out, err := svc.ProctorCalendar(context.Background(), proctorAssign)
	if err != nil {
		t.Fatalf("ProctorCalendar 失败: %v", err)
	}

	body := string(out)
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 1 {
		t.Errorf("期望 1 个事件，实际 %d", n)
	}
	// 08:00 PHT = 00:00 UTC
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"Proctor: IT311 IT3R1",
		eventUID(scheduleS, proctorAssign),
		"20250301T000000Z",
		"20250301T020000Z",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("日历缺少 %q", want)
		}
	}
}

func TestCalendarService_NoAssignments(t *testing.T) {
	f := newFixture(t)
	svc := NewCalendarService(f.repo, f.rules, zap.NewNop())

	out, err := svc.ProctorCalendar(context.Background(), proctorOutside)
	if err != nil {
		t.Fatalf("ProctorCalendar 失败: %v", err)
	}
	if strings.Contains(string(out), "BEGIN:VEVENT") {
		t.Error("未被指派时不应有事件")
	}
}

func TestEventUID_Stable(t *testing.T) {
	if eventUID(1, 2) != eventUID(1, 2) {
		t.Error("同一考试与监考人的 UID 应稳定")
	}
	if eventUID(1, 2) == eventUID(2, 1) {
		t.Error("不同组合的 UID 不应相同")
	}
	if !strings.HasSuffix(eventUID(1, 2), "@exam-proctor") {
		t.Errorf("UID 后缀不正确: %s", eventUID(1, 2))
	}
}
