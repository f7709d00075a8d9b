package service

import (
	"context"
	"fmt"
	"strings"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"exam-proctor/internal/repository"
)

// CalendarService 监考日历订阅
type CalendarService interface {
	// ProctorCalendar 以 iCalendar 格式输出该监考人的全部监考安排
	ProctorCalendar(ctx context.Context, userID int64) ([]byte, error)
}

type calendarService struct {
	repo   *repository.Repository
	rules  Rules
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, rules Rules, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, rules: rules, logger: logger}
}

func (s *calendarService) ProctorCalendar(ctx context.Context, userID int64) ([]byte, error) {
	schedules, err := s.repo.ExamSchedule.ListByProctor(ctx, userID)
	if err != nil {
		s.logger.Error("查询监考安排失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//exam-proctor//proctor schedule//EN")
	cal.SetXWRCalName("Proctoring Schedule")
	cal.SetXWRTimezone(s.rules.Location.String())

	skipped := 0
	for i := range schedules {
		sch := &schedules[i]
		w := sch.Window(s.rules.Location)
		if !w.Complete() {
			skipped++
			continue
		}

		event := cal.AddEvent(eventUID(sch.ExamDetailsID, userID))
		event.SetDtStampTime(w.Start)
		event.SetStartAt(w.Start)
		event.SetEndAt(w.End)
		event.SetSummary(fmt.Sprintf("Proctor: %s %s", sch.CourseID, sch.SectionDisplay()))
		event.SetLocation(strings.TrimSpace(sch.BuildingName + " " + sch.RoomID))
		event.SetDescription(fmt.Sprintf("College: %s\nExam date: %s", sch.CollegeName, sch.ExamDate))
	}
	if skipped > 0 {
		s.logger.Debug("部分考试时间无法解析，未写入日历", zap.Int64("user_id", userID), zap.Int("skipped", skipped))
	}

	return []byte(cal.Serialize()), nil
}

// eventUID 同一 (考试, 监考人) 的 UID 固定，订阅端据此更新而不是重复添加
func eventUID(scheduleID, userID int64) string {
	name := fmt.Sprintf("exam-proctor/examdetails/%d/proctor/%d", scheduleID, userID)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String() + "@exam-proctor"
}
