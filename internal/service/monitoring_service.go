package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"exam-proctor/internal/dto"
	"exam-proctor/internal/metrics"
	"exam-proctor/internal/model"
	"exam-proctor/internal/repository"
	"exam-proctor/pkg/examtime"
)

const archiveLockName = "attendance-archive"

// MonitoringService 签到状态与归档业务接口
//
// 状态不落库，每次读取时按签到记录与考试时间推导；
// 已结束考试的签到在读取前由归档扫描迁入历史表
type MonitoringService interface {
	// ArchiveCompleted 将已结束且过了签退宽限期的考试签到迁入历史表，返回本次归档条数
	ArchiveCompleted(ctx context.Context) (int, error)
	// ListAssignedExams 监考人视角的考试安排，按 ongoing / upcoming / completed 分桶
	ListAssignedExams(ctx context.Context, userID int64) (*dto.AssignedExamsResponse, error)
	// Monitoring 排考人员看板：每场考试每个监考人的状态
	Monitoring(ctx context.Context, q *dto.MonitoringQuery) ([]dto.MonitoringItem, error)
}

type monitoringService struct {
	repo   *repository.Repository
	rules  Rules
	now    Clock
	locker Locker
	logger *zap.Logger
}

// NewMonitoringService 创建 MonitoringService 实例；locker 可为 nil
func NewMonitoringService(repo *repository.Repository, rules Rules, clock Clock, locker Locker, logger *zap.Logger) MonitoringService {
	return &monitoringService{repo: repo, rules: rules, now: orNow(clock), locker: locker, logger: logger}
}

// ════════════════════════════════════════════════════════════
// ArchiveCompleted
// ════════════════════════════════════════════════════════════

func (s *monitoringService) ArchiveCompleted(ctx context.Context) (int, error) {
	if s.locker != nil {
		token, err := s.locker.AcquireLock(ctx, archiveLockName, s.rules.ArchiveLockTTL)
		switch {
		case err != nil:
			// 锁服务不可用时照常执行，重复归档由 attendance_id 唯一约束兜底
			s.logger.Warn("获取归档锁失败，无锁执行", zap.Error(err))
		case token == "":
			s.logger.Debug("归档扫描正在其他实例执行，跳过")
			return 0, nil
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), archiveLockName, token); err != nil {
					s.logger.Warn("释放归档锁失败", zap.Error(err))
				}
			}()
		}
	}

	started := time.Now()
	defer func() { metrics.ArchiveSweepDuration.Observe(time.Since(started).Seconds()) }()

	now := s.now()

	// 事务外先筛出已过签退宽限期的考试，事务内只锁定这些考试的签到
	scheduleIDs, err := s.repo.Attendance.ListScheduleIDs(ctx)
	if err != nil {
		s.logger.Error("查询签到考试失败", zap.Error(err))
		return 0, err
	}
	if len(scheduleIDs) == 0 {
		return 0, nil
	}
	schedules, err := s.repo.ExamSchedule.ListByIDs(ctx, scheduleIDs)
	if err != nil {
		s.logger.Error("查询考试失败", zap.Error(err))
		return 0, err
	}
	byID := make(map[int64]*model.ExamSchedule, len(schedules))
	windows := make(map[int64]examtime.Window, len(schedules))
	due := make([]int64, 0, len(schedules))
	for i := range schedules {
		sch := &schedules[i]
		w := sch.Window(s.rules.Location)
		if !archivable(w, now, s.rules.CheckoutGrace) {
			continue
		}
		byID[sch.ExamDetailsID] = sch
		windows[sch.ExamDetailsID] = w
		due = append(due, sch.ExamDetailsID)
	}
	if len(due) == 0 {
		return 0, nil
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return 0, err
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

	// 行锁与 CheckOut 互斥，签退要么先提交被归档带走，要么在归档后看不到记录
	records, err := txRepo.Attendance.ListBySchedulesForUpdate(ctx, due)
	if err != nil {
		rollback()
		s.logger.Error("查询签到记录失败", zap.Error(err))
		return 0, err
	}
	if len(records) == 0 {
		rollback()
		return 0, nil
	}

	names := newNameBook(txRepo.Person, s.logger)
	archived := 0
	processed := make([]int64, 0, len(records))

	for i := range records {
		rec := &records[i]
		sch, ok := byID[rec.ExamDetailsID]
		if !ok {
			continue
		}
		w := windows[rec.ExamDetailsID]

		exists, err := txRepo.AttendanceHistory.ExistsByAttendanceID(ctx, rec.AttendanceID)
		if err != nil {
			rollback()
			s.logger.Error("查询归档记录失败", zap.Int64("attendance_id", rec.AttendanceID), zap.Error(err))
			return 0, err
		}
		if exists {
			processed = append(processed, rec.AttendanceID)
			continue
		}

		h := s.buildHistory(ctx, txRepo, names, sch, rec, w, now)
		inserted, err := txRepo.AttendanceHistory.Create(ctx, h)
		if err != nil {
			rollback()
			s.logger.Error("写入归档记录失败", zap.Int64("attendance_id", rec.AttendanceID), zap.Error(err))
			return 0, err
		}
		if inserted {
			archived++
		}
		processed = append(processed, rec.AttendanceID)
	}

	if len(processed) == 0 {
		rollback()
		return 0, nil
	}

	if _, err := txRepo.Attendance.DeleteByIDs(ctx, processed); err != nil {
		rollback()
		s.logger.Error("删除已归档签到失败", zap.Int("count", len(processed)), zap.Error(err))
		return 0, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return 0, err
		}
	}

	metrics.ArchivedRecordsTotal.Add(float64(archived))
	s.logger.Info("签到归档完成", zap.Int("archived", archived), zap.Int("removed", len(processed)))
	return archived, nil
}

// buildHistory 组装归档快照；姓名与代监考信息查询失败时留空
func (s *monitoringService) buildHistory(
	ctx context.Context,
	repo *repository.Repository,
	names *nameBook,
	sch *model.ExamSchedule,
	rec *model.AttendanceRecord,
	w examtime.Window,
	now time.Time,
) *model.AttendanceHistory {
	h := &model.AttendanceHistory{
		AttendanceID:   rec.AttendanceID,
		ExamDetailsID:  sch.ExamDetailsID,
		ProctorID:      rec.ProctorID,
		ProctorName:    names.name(ctx, rec.ProctorID),
		InstructorName: names.joined(ctx, sch.InstructorIDs()),
		CourseID:       sch.CourseID,
		SectionName:    sch.SectionDisplay(),
		ExamDate:       sch.ExamDate,
		BuildingName:   sch.BuildingName,
		RoomID:         sch.RoomID,
		CollegeName:    sch.CollegeName,
		IsSubstitute:   rec.IsSubstitute,
		Remarks:        rec.Remarks,
		OTPCode:        rec.OTPCode,
		TimeIn:         rec.TimeIn,
		TimeOut:        rec.TimeOut,
		Status:         DeriveStatus(rec, w, now, s.rules.LateThreshold),
		ArchivedAt:     now,
	}
	if w.HasStart {
		start := w.Start
		h.ExamStartTime = &start
	}
	if w.HasEnd {
		end := w.End
		h.ExamEndTime = &end
	}

	if rec.IsSubstitute {
		h.SubstitutedForID, h.SubstitutedForName = s.substitutedFor(ctx, repo, names, sch.ExamDetailsID, rec.ProctorID)
	}
	return h
}

// substitutedFor 查询代监考记录中的原监考
func (s *monitoringService) substitutedFor(ctx context.Context, repo *repository.Repository, names *nameBook, scheduleID, proctorID int64) (*int64, *string) {
	sub, err := repo.Substitution.GetBySubstitute(ctx, scheduleID, proctorID)
	if err != nil {
		if !isNotFound(err) {
			s.logger.Warn("查询代监考记录失败",
				zap.Int64("examdetails_id", scheduleID),
				zap.Int64("proctor_id", proctorID),
				zap.Error(err),
			)
		}
		return nil, nil
	}
	if sub.OriginalProctorID == nil {
		return nil, nil
	}
	id := *sub.OriginalProctorID
	if n := names.name(ctx, id); n != "" {
		return &id, &n
	}
	return &id, nil
}

// sweep 读取前的机会性归档，失败不影响读取
func (s *monitoringService) sweep(ctx context.Context) {
	if _, err := s.ArchiveCompleted(ctx); err != nil {
		s.logger.Warn("机会性归档失败", zap.Error(err))
	}
}

// ════════════════════════════════════════════════════════════
// ListAssignedExams
// ════════════════════════════════════════════════════════════

func (s *monitoringService) ListAssignedExams(ctx context.Context, userID int64) (*dto.AssignedExamsResponse, error) {
	s.sweep(ctx)

	schedules, err := s.repo.ExamSchedule.ListByProctor(ctx, userID)
	if err != nil {
		s.logger.Error("查询监考安排失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	histories, err := s.repo.AttendanceHistory.ListByProctor(ctx, userID)
	if err != nil {
		s.logger.Error("查询归档签到失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	ids := make([]int64, 0, len(schedules))
	for i := range schedules {
		ids = append(ids, schedules[i].ExamDetailsID)
	}
	records, err := s.repo.Attendance.ListBySchedules(ctx, ids)
	if err != nil {
		s.logger.Error("查询签到记录失败", zap.Error(err))
		return nil, err
	}

	// 每个监考人只看自己的签到
	mine := make(map[int64]*model.AttendanceRecord)
	for i := range records {
		if records[i].ProctorID == userID {
			mine[records[i].ExamDetailsID] = &records[i]
		}
	}
	archived := make(map[int64]*model.AttendanceHistory, len(histories))
	for i := range histories {
		archived[histories[i].ExamDetailsID] = &histories[i]
	}

	now := s.now()
	resp := &dto.AssignedExamsResponse{
		Ongoing:   []dto.AssignedExamItem{},
		Upcoming:  []dto.AssignedExamItem{},
		Completed: []dto.AssignedExamItem{},
	}
	seen := make(map[int64]bool, len(schedules))

	for i := range schedules {
		sch := &schedules[i]
		seen[sch.ExamDetailsID] = true

		if h, ok := archived[sch.ExamDetailsID]; ok {
			resp.Completed = append(resp.Completed, s.historyItem(h))
			continue
		}

		w := sch.Window(s.rules.Location)
		rec := mine[sch.ExamDetailsID]
		item := s.scheduleItem(sch, w, rec, DeriveStatus(rec, w, now, s.rules.LateThreshold))

		switch bucketOf(w, now) {
		case bucketOngoing:
			resp.Ongoing = append(resp.Ongoing, item)
		case bucketCompleted:
			resp.Completed = append(resp.Completed, item)
		default:
			resp.Upcoming = append(resp.Upcoming, item)
		}
	}

	// 代监考的考试不在指派列表中，从归档补入
	for i := range histories {
		if !seen[histories[i].ExamDetailsID] {
			resp.Completed = append(resp.Completed, s.historyItem(&histories[i]))
		}
	}

	return resp, nil
}

func (s *monitoringService) scheduleItem(sch *model.ExamSchedule, w examtime.Window, rec *model.AttendanceRecord, status model.AttendanceStatus) dto.AssignedExamItem {
	item := dto.AssignedExamItem{
		ExamDetailsID: sch.ExamDetailsID,
		CourseID:      sch.CourseID,
		SectionName:   sch.SectionDisplay(),
		ExamDate:      sch.ExamDate,
		ExamStartTime: displayBound(w.Start, w.HasStart, sch.ExamStartTime),
		ExamEndTime:   displayBound(w.End, w.HasEnd, sch.ExamEndTime),
		BuildingName:  sch.BuildingName,
		RoomID:        sch.RoomID,
		CollegeName:   sch.CollegeName,
		Status:        string(status),
	}
	if rec != nil {
		timeIn := rec.TimeIn.In(s.rules.Location)
		item.TimeIn = formatInstantPtr(&timeIn)
		item.TimeOut = s.localPtr(rec.TimeOut)
		item.IsSubstitute = rec.IsSubstitute
		item.Remarks = rec.Remarks
	}
	return item
}

func (s *monitoringService) historyItem(h *model.AttendanceHistory) dto.AssignedExamItem {
	timeIn := h.TimeIn.In(s.rules.Location)
	return dto.AssignedExamItem{
		ExamDetailsID: h.ExamDetailsID,
		CourseID:      h.CourseID,
		SectionName:   h.SectionName,
		ExamDate:      h.ExamDate,
		ExamStartTime: s.localString(h.ExamStartTime),
		ExamEndTime:   s.localString(h.ExamEndTime),
		BuildingName:  h.BuildingName,
		RoomID:        h.RoomID,
		CollegeName:   h.CollegeName,
		Status:        string(h.Status),
		IsSubstitute:  h.IsSubstitute,
		TimeIn:        formatInstantPtr(&timeIn),
		TimeOut:       s.localPtr(h.TimeOut),
		Remarks:       h.Remarks,
		IsHistory:     true,
	}
}

func (s *monitoringService) localPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	local := t.In(s.rules.Location)
	return formatInstantPtr(&local)
}

func (s *monitoringService) localString(t *time.Time) string {
	if p := s.localPtr(t); p != nil {
		return *p
	}
	return ""
}

// ════════════════════════════════════════════════════════════
// Monitoring
// ════════════════════════════════════════════════════════════

func (s *monitoringService) Monitoring(ctx context.Context, q *dto.MonitoringQuery) ([]dto.MonitoringItem, error) {
	s.sweep(ctx)

	filter := repository.ExamScheduleFilter{}
	if q != nil {
		filter.CollegeName = strings.TrimSpace(q.CollegeName)
		filter.ExamDate = strings.TrimSpace(q.ExamDate)
	}
	schedules, err := s.repo.ExamSchedule.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询考试列表失败", zap.Error(err))
		return nil, err
	}
	if len(schedules) == 0 {
		return []dto.MonitoringItem{}, nil
	}

	ids := make([]int64, 0, len(schedules))
	for i := range schedules {
		ids = append(ids, schedules[i].ExamDetailsID)
	}

	records, err := s.repo.Attendance.ListBySchedules(ctx, ids)
	if err != nil {
		s.logger.Error("查询签到记录失败", zap.Error(err))
		return nil, err
	}
	histories, err := s.repo.AttendanceHistory.ListBySchedules(ctx, ids)
	if err != nil {
		s.logger.Error("查询归档签到失败", zap.Error(err))
		return nil, err
	}
	codes, err := s.repo.VerificationCode.ListBySchedules(ctx, ids)
	if err != nil {
		s.logger.Error("查询验证码失败", zap.Error(err))
		return nil, err
	}

	recsBySchedule := make(map[int64][]*model.AttendanceRecord)
	for i := range records {
		recsBySchedule[records[i].ExamDetailsID] = append(recsBySchedule[records[i].ExamDetailsID], &records[i])
	}
	histBySchedule := make(map[int64][]*model.AttendanceHistory)
	for i := range histories {
		histBySchedule[histories[i].ExamDetailsID] = append(histBySchedule[histories[i].ExamDetailsID], &histories[i])
	}
	codeBySchedule := make(map[int64]string, len(codes))
	for i := range codes {
		codeBySchedule[codes[i].ExamDetailsID] = codes[i].OTPCode
	}

	names := newNameBook(s.repo.Person, s.logger)
	var people []int64
	for i := range schedules {
		people = append(people, schedules[i].AssignedProctorIDs()...)
		people = append(people, schedules[i].InstructorIDs()...)
	}
	for i := range records {
		people = append(people, records[i].ProctorID)
	}
	names.preload(ctx, people)

	now := s.now()
	result := make([]dto.MonitoringItem, 0, len(schedules))
	for i := range schedules {
		sch := &schedules[i]
		item := s.monitoringItem(ctx, names, sch, recsBySchedule[sch.ExamDetailsID], histBySchedule[sch.ExamDetailsID], now)
		if code, ok := codeBySchedule[sch.ExamDetailsID]; ok {
			c := code
			item.OTPCode = &c
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *monitoringService) monitoringItem(
	ctx context.Context,
	names *nameBook,
	sch *model.ExamSchedule,
	records []*model.AttendanceRecord,
	histories []*model.AttendanceHistory,
	now time.Time,
) dto.MonitoringItem {
	w := sch.Window(s.rules.Location)

	recByProctor := make(map[int64]*model.AttendanceRecord, len(records))
	for _, r := range records {
		recByProctor[r.ProctorID] = r
	}
	histByProctor := make(map[int64]*model.AttendanceHistory, len(histories))
	for _, h := range histories {
		histByProctor[h.ProctorID] = h
	}

	assigned := sch.AssignedProctorIDs()
	inAssigned := make(map[int64]bool, len(assigned))
	proctors := make([]dto.ProctorStatusItem, 0, len(assigned))
	for _, pid := range assigned {
		if inAssigned[pid] {
			continue
		}
		inAssigned[pid] = true
		proctors = append(proctors, s.proctorStatus(ctx, names, sch, pid, recByProctor[pid], histByProctor[pid], w, now))
	}

	// 不在指派列表中的签到（通常是代监考）同样展示，归档优先
	for _, h := range histories {
		if !inAssigned[h.ProctorID] {
			inAssigned[h.ProctorID] = true
			proctors = append(proctors, s.proctorStatus(ctx, names, sch, h.ProctorID, nil, h, w, now))
		}
	}
	for _, r := range records {
		if !inAssigned[r.ProctorID] {
			inAssigned[r.ProctorID] = true
			proctors = append(proctors, s.proctorStatus(ctx, names, sch, r.ProctorID, r, nil, w, now))
		}
	}

	overall := model.StatusPending
	labels := make([]string, 0, len(proctors))
	var earliest *time.Time
	for i := range proctors {
		st := model.AttendanceStatus(proctors[i].Status)
		if st.Present() {
			overall = model.StatusConfirmed
		}
		labels = append(labels, proctors[i].ProctorName+statusMark(st))
	}
	for _, r := range records {
		if earliest == nil || r.TimeIn.Before(*earliest) {
			t := r.TimeIn
			earliest = &t
		}
	}
	for _, h := range histories {
		if earliest == nil || h.TimeIn.Before(*earliest) {
			t := h.TimeIn
			earliest = &t
		}
	}

	instructor := names.joined(ctx, sch.InstructorIDs())

	item := dto.MonitoringItem{
		ExamDetailsID:  sch.ExamDetailsID,
		CourseID:       sch.CourseID,
		SectionName:    sch.SectionDisplay(),
		ExamDate:       sch.ExamDate,
		ExamStartTime:  displayBound(w.Start, w.HasStart, sch.ExamStartTime),
		ExamEndTime:    displayBound(w.End, w.HasEnd, sch.ExamEndTime),
		BuildingName:   sch.BuildingName,
		RoomID:         sch.RoomID,
		CollegeName:    sch.CollegeName,
		InstructorName: instructor,
		Proctors:       proctors,
		ProctorLabel:   strings.Join(labels, ", "),
		Status:         string(overall),
		TimeIn:         s.localPtr(earliest),
		FirstTimeIn:    earliest,
	}
	if w.HasStart {
		start := w.Start
		item.StartAt = &start
	}
	if w.HasEnd {
		end := w.End
		item.EndAt = &end
	}
	return item
}

// proctorStatus 单个监考人状态：归档 > 当前签到 > 推导
func (s *monitoringService) proctorStatus(
	ctx context.Context,
	names *nameBook,
	sch *model.ExamSchedule,
	proctorID int64,
	rec *model.AttendanceRecord,
	h *model.AttendanceHistory,
	w examtime.Window,
	now time.Time,
) dto.ProctorStatusItem {
	item := dto.ProctorStatusItem{
		ProctorID:   proctorID,
		ProctorName: names.label(ctx, proctorID),
	}
	switch {
	case h != nil:
		if h.ProctorName != "" {
			item.ProctorName = h.ProctorName
		}
		item.Status = string(h.Status)
		item.IsSubstitute = h.IsSubstitute
		item.TimeIn = s.localPtr(&h.TimeIn)
		item.SubstitutedForID = h.SubstitutedForID
		item.SubstitutedForName = h.SubstitutedForName
		item.Source = "history"
	case rec != nil:
		item.Status = string(DeriveStatus(rec, w, now, s.rules.LateThreshold))
		item.IsSubstitute = rec.IsSubstitute
		item.TimeIn = s.localPtr(&rec.TimeIn)
		if rec.IsSubstitute {
			item.SubstitutedForID, item.SubstitutedForName = s.substitutedFor(ctx, s.repo, names, sch.ExamDetailsID, proctorID)
		}
		item.Source = "live"
	default:
		item.Status = string(DeriveStatus(nil, w, now, s.rules.LateThreshold))
		item.Source = "derived"
	}
	return item
}

// [自证通过] internal/service/monitoring_service.go
