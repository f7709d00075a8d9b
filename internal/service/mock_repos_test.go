package service

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"exam-proctor/internal/model"
	"exam-proctor/internal/repository"
)

// ── Mock ExamScheduleRepository ──

type mockExamScheduleRepo struct {
	schedules map[int64]*model.ExamSchedule
	codes     *mockVerificationCodeRepo
}

func newMockExamScheduleRepo(codes *mockVerificationCodeRepo) *mockExamScheduleRepo {
	return &mockExamScheduleRepo{schedules: make(map[int64]*model.ExamSchedule), codes: codes}
}

func (m *mockExamScheduleRepo) add(s *model.ExamSchedule) {
	m.schedules[s.ExamDetailsID] = s
}

func (m *mockExamScheduleRepo) sorted(keep func(*model.ExamSchedule) bool) []model.ExamSchedule {
	var result []model.ExamSchedule
	for _, s := range m.schedules {
		if keep(s) {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExamDetailsID < result[j].ExamDetailsID })
	return result
}

func (m *mockExamScheduleRepo) GetByID(_ context.Context, id int64) (*model.ExamSchedule, error) {
	if s, ok := m.schedules[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExamScheduleRepo) ListByIDs(_ context.Context, ids []int64) ([]model.ExamSchedule, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return m.sorted(func(s *model.ExamSchedule) bool { return want[s.ExamDetailsID] }), nil
}

func (m *mockExamScheduleRepo) ListWithoutCode(ctx context.Context) ([]model.ExamSchedule, error) {
	return m.sorted(func(s *model.ExamSchedule) bool {
		ok, _ := m.codes.ExistsForSchedule(ctx, s.ExamDetailsID)
		return !ok
	}), nil
}

func (m *mockExamScheduleRepo) ListByProctor(_ context.Context, proctorID int64) ([]model.ExamSchedule, error) {
	return m.sorted(func(s *model.ExamSchedule) bool { return s.IsAssigned(proctorID) }), nil
}

func (m *mockExamScheduleRepo) List(_ context.Context, filter repository.ExamScheduleFilter) ([]model.ExamSchedule, error) {
	return m.sorted(func(s *model.ExamSchedule) bool {
		if filter.CollegeName != "" && s.CollegeName != filter.CollegeName {
			return false
		}
		if filter.ExamDate != "" && (len(s.ExamDate) < 10 || s.ExamDate[:10] != filter.ExamDate) {
			return false
		}
		return true
	}), nil
}

// ── Mock PersonRepository ──

type mockPersonRepo struct {
	people map[int64]*model.Person
}

func newMockPersonRepo() *mockPersonRepo {
	return &mockPersonRepo{people: make(map[int64]*model.Person)}
}

func (m *mockPersonRepo) add(id int64, first, last string) {
	m.people[id] = &model.Person{UserID: id, FirstName: first, LastName: last}
}

func (m *mockPersonRepo) GetByID(_ context.Context, id int64) (*model.Person, error) {
	if p, ok := m.people[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPersonRepo) ListByIDs(_ context.Context, ids []int64) ([]model.Person, error) {
	var result []model.Person
	for _, id := range ids {
		if p, ok := m.people[id]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

// ── Mock VerificationCodeRepository ──
// 模拟 uq_exam_otp_code 与 uq_exam_otp_schedule 两个唯一约束

type mockVerificationCodeRepo struct {
	byCode  map[string]*model.VerificationCode
	nextID  int64
	creates int
	// beforeCreate 测试钩子：模拟并发写入
	beforeCreate func(code *model.VerificationCode)
}

func newMockVerificationCodeRepo() *mockVerificationCodeRepo {
	return &mockVerificationCodeRepo{byCode: make(map[string]*model.VerificationCode)}
}

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func (m *mockVerificationCodeRepo) Create(_ context.Context, code *model.VerificationCode) error {
	if m.beforeCreate != nil {
		m.beforeCreate(code)
	}
	if _, ok := m.byCode[code.OTPCode]; ok {
		return uniqueErr(repository.ConstraintOTPCode)
	}
	for _, c := range m.byCode {
		if c.ExamDetailsID == code.ExamDetailsID {
			return uniqueErr(repository.ConstraintOTPSchedule)
		}
	}
	m.nextID++
	m.creates++
	code.OTPID = m.nextID
	code.CreatedAt = time.Now()
	cp := *code
	m.byCode[code.OTPCode] = &cp
	return nil
}

func (m *mockVerificationCodeRepo) GetByCode(_ context.Context, code string) (*model.VerificationCode, error) {
	if c, ok := m.byCode[code]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVerificationCodeRepo) ExistsForSchedule(_ context.Context, scheduleID int64) (bool, error) {
	for _, c := range m.byCode {
		if c.ExamDetailsID == scheduleID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockVerificationCodeRepo) ListAllCodes(_ context.Context) ([]string, error) {
	var codes []string
	for c := range m.byCode {
		codes = append(codes, c)
	}
	return codes, nil
}

func (m *mockVerificationCodeRepo) ListBySchedules(_ context.Context, scheduleIDs []int64) ([]model.VerificationCode, error) {
	want := make(map[int64]bool, len(scheduleIDs))
	for _, id := range scheduleIDs {
		want[id] = true
	}
	var result []model.VerificationCode
	for _, c := range m.byCode {
		if want[c.ExamDetailsID] {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockVerificationCodeRepo) forSchedule(scheduleID int64) *model.VerificationCode {
	for _, c := range m.byCode {
		if c.ExamDetailsID == scheduleID {
			return c
		}
	}
	return nil
}

func (m *mockVerificationCodeRepo) DeleteBySchedules(_ context.Context, scheduleIDs []int64) (int64, error) {
	want := make(map[int64]bool, len(scheduleIDs))
	for _, id := range scheduleIDs {
		want[id] = true
	}
	var n int64
	for code, c := range m.byCode {
		if want[c.ExamDetailsID] {
			delete(m.byCode, code)
			n++
		}
	}
	return n, nil
}

func (m *mockVerificationCodeRepo) DeleteAll(_ context.Context) (int64, error) {
	n := int64(len(m.byCode))
	m.byCode = make(map[string]*model.VerificationCode)
	return n, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records map[int64]*model.AttendanceRecord
	nextID  int64
	// skipLookup 测试钩子：让查重查不到，模拟并发下双方都通过查重
	skipLookup bool
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[int64]*model.AttendanceRecord)}
}

func (m *mockAttendanceRepo) Create(_ context.Context, rec *model.AttendanceRecord) error {
	for _, r := range m.records {
		if r.ExamDetailsID == rec.ExamDetailsID && r.ProctorID == rec.ProctorID {
			return uniqueErr(repository.ConstraintAttendancePair)
		}
	}
	m.nextID++
	rec.AttendanceID = m.nextID
	cp := *rec
	m.records[rec.AttendanceID] = &cp
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id int64) (*model.AttendanceRecord, error) {
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.AttendanceRecord, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAttendanceRepo) GetByScheduleAndProctor(_ context.Context, scheduleID, proctorID int64) (*model.AttendanceRecord, error) {
	if m.skipLookup {
		return nil, gorm.ErrRecordNotFound
	}
	for _, r := range m.records {
		if r.ExamDetailsID == scheduleID && r.ProctorID == proctorID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) SetTimeOut(_ context.Context, id int64, at time.Time) (bool, error) {
	r, ok := m.records[id]
	if !ok || r.TimeOut != nil {
		return false, nil
	}
	t := at
	r.TimeOut = &t
	return true, nil
}

func (m *mockAttendanceRepo) all() []model.AttendanceRecord {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AttendanceID < result[j].AttendanceID })
	return result
}

func (m *mockAttendanceRepo) ListScheduleIDs(_ context.Context) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range m.records {
		if !seen[r.ExamDetailsID] {
			seen[r.ExamDetailsID] = true
			ids = append(ids, r.ExamDetailsID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockAttendanceRepo) ListBySchedules(_ context.Context, scheduleIDs []int64) ([]model.AttendanceRecord, error) {
	want := make(map[int64]bool, len(scheduleIDs))
	for _, id := range scheduleIDs {
		want[id] = true
	}
	var result []model.AttendanceRecord
	for _, r := range m.all() {
		if want[r.ExamDetailsID] {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListBySchedulesForUpdate(ctx context.Context, scheduleIDs []int64) ([]model.AttendanceRecord, error) {
	return m.ListBySchedules(ctx, scheduleIDs)
}

func (m *mockAttendanceRepo) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// ── Mock SubstitutionRepository ──

type mockSubstitutionRepo struct {
	records []model.SubstitutionRecord
}

func newMockSubstitutionRepo() *mockSubstitutionRepo {
	return &mockSubstitutionRepo{}
}

func (m *mockSubstitutionRepo) Create(_ context.Context, rec *model.SubstitutionRecord) error {
	rec.SubstitutionID = int64(len(m.records) + 1)
	m.records = append(m.records, *rec)
	return nil
}

func (m *mockSubstitutionRepo) GetBySubstitute(_ context.Context, scheduleID, substituteID int64) (*model.SubstitutionRecord, error) {
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.ExamDetailsID == scheduleID && r.SubstituteProctorID == substituteID {
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock AttendanceHistoryRepository ──

type mockAttendanceHistoryRepo struct {
	rows   []model.AttendanceHistory
	nextID int64
}

func newMockAttendanceHistoryRepo() *mockAttendanceHistoryRepo {
	return &mockAttendanceHistoryRepo{}
}

func (m *mockAttendanceHistoryRepo) ExistsByAttendanceID(_ context.Context, attendanceID int64) (bool, error) {
	for _, h := range m.rows {
		if h.AttendanceID == attendanceID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAttendanceHistoryRepo) Create(ctx context.Context, h *model.AttendanceHistory) (bool, error) {
	if exists, _ := m.ExistsByAttendanceID(ctx, h.AttendanceID); exists {
		return false, nil
	}
	m.nextID++
	h.HistoryID = m.nextID
	m.rows = append(m.rows, *h)
	return true, nil
}

func (m *mockAttendanceHistoryRepo) ListByProctor(_ context.Context, proctorID int64) ([]model.AttendanceHistory, error) {
	var result []model.AttendanceHistory
	for _, h := range m.rows {
		if h.ProctorID == proctorID {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *mockAttendanceHistoryRepo) ListBySchedules(_ context.Context, scheduleIDs []int64) ([]model.AttendanceHistory, error) {
	want := make(map[int64]bool, len(scheduleIDs))
	for _, id := range scheduleIDs {
		want[id] = true
	}
	var result []model.AttendanceHistory
	for _, h := range m.rows {
		if want[h.ExamDetailsID] {
			result = append(result, h)
		}
	}
	return result, nil
}

// ── Mock Locker ──

type mockLocker struct {
	held     bool
	acquired int
}

func (m *mockLocker) AcquireLock(_ context.Context, _ string, _ time.Duration) (string, error) {
	if m.held {
		return "", nil
	}
	m.held = true
	m.acquired++
	return "token", nil
}

func (m *mockLocker) ReleaseLock(_ context.Context, _ string, _ string) error {
	m.held = false
	return nil
}
