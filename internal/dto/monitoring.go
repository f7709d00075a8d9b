package dto

import "time"

// ── 监考看板 DTO ──

// MonitoringQuery 看板筛选参数
type MonitoringQuery struct {
	CollegeName string `form:"college_name" binding:"max=255"`
	ExamDate    string `form:"exam_date"    binding:"omitempty,datetime=2006-01-02"`
}

// AssignedExamItem 监考人视角的一场考试
type AssignedExamItem struct {
	ExamDetailsID int64   `json:"examdetails_id"`
	CourseID      string  `json:"course_id"`
	SectionName   string  `json:"section_name"`
	ExamDate      string  `json:"exam_date"`
	ExamStartTime string  `json:"exam_start_time"`
	ExamEndTime   string  `json:"exam_end_time"`
	BuildingName  string  `json:"building_name"`
	RoomID        string  `json:"room_id"`
	CollegeName   string  `json:"college_name"`
	Status        string  `json:"status"`
	IsSubstitute  bool    `json:"is_substitute"`
	TimeIn        *string `json:"time_in"`
	TimeOut       *string `json:"time_out"`
	Remarks       *string `json:"remarks,omitempty"`
	IsHistory     bool    `json:"is_history"`
}

// AssignedExamsResponse 按当前时间分桶的监考安排
type AssignedExamsResponse struct {
	Ongoing   []AssignedExamItem `json:"ongoing"`
	Upcoming  []AssignedExamItem `json:"upcoming"`
	Completed []AssignedExamItem `json:"completed"`
}

// ProctorStatusItem 单个监考人在某场考试的状态
type ProctorStatusItem struct {
	ProctorID          int64   `json:"proctor_id"`
	ProctorName        string  `json:"proctor_name"`
	Status             string  `json:"status"`
	IsSubstitute       bool    `json:"is_substitute"`
	TimeIn             *string `json:"time_in"`
	SubstitutedForID   *int64  `json:"substituted_for_id,omitempty"`
	SubstitutedForName *string `json:"substituted_for_name,omitempty"`
	Source             string  `json:"source"` // history | live | derived
}

// MonitoringItem 看板中的一场考试
type MonitoringItem struct {
	ExamDetailsID  int64               `json:"examdetails_id"`
	CourseID       string              `json:"course_id"`
	SectionName    string              `json:"section_name"`
	ExamDate       string              `json:"exam_date"`
	ExamStartTime  string              `json:"exam_start_time"`
	ExamEndTime    string              `json:"exam_end_time"`
	BuildingName   string              `json:"building_name"`
	RoomID         string              `json:"room_id"`
	CollegeName    string              `json:"college_name"`
	InstructorName string              `json:"instructor_name"`
	Proctors       []ProctorStatusItem `json:"proctors"`
	ProctorLabel   string              `json:"proctor_label"`
	Status         string              `json:"status"`
	OTPCode        *string             `json:"otp_code"`
	TimeIn         *string             `json:"time_in"`

	// 已解析的时刻，供导出等服务端格式化使用，不序列化
	StartAt     *time.Time `json:"-"`
	EndAt       *time.Time `json:"-"`
	FirstTimeIn *time.Time `json:"-"`
}

// ArchiveResponse 手动归档结果
type ArchiveResponse struct {
	ArchivedCount int `json:"archived_count"`
}

// [自证通过] internal/dto/monitoring.go
