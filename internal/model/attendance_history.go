package model

import "time"

// AttendanceHistory 已结束考试的签到归档快照，对应 tbl_proctor_attendance_history
// 每条 AttendanceRecord 至多归档一次（attendance_id 唯一），写入后不再修改
type AttendanceHistory struct {
	HistoryID          int64            `gorm:"column:history_id;primaryKey;autoIncrement" json:"history_id"`
	AttendanceID       int64            `gorm:"column:attendance_id;not null"              json:"attendance_id"`
	ExamDetailsID      int64            `gorm:"column:examdetails_id;not null"             json:"examdetails_id"`
	ProctorID          int64            `gorm:"column:proctor_id;not null"                 json:"proctor_id"`
	ProctorName        string           `gorm:"column:proctor_name"                        json:"proctor_name"`
	InstructorName     string           `gorm:"column:instructor_name"                     json:"instructor_name"`
	CourseID           string           `gorm:"column:course_id"                           json:"course_id"`
	SectionName        string           `gorm:"column:section_name"                        json:"section_name"`
	ExamDate           string           `gorm:"column:exam_date"                           json:"exam_date"`
	ExamStartTime      *time.Time       `gorm:"column:exam_start_time"                     json:"exam_start_time,omitempty"`
	ExamEndTime        *time.Time       `gorm:"column:exam_end_time"                       json:"exam_end_time,omitempty"`
	BuildingName       string           `gorm:"column:building_name"                       json:"building_name"`
	RoomID             string           `gorm:"column:room_id"                             json:"room_id"`
	CollegeName        string           `gorm:"column:college_name"                        json:"college_name"`
	IsSubstitute       bool             `gorm:"column:is_substitute"                       json:"is_substitute"`
	Remarks            *string          `gorm:"column:remarks"                             json:"remarks,omitempty"`
	OTPCode            string           `gorm:"column:otp_code"                            json:"otp_code"`
	TimeIn             time.Time        `gorm:"column:time_in;not null"                    json:"time_in"`
	TimeOut            *time.Time       `gorm:"column:time_out"                            json:"time_out,omitempty"`
	Status             AttendanceStatus `gorm:"column:status;type:varchar(20);not null"    json:"status"`
	SubstitutedForID   *int64           `gorm:"column:substituted_for_id"                  json:"substituted_for_id,omitempty"`
	SubstitutedForName *string          `gorm:"column:substituted_for_name"                json:"substituted_for_name,omitempty"`
	ArchivedAt         time.Time        `gorm:"column:archived_at;not null"                json:"archived_at"`
}

// TableName 指定表名
func (AttendanceHistory) TableName() string { return "tbl_proctor_attendance_history" }
