package dto

// ── 签到模块 DTO ──

// SubmitAttendanceRequest 提交签到请求
// otp_code 与 user_id 的必填校验在业务层完成，以返回统一的缺参提示
type SubmitAttendanceRequest struct {
	OTPCode string `json:"otp_code" binding:"max=32"`
	UserID  int64  `json:"user_id"  binding:"omitempty,gt=0"`
	Remarks string `json:"remarks"  binding:"max=1000"`
	Role    string `json:"role"     binding:"attendance_role"`
}

// SubmitAttendanceResponse 签到结果
type SubmitAttendanceResponse struct {
	AttendanceID int64  `json:"attendance_id"`
	TimeIn       string `json:"time_in"`
	Status       string `json:"status"`
	Role         string `json:"role"`
	IsSubstitute bool   `json:"is_substitute"`
	ProctorName  string `json:"proctor_name"`
}

// CheckOutResponse 签退结果
type CheckOutResponse struct {
	AttendanceID int64  `json:"attendance_id"`
	TimeIn       string `json:"time_in"`
	TimeOut      string `json:"time_out"`
}
