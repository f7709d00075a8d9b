package dto

// ── 验证码模块 DTO ──

// IssueCodesRequest 生成验证码请求；schedule_ids 为空时为所有尚无验证码的考试生成
type IssueCodesRequest struct {
	ScheduleIDs []int64 `json:"schedule_ids" binding:"omitempty,dive,gt=0"`
}

// ResetCodesRequest 删除验证码请求；schedule_ids 为空时删除全部
type ResetCodesRequest struct {
	ScheduleIDs []int64 `json:"schedule_ids" binding:"omitempty,dive,gt=0"`
}

// VerifyCodeRequest 校验验证码请求；user_id 缺省为当前登录用户
type VerifyCodeRequest struct {
	OTPCode string `json:"otp_code" binding:"required,max=32"`
	UserID  int64  `json:"user_id"  binding:"omitempty,gt=0"`
}

// ── 响应 ──

// IssuedCodePreview 生成结果预览
type IssuedCodePreview struct {
	ExamDetailsID int64  `json:"examdetails_id"`
	CourseID      string `json:"course_id"`
	SectionName   string `json:"section_name"`
	OTPCode       string `json:"otp_code"`
	ExamDate      string `json:"exam_date"`
	ExamStartTime string `json:"exam_start_time"`
	ExamEndTime   string `json:"exam_end_time"`
	ExpiresAt     string `json:"expires_at"`
}

// IssueCodesResponse 生成验证码响应
type IssueCodesResponse struct {
	GeneratedCount int                 `json:"generated_count"`
	Records        []IssuedCodePreview `json:"records"`
}

// ResetCodesResponse 删除验证码响应
type ResetCodesResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// VerifyCodeResponse 校验通过的考试信息
type VerifyCodeResponse struct {
	Valid               bool   `json:"valid"`
	VerificationStatus  string `json:"verification_status"`
	Message             string `json:"message"`
	ExamDetailsID       int64  `json:"examdetails_id"`
	CourseID            string `json:"course_id"`
	SectionName         string `json:"section_name"`
	ExamDate            string `json:"exam_date"`
	ExamStartTime       string `json:"exam_start_time"`
	ExamEndTime         string `json:"exam_end_time"`
	BuildingName        string `json:"building_name"`
	RoomID              string `json:"room_id"`
	AssignedProctorID   *int64 `json:"assigned_proctor_id"`
	AssignedProctorName string `json:"assigned_proctor_name"`
}

// [自证通过] internal/dto/otp.go
