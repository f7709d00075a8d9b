package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"exam-proctor/internal/dto"
	"exam-proctor/internal/service"
	pkgerrors "exam-proctor/pkg/errors"
	"exam-proctor/pkg/response"
)

// AttendanceHandler 签到模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// SubmitAttendance 提交签到
// POST /api/v1/attendance
func (h *AttendanceHandler) SubmitAttendance(c *gin.Context) {
	var req dto.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if failedTag(err) == "attendance_role" {
			response.BadRequest(c, 21001, pkgerrors.Message(service.ErrInvalidRole))
			return
		}
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}

	userID, ok := resolveActor(c, req.UserID)
	if !ok {
		return
	}
	req.UserID = userID

	result, err := h.attendanceSvc.SubmitAttendance(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, result)
}

// CheckOut 签退
// POST /api/v1/attendance/:id/check-out
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 21001, "签到记录ID无效")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.CheckOut(c.Request.Context(), id, userID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		response.BadRequest(c, 21101, pkgerrors.Message(err))
	case errors.Is(err, service.ErrInvalidRole):
		response.BadRequest(c, 21102, pkgerrors.Message(err))
	case errors.Is(err, service.ErrRemarksRequired):
		response.BadRequest(c, 21103, pkgerrors.Message(err))
	case errors.Is(err, service.ErrCodeInvalid):
		response.NotFound(c, 21104, pkgerrors.Message(err))
	case errors.Is(err, service.ErrPersonNotFound):
		response.NotFound(c, 21105, pkgerrors.Message(err))
	case errors.Is(err, service.ErrAlreadyRecorded):
		response.Conflict(c, 21106, pkgerrors.Message(err))
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.NotFound(c, 21107, pkgerrors.Message(err))
	case errors.Is(err, service.ErrNotOwnAttendance):
		response.Forbidden(c, 21108, pkgerrors.Message(err))
	case errors.Is(err, service.ErrAlreadyCheckedOut):
		response.Conflict(c, 21109, pkgerrors.Message(err))
	case errors.Is(err, service.ErrCheckOutClosed):
		response.Conflict(c, 21110, pkgerrors.Message(err))
	default:
		respondByKind(c, 21000, err)
	}
}
