package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"exam-proctor/internal/dto"
	"exam-proctor/internal/service"
	"exam-proctor/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc}
}

// ExportMonitoring 导出监考看板
// GET /api/v1/monitoring/export?college_name=&exam_date=
func (h *ExportHandler) ExportMonitoring(c *gin.Context) {
	var q dto.MonitoringQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 23001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportMonitoring(c.Request.Context(), &q)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}

// ProctorCalendar 监考日历订阅
// GET /api/v1/proctors/:user_id/calendar.ics
func (h *ExportHandler) ProctorCalendar(c *gin.Context) {
	userID, ok := mustGetProctorParam(c)
	if !ok {
		return
	}

	body, err := h.calendarSvc.ProctorCalendar(c.Request.Context(), userID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, fmt.Sprintf("proctor_%d.ics", userID), icsContentType, body)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoExams):
		response.NotFound(c, 23101, "筛选条件下没有考试")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		respondByKind(c, 23000, err)
	}
}
