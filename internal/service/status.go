package service

import (
	"time"

	"exam-proctor/internal/model"
	"exam-proctor/pkg/examtime"
)

// DeriveStatus 计算单个 (考试, 监考人) 的签到状态
//
//   - 代监考记录一律为 substitute
//   - 有签到记录：签到时刻晚于开考超过 lateThreshold 为 late，恰好等于阈值仍为 confirmed；
//     开考时间无法解析时为 confirmed
//   - 无签到记录：考试已结束为 absent，否则 pending
func DeriveStatus(rec *model.AttendanceRecord, w examtime.Window, now time.Time, lateThreshold time.Duration) model.AttendanceStatus {
	if rec != nil {
		if rec.IsSubstitute {
			return model.StatusSubstitute
		}
		if !w.HasStart {
			return model.StatusConfirmed
		}
		if rec.TimeIn.Sub(w.Start) > lateThreshold {
			return model.StatusLate
		}
		return model.StatusConfirmed
	}
	if w.HasEnd && now.After(w.End) {
		return model.StatusAbsent
	}
	return model.StatusPending
}

type examBucket int

const (
	bucketUpcoming examBucket = iota
	bucketOngoing
	bucketCompleted
)

// bucketOf 按当前时间划分考试阶段；起止时间不完整的考试归入 upcoming
func bucketOf(w examtime.Window, now time.Time) examBucket {
	if !w.Complete() {
		return bucketUpcoming
	}
	switch {
	case now.After(w.End):
		return bucketCompleted
	case now.Before(w.Start):
		return bucketUpcoming
	default:
		return bucketOngoing
	}
}

// ended 考试结束时间可解析且已过
func ended(w examtime.Window, now time.Time) bool {
	return w.HasEnd && now.After(w.End)
}

// archivable 考试已结束且超过签退宽限期，签到可迁入历史表
func archivable(w examtime.Window, now time.Time, grace time.Duration) bool {
	return w.HasEnd && now.After(w.End.Add(grace))
}

// statusMark 看板中姓名后的标记
func statusMark(s model.AttendanceStatus) string {
	switch s {
	case model.StatusConfirmed, model.StatusLate:
		return " ✓"
	case model.StatusAbsent:
		return " ✗"
	case model.StatusSubstitute:
		return " 🔄"
	}
	return ""
}
