package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CodesIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proctor_codes_issued_total",
			Help: "Total number of exam verification codes issued",
		},
	)

	CodesResetTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proctor_codes_reset_total",
			Help: "Total number of exam verification codes deleted by reset",
		},
	)

	// outcome: valid-assigned | valid-not-assigned | invalid | expired | too_early | ended
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctor_code_verifications_total",
			Help: "Code verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	// result: created | duplicate | rejected | error
	AttendanceSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctor_attendance_submissions_total",
			Help: "Attendance submissions by role and result",
		},
		[]string{"role", "result"},
	)

	ArchivedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proctor_attendance_archived_total",
			Help: "Attendance records moved into history by the archive sweep",
		},
	)

	ArchiveSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proctor_archive_sweep_duration_seconds",
			Help:    "Archive sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
