package examtime

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnresolvable 考试日期/时间无法合并为确定时刻
var ErrUnresolvable = errors.New("exam time cannot be resolved")

// Moment 考试起止时间的原始值。
//
// 排考数据中同一字段既可能是完整时间戳（timestamptz / RFC3339 字符串），
// 也可能只有时分（"08:00" / "8:00 AM"），需要再与 exam_date 合并。
type Moment struct {
	t       time.Time
	hasDate bool
	zoned   bool
	valid   bool
	raw     string // 无法解析的原文，仅用于展示
}

// FromTime 由完整时间戳构造 Moment
func FromTime(t time.Time) Moment {
	if t.IsZero() {
		return Moment{}
	}
	return Moment{t: t, hasDate: true, zoned: true, valid: true}
}

// MustParse 测试与种子数据使用，解析失败直接 panic
func MustParse(s string) Moment {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

type layout struct {
	value string
	zoned bool
}

var fullLayouts = []layout{
	{time.RFC3339Nano, true},
	{"2006-01-02 15:04:05.999999999-07:00", true},
	{"2006-01-02 15:04:05.999999999-07", true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04", false},
}

var clockLayouts = []string{"15:04:05", "15:04", "3:04 PM", "3:04PM", "03:04 PM", "3:04:05 PM"}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02", "January 2, 2006", "Jan 2, 2006"}

// Parse 解析字符串形式的时间，空串返回无效 Moment
func Parse(s string) (Moment, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Moment{}, nil
	}
	for _, l := range fullLayouts {
		if t, err := time.Parse(l.value, s); err == nil {
			return Moment{t: t, hasDate: true, zoned: l.zoned, valid: true}, nil
		}
	}
	upper := strings.ToUpper(s)
	for _, l := range clockLayouts {
		if t, err := time.Parse(l, upper); err == nil {
			return Moment{t: t, valid: true}, nil
		}
	}
	return Moment{}, fmt.Errorf("%w: unrecognised time %q", ErrUnresolvable, s)
}

// Valid 是否有值
func (m Moment) Valid() bool { return m.valid }

// HasDate 是否为带日期的完整时间戳
func (m Moment) HasDate() bool { return m.hasDate }

// Scan 实现 sql.Scanner：接受 time.Time、[]byte、string
// 文本无法解析（如 "TBA"）时不报错，保留原文并视为缺失，单行脏数据不影响整批查询
func (m *Moment) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Moment{}
		return nil
	case time.Time:
		*m = FromTime(v)
		return nil
	case []byte:
		*m = parseLenient(string(v))
		return nil
	case string:
		*m = parseLenient(v)
		return nil
	default:
		return fmt.Errorf("examtime.Moment.Scan: unsupported type %T", src)
	}
}

func parseLenient(s string) Moment {
	parsed, err := Parse(s)
	if err != nil {
		return Moment{raw: strings.TrimSpace(s)}
	}
	return parsed
}

// Raw 无法解析时的原文
func (m Moment) Raw() string { return m.raw }

// Value 实现 driver.Valuer
func (m Moment) Value() (driver.Value, error) {
	switch {
	case !m.valid && m.raw != "":
		return m.raw, nil
	case !m.valid:
		return nil, nil
	case m.hasDate:
		return m.t, nil
	default:
		return m.t.Format("15:04:05"), nil
	}
}

// String 返回原始表示；无法解析时返回原文
func (m Moment) String() string {
	switch {
	case !m.valid:
		return m.raw
	case m.hasDate && m.zoned:
		return m.t.Format(time.RFC3339)
	case m.hasDate:
		return m.t.Format("2006-01-02 15:04:05")
	default:
		return m.t.Format("15:04:05")
	}
}

func (m Moment) MarshalJSON() ([]byte, error) {
	if !m.valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

func (m *Moment) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Moment{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseDate 解析考试日期。兼容 "2025-03-01"、"2025-03-01T00:00:00Z" 等写法
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty exam date", ErrUnresolvable)
	}
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", ErrUnresolvable, s)
}

// Resolve 将 exam_date 与 Moment 合并为 loc 时区下的绝对时刻。
// 带时区的时间戳只做时区转换；不带时区的按 loc 解释；仅时分的与 date 合并。
func Resolve(date string, m Moment, loc *time.Location) (time.Time, error) {
	if !m.valid {
		return time.Time{}, ErrUnresolvable
	}
	if loc == nil {
		loc = time.UTC
	}
	if m.hasDate {
		if m.zoned {
			return m.t.In(loc), nil
		}
		return time.Date(m.t.Year(), m.t.Month(), m.t.Day(),
			m.t.Hour(), m.t.Minute(), m.t.Second(), m.t.Nanosecond(), loc), nil
	}
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(),
		m.t.Hour(), m.t.Minute(), m.t.Second(), 0, loc), nil
}

// Window 一场考试的起止时间（各自可能无法解析）
type Window struct {
	Start    time.Time
	End      time.Time
	HasStart bool
	HasEnd   bool
}

// ResolveWindow 解析考试时间窗，无法解析的一端标记为缺失
func ResolveWindow(date string, start, end Moment, loc *time.Location) Window {
	var w Window
	if t, err := Resolve(date, start, loc); err == nil {
		w.Start, w.HasStart = t, true
	}
	if t, err := Resolve(date, end, loc); err == nil {
		w.End, w.HasEnd = t, true
	}
	return w
}

// Complete 起止时间均可用
func (w Window) Complete() bool { return w.HasStart && w.HasEnd }

// LoadLocation 加载配置时区，失败回退 UTC
func LoadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
