package businessday

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout 日期序列化格式
const DateLayout = "2006-01-02"

// ErrInvalidDate 日期字符串无法解析
var ErrInvalidDate = errors.New("日期格式无效")

// Date 不含时间部分的日历日期，内部以 UTC 零点表示，避免时区漂移。
// 实现 sql.Scanner / driver.Valuer，库中以 DATE 列存储。
type Date struct {
	t time.Time
}

// DateOf 取 t 在其自身时区下的年月日
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate 由年月日构造日期
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate 解析 YYYY-MM-DD，兼容 ISO-8601 时间戳（取 T 之前的日期部分）
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// Time 返回 UTC 零点时刻
func (d Date) Time() time.Time { return d.t }

// IsZero 是否为零值
func (d Date) IsZero() bool { return d.t.IsZero() }

// String 以 YYYY-MM-DD 输出
func (d Date) String() string { return d.t.Format(DateLayout) }

// Equal 同一天
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Before 早于 o
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After 晚于 o
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// AddDays 加减天数
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// At 返回该日期在 loc 时区下 hour 点整的时刻
func (d Date) At(loc *time.Location, hour int) time.Time {
	y, m, day := d.t.Date()
	return time.Date(y, m, day, hour, 0, 0, 0, loc)
}

// MarshalJSON 输出 "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON 接受 "YYYY-MM-DD" 或 ISO 时间戳
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value 写库时序列化为 YYYY-MM-DD
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan 兼容 postgres（time.Time）与 sqlite（文本）两种返回
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) >= len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("Date.Scan: invalid value %q: %w", s, err)
	}
	*d = Date{t: parsed}
	return nil
}
