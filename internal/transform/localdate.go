package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"news-extractor/internal/scraper"
)

var (
	ruMonths = map[string]int{
		"января":   1,
		"февраля":  2,
		"марта":    3,
		"апреля":   4,
		"мая":      5,
		"июня":     6,
		"июля":     7,
		"августа":  8,
		"сентября": 9,
		"октября":  10,
		"ноября":   11,
		"декабря":  12,
	}

	kyMonths = map[string]int{
		"январь":   1,
		"февраль":  2,
		"март":     3,
		"апрель":   4,
		"май":      5,
		"июнь":     6,
		"июль":     7,
		"август":   8,
		"сентябрь": 9,
		"октябрь":  10,
		"ноябрь":   11,
		"декабрь":  12,
	}

	ruDays = []string{"пн", "вт", "ср", "чт", "пт", "сб", "вс", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота", "воскресенье"}
	kyDays = []string{"дүй", "шейш", "шарш", "бейш", "жума", "ишемби", "жекшемби"}

	ruToday     = []string{"сегодня", "сейчас"}
	kyToday     = []string{"бүгүн"}
	ruYesterday = []string{"вчера", "вчерашний"}
	kyYesterday = []string{"кечээ"}

	namedDateRe   = regexp.MustCompile(`(\d{1,2})[\s-]+(\p{L}+)(?:\s+(\d{4}))?`)
	numericDateRe = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})(?:\.(\d{4}))?`)
	clockRe       = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// DateParser reads Russian and Kyrgyz news dates such as "18 октября 2024",
// "18.10.2024, 14:30" or "вчера". Results are in UTC; a missing year means
// the current one.
type DateParser struct {
	lang string
	now  func() time.Time
}

// NewDateParser supports "ru" and "ky".
func NewDateParser(lang string) (*DateParser, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != "ru" && lang != "ky" {
		return nil, fmt.Errorf("unsupported date language %q", lang)
	}
	return &DateParser{lang: lang, now: time.Now}, nil
}

func (dp *DateParser) Parse(dateStr string) (time.Time, error) {
	dateStr = strings.ToLower(strings.TrimSpace(dateStr))
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}
	dateStr = dp.stripWeekdays(dateStr)

	hour, minute := 0, 0
	if m := clockRe.FindStringSubmatch(dateStr); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return time.Time{}, fmt.Errorf("invalid time of day: %s", m[0])
		}
		dateStr = strings.Replace(dateStr, m[0], " ", 1)
	}

	today, yesterday := ruToday, ruYesterday
	months := ruMonths
	if dp.lang == "ky" {
		today, yesterday = kyToday, kyYesterday
		months = kyMonths
	}

	now := dp.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, w := range today {
		if strings.Contains(dateStr, w) {
			return midnight.Add(clock(hour, minute)), nil
		}
	}
	for _, w := range yesterday {
		if strings.Contains(dateStr, w) {
			return midnight.AddDate(0, 0, -1).Add(clock(hour, minute)), nil
		}
	}

	if m := namedDateRe.FindStringSubmatch(dateStr); m != nil {
		month, ok := months[m[2]]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown month (%s): %s", strings.ToUpper(dp.lang), m[2])
		}
		return buildDate(m[1], month, m[3], now.Year(), hour, minute)
	}

	if m := numericDateRe.FindStringSubmatch(dateStr); m != nil {
		month, err := strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid month: %q: %w", m[2], err)
		}
		return buildDate(m[1], month, m[3], now.Year(), hour, minute)
	}

	return time.Time{}, fmt.Errorf("unable to parse date (%s): %s", strings.ToUpper(dp.lang), dateStr)
}

func (dp *DateParser) stripWeekdays(s string) string {
	days := ruDays
	if dp.lang == "ky" {
		days = kyDays
	}
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		word := strings.Trim(f, ",.")
		drop := false
		for _, d := range days {
			if word == d {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func buildDate(dayStr string, month int, yearStr string, defaultYear, hour, minute int) (time.Time, error) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day: %q: %w", dayStr, err)
	}
	year := defaultYear
	if yearStr != "" {
		if year, err = strconv.Atoi(yearStr); err != nil {
			return time.Time{}, fmt.Errorf("invalid year: %q: %w", yearStr, err)
		}
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid month: %d", month)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid day: %d", day)
	}
	return t, nil
}

func clock(hour, minute int) time.Duration {
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
}

// LocalDate parses the first node's text with a DateParser for lang.
func LocalDate(lang string) (scraper.Transform, error) {
	dp, err := NewDateParser(lang)
	if err != nil {
		return nil, err
	}
	return func(m scraper.Match) (any, error) {
		n, ok := m.Node()
		if !ok {
			return nil, nil
		}
		raw := dateSource(n, "datetime", "content")
		if raw == "" {
			return nil, nil
		}
		return dp.Parse(raw)
	}, nil
}
