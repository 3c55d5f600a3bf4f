package model

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"time"
)

var durationRx = regexp.MustCompile(`^(\d+d)?(\d+h)?(\d+m)?(\d+s)?$`)

var ErrDurationFormat = errors.New("invalid duration format")

// ParseDuration parses strings matching ^(\d+d)?(\d+h)?(\d+m)?(\d+s)?$ into time.Duration.
// Supports ordered day/hour/minute/second segments. Empty string is rejected.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty duration")
	}
	m := durationRx.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrDurationFormat
	}
	var total time.Duration
	for _, seg := range m[1:] {
		if seg == "" {
			continue
		}
		val, err := strconv.ParseInt(seg[:len(seg)-1], 10, 64)
		if err != nil {
			return 0, errors.New("invalid number in " + seg)
		}
		var unit time.Duration
		switch seg[len(seg)-1] {
		case 'd':
			unit = 24 * time.Hour
		case 'h':
			unit = time.Hour
		case 'm':
			unit = time.Minute
		case 's':
			unit = time.Second
		}
		if val > int64(math.MaxInt64/unit) {
			return 0, errors.New("duration overflow")
		}
		add := time.Duration(val) * unit
		if total > time.Duration(math.MaxInt64)-add {
			return 0, errors.New("duration overflow")
		}
		total += add
	}
	return total, nil
}
