package parse

import (
	"regexp"
	"strings"
	"time"
)

// Event is a single timestamped log line or event log record
type Event struct {
	Time    time.Time
	Message string
}

// timestamp layouts of dmesg --time-format iso, journalctl -o short-iso,
// log show --style syslog and PowerShell "{0:o}"
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05,000000-0700",
	"2006-01-02T15:04:05,000000-07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.0000000-07:00",
	"2006-01-02 15:04:05.000000-0700",
	"2006-01-02 15:04:05-0700",
}

// Time parses a timestamp in any of the formats emitted by the supported
// log tools.
func Time(s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EventRecords parses lines of the form "<timestamp>|<message>" produced by
// the PowerShell event log queries. Lines without a parsable timestamp are
// dropped.
func EventRecords(out string) []Event {
	var ret []Event
	for line := range strings.Lines(out) {
		ts, msg, ok := strings.Cut(strings.TrimSpace(line), "|")
		if !ok {
			continue
		}
		t, ok := Time(strings.TrimSpace(ts))
		if !ok {
			continue
		}
		ret = append(ret, Event{Time: t, Message: strings.TrimSpace(msg)})
	}
	return ret
}

// LogLines parses log lines starting with a timestamp (dmesg iso, journalctl
// short-iso). macOS syslog style lines have a space between date and time,
// both forms are accepted.
func LogLines(out string) []Event {
	var ret []Event
	for line := range strings.Lines(out) {
		line = strings.TrimSpace(line)
		first, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		if t, ok := Time(first); ok {
			ret = append(ret, Event{Time: t, Message: strings.TrimSpace(rest)})
			continue
		}
		second, rest2, ok := strings.Cut(rest, " ")
		if !ok {
			continue
		}
		if t, ok := Time(first + " " + second); ok {
			ret = append(ret, Event{Time: t, Message: strings.TrimSpace(rest2)})
		}
	}
	return ret
}

var (
	reLinuxUSB   = regexp.MustCompile(`usb (\S+): USB disconnect(?:, device number (\d+))?`)
	reDarwinUSB  = regexp.MustCompile(`(?i)USB ?device[:\s]+"?([^,"@]+?)"?\s*(?:@|,|was\b|removed|terminated|disconnected|$)`)
	reDarwinDisc = regexp.MustCompile(`(?i)\b(?:removed|terminat|disconnect)`)
	reWinUSBID   = regexp.MustCompile(`(?i)USB\\(VID_[0-9A-F]{4}&PID_[0-9A-F]{4}[^\s]*)`)
)

// USBDevice is a disconnected USB device
type USBDevice struct {
	Device string
	Time   time.Time
}

// LinuxUSB extracts USB disconnect events from dmesg or journal lines.
func LinuxUSB(events []Event) []USBDevice {
	var ret []USBDevice
	for _, e := range events {
		m := reLinuxUSB.FindStringSubmatch(e.Message)
		if m == nil {
			continue
		}
		dev := "usb " + m[1]
		if m[2] != "" {
			dev += " (device " + m[2] + ")"
		}
		ret = append(ret, USBDevice{Device: dev, Time: e.Time})
	}
	return ret
}

// DarwinUSB extracts USB removal events from `log show` lines.
func DarwinUSB(events []Event) []USBDevice {
	var ret []USBDevice
	for _, e := range events {
		if !reDarwinDisc.MatchString(e.Message) {
			continue
		}
		m := reDarwinUSB.FindStringSubmatch(e.Message)
		if m == nil {
			continue
		}
		ret = append(ret, USBDevice{Device: strings.TrimSpace(m[1]), Time: e.Time})
	}
	return ret
}

// WindowsUSB extracts USB device ids from Kernel-PnP device removal records.
func WindowsUSB(events []Event) []USBDevice {
	var ret []USBDevice
	for _, e := range events {
		dev := e.Message
		if m := reWinUSBID.FindStringSubmatch(e.Message); m != nil {
			dev = m[1]
		} else if !strings.Contains(strings.ToUpper(e.Message), "USB") {
			continue
		}
		ret = append(ret, USBDevice{Device: dev, Time: e.Time})
	}
	return ret
}

var reObjectName = regexp.MustCompile(`(?i)Object Name:\s*(.+?)\s+Handle ID:`)

// DeletedObject extracts the object name from a flattened Security 4663
// (object access) record.
func DeletedObject(msg string) (string, bool) {
	m := reObjectName.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if name == "" || name == "-" {
		return "", false
	}
	return name, true
}
