package parse

import (
	"bytes"
	"encoding/binary"
	"regexp"
	"strings"
	"time"
)

var rePrefetch = regexp.MustCompile(`(?i)^(.+)-([0-9A-F]{8})\.pf$`)

// Prefetch splits a prefetch file name JAVAW.EXE-1A2B3C4D.pf into the
// executable name and the path hash.
func Prefetch(name string) (exe, hash string, ok bool) {
	m := rePrefetch.FindStringSubmatch(Base(name))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.ToUpper(m[2]), true
}

// ROT13 decodes the value names of the UserAssist registry keys.
func ROT13(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return 'a' + (r-'a'+13)%26
		case r >= 'A' && r <= 'Z':
			return 'A' + (r-'A'+13)%26
		}
		return r
	}, s)
}

// UserAssist returns the run count and the last execution time stored in a
// Windows 7+ UserAssist value (72 bytes, FILETIME at offset 60).
func UserAssist(b []byte) (count int, last time.Time, ok bool) {
	if len(b) < 68 {
		return 0, time.Time{}, false
	}
	count = int(binary.LittleEndian.Uint32(b[4:8]))
	last = FileTime(binary.LittleEndian.Uint64(b[60:68]))
	return count, last, !last.IsZero()
}

// BAM returns the last execution time of a Background Activity Moderator
// value; the first 8 bytes are a FILETIME.
func BAM(b []byte) (time.Time, bool) {
	if len(b) < 8 {
		return time.Time{}, false
	}
	t := FileTime(binary.LittleEndian.Uint64(b[:8]))
	return t, !t.IsZero()
}

// well known folder GUIDs used as prefixes in UserAssist names
var knownFolders = map[string]string{
	"{6D809377-6AF0-444B-8957-A3773F02200E}": `C:\Program Files`,
	"{7C5A40EF-A0FB-4BFC-874A-C0F2E0B9FA8E}": `C:\Program Files (x86)`,
	"{1AC14E77-02E7-4E5D-B744-2EB1AE5198B7}": `C:\Windows\System32`,
	"{F38BF404-1D43-42F2-9305-67DE0B28FC23}": `C:\Windows`,
	"{D65231B0-B2F1-4857-A4CE-A8E7C6EA7D27}": `C:\Windows\SysWOW64`,
}

// ExpandKnownFolder replaces a leading known folder GUID by its usual path.
func ExpandKnownFolder(p string) string {
	if !strings.HasPrefix(p, "{") {
		return p
	}
	end := strings.IndexByte(p, '}')
	if end < 0 {
		return p
	}
	if dir, ok := knownFolders[strings.ToUpper(p[:end+1])]; ok {
		return dir + p[end+1:]
	}
	return p
}

const (
	lnkHeaderSize       = 0x4c
	lnkHasIDList        = 0x1
	lnkHasLinkInfo      = 0x2
	lnkVolumeIDAndPath  = 0x1
	fileAttributeFolder = 0x10
)

// Shortcut is the target of a shell link (.lnk) file
type Shortcut struct {
	Target string
	Folder bool
}

// Lnk reads the local base path of a shell link. Links without a LinkInfo
// structure (for example to virtual folders) are not supported.
func Lnk(b []byte) (Shortcut, bool) {
	if len(b) < lnkHeaderSize || binary.LittleEndian.Uint32(b[0:4]) != lnkHeaderSize {
		return Shortcut{}, false
	}
	flags := binary.LittleEndian.Uint32(b[0x14:0x18])
	attrs := binary.LittleEndian.Uint32(b[0x18:0x1c])
	off := lnkHeaderSize
	if flags&lnkHasIDList != 0 {
		if len(b) < off+2 {
			return Shortcut{}, false
		}
		off += 2 + int(binary.LittleEndian.Uint16(b[off:]))
	}
	if flags&lnkHasLinkInfo == 0 || len(b) < off+20 {
		return Shortcut{}, false
	}
	info := b[off:]
	size := int(binary.LittleEndian.Uint32(info[0:4]))
	if size > len(info) || size < 20 {
		return Shortcut{}, false
	}
	info = info[:size]
	if binary.LittleEndian.Uint32(info[8:12])&lnkVolumeIDAndPath == 0 {
		return Shortcut{}, false
	}
	pathOff := int(binary.LittleEndian.Uint32(info[16:20]))
	if pathOff >= len(info) {
		return Shortcut{}, false
	}
	target := info[pathOff:]
	if i := bytes.IndexByte(target, 0); i >= 0 {
		target = target[:i]
	}
	if len(target) == 0 {
		return Shortcut{}, false
	}
	return Shortcut{Target: string(target), Folder: attrs&fileAttributeFolder != 0}, true
}

// BrowserID maps the identifiers platforms use for a browser to the browser
// ID: Windows ProgIds (ChromeHTML, MSEdgeHTM, FirefoxURL-308046B0AF4A39CB),
// XDG desktop files (google-chrome.desktop) and macOS bundle identifiers
// (org.mozilla.firefox).
func BrowserID(s string) string {
	s = strings.ToLower(s)
	for _, id := range []string{"chromium", "chrome", "edge", "firefox", "brave", "opera", "vivaldi", "safari"} {
		if strings.Contains(s, id) {
			return id
		}
	}
	return ""
}

var reLSHandler = regexp.MustCompile(`LSHandlerRoleAll = "?([\w.-]+)"?;\s*LSHandlerURLScheme = https?;`)

// LSHandler returns the bundle identifier handling http(s) URLs from the
// output of `defaults read com.apple.LaunchServices/com.apple.launchservices.secure LSHandlers`.
func LSHandler(out string) string {
	m := reLSHandler.FindStringSubmatch(out)
	if m == nil {
		return ""
	}
	return m[1]
}
