package parse

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/ardent-labs/sleuth/internal/model"
)

var ErrRecord = errors.New("malformed record")

// epoch difference between 1601-01-01 and 1970-01-01 in 100ns intervals
const fileTimeEpoch = 116444736000000000

// FileTime converts a Windows FILETIME to time. Zero and values outside
// the years 1970 to 9999 map to the zero time.
func FileTime(ft uint64) time.Time {
	if ft == 0 || ft < fileTimeEpoch {
		return time.Time{}
	}
	d := ft - fileTimeEpoch
	return model.KnownTime(time.Unix(int64(d/10_000_000), int64(d%10_000_000)*100).UTC())
}

// Recycled is a file moved to the Windows recycle bin
type Recycled struct {
	Path    string
	Size    int64
	Deleted time.Time
}

// RecycleBinInfo parses a $I metadata file of the Windows recycle bin.
// Version 1 (Vista to 8.1) stores a fixed 260 character path, version 2
// (Windows 10+) a length prefixed one.
func RecycleBinInfo(b []byte) (Recycled, error) {
	if len(b) < 24 {
		return Recycled{}, fmt.Errorf("%w: $I record too short: %d bytes", ErrRecord, len(b))
	}
	version := binary.LittleEndian.Uint64(b[0:8])
	rec := Recycled{
		Size:    max(int64(binary.LittleEndian.Uint64(b[8:16])), 0),
		Deleted: FileTime(binary.LittleEndian.Uint64(b[16:24])),
	}
	var name []byte
	switch version {
	case 1:
		name = b[24:]
		if len(name) > 520 {
			name = name[:520]
		}
	case 2:
		if len(b) < 28 {
			return Recycled{}, fmt.Errorf("%w: $I v2 record without path length", ErrRecord)
		}
		n := int(binary.LittleEndian.Uint32(b[24:28])) * 2
		name = b[28:]
		if n < len(name) {
			name = name[:n]
		}
	default:
		return Recycled{}, fmt.Errorf("%w: unsupported $I version %d", ErrRecord, version)
	}
	rec.Path = utf16String(name)
	if rec.Path == "" {
		return Recycled{}, fmt.Errorf("%w: $I record without path", ErrRecord)
	}
	return rec, nil
}

// utf16String decodes NUL terminated UTF-16LE
func utf16String(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		c := binary.LittleEndian.Uint16(b[i:])
		if c == 0 {
			break
		}
		u = append(u, c)
	}
	return string(utf16.Decode(u))
}

// TrashInfo parses a freedesktop.org .trashinfo file. Path is URL decoded,
// DeletionDate is local time without a zone.
func TrashInfo(r io.Reader, loc *time.Location) (Recycled, error) {
	if loc == nil {
		loc = time.Local
	}
	var rec Recycled
	var inSection bool
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inSection = line == "[Trash Info]"
			continue
		}
		if !inSection {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch k {
		case "Path":
			p, err := url.PathUnescape(v)
			if err != nil {
				p = v
			}
			rec.Path = p
		case "DeletionDate":
			if t, err := time.ParseInLocation("2006-01-02T15:04:05", v, loc); err == nil {
				rec.Deleted = t
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Recycled{}, err
	}
	if rec.Path == "" {
		return Recycled{}, fmt.Errorf("%w: trashinfo without Path", ErrRecord)
	}
	return rec, nil
}
