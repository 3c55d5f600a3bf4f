package platform_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/ardent-labs/sleuth/internal/command/commandtest"
	"github.com/ardent-labs/sleuth/internal/platform"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("registry key not found")

type fakeRegistry struct {
	subkeys map[string][]string
	values  map[string][]platform.RegistryValue
	strings map[string]string
}

func key(h platform.Hive, path string) string {
	return h.String() + `\` + path
}

func (r fakeRegistry) Subkeys(h platform.Hive, path string) ([]string, error) {
	v, ok := r.subkeys[key(h, path)]
	if !ok {
		return nil, errNotFound
	}
	return v, nil
}

func (r fakeRegistry) Values(h platform.Hive, path string) ([]platform.RegistryValue, error) {
	v, ok := r.values[key(h, path)]
	if !ok {
		return nil, errNotFound
	}
	return v, nil
}

func (r fakeRegistry) String(h platform.Hive, path, name string) (string, error) {
	v, ok := r.strings[key(h, path)+`\`+name]
	if !ok {
		return "", errNotFound
	}
	return v, nil
}

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func write(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func fileTime(t time.Time) uint64 {
	return uint64(t.UnixNano()/100) + 116444736000000000
}

func recycleRecord(size uint64, deleted time.Time, path string) []byte {
	b := binary.LittleEndian.AppendUint64(nil, 2)
	b = binary.LittleEndian.AppendUint64(b, size)
	b = binary.LittleEndian.AppendUint64(b, fileTime(deleted))
	u := append(utf16.Encode([]rune(path)), 0)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(u)))
	for _, c := range u {
		b = binary.LittleEndian.AppendUint16(b, c)
	}
	return b
}

func lnk(target string, folder bool) []byte {
	b := make([]byte, 0x4c)
	binary.LittleEndian.PutUint32(b[0:], 0x4c)
	binary.LittleEndian.PutUint32(b[0x14:], 0x2)
	if folder {
		binary.LittleEndian.PutUint32(b[0x18:], 0x10)
	}
	path := append([]byte(target), 0)
	info := make([]byte, 20)
	binary.LittleEndian.PutUint32(info[0:], uint32(20+len(path)))
	binary.LittleEndian.PutUint32(info[8:], 0x1)
	binary.LittleEndian.PutUint32(info[16:], 20)
	return append(b, append(info, path...)...)
}

func TestNew(t *testing.T) {
	t.Parallel()
	deps := platform.Deps{Runner: commandtest.New(), Home: t.TempDir()}

	var testCases = []struct {
		given string
		then  string
	}{
		{"windows", "windows"},
		{"darwin", "darwin"},
		{"linux", "linux"},
		{"freebsd", "linux"},
	}
	for _, tc := range testCases {
		t.Run(tc.given, func(t *testing.T) {
			t.Parallel()
			p, err := platform.New(tc.given, deps)
			require.NoError(t, err)
			require.Equal(t, tc.then, p.OS())
			require.Equal(t, deps.Home, p.Home())
			require.NotEmpty(t, p.Roots())
			require.Contains(t, p.Roots(), p.MinecraftDir())
		})
	}
}
