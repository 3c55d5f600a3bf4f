package parse

import (
	"bytes"
	"io"
	"path"
	"regexp"
	"strings"
)

// executable or archive extension hidden behind a harmless looking one
var reDoubleExt = regexp.MustCompile(`(?i)^(.+\.(?:jar|exe|dll|bat|cmd|com|scr|msi|ps1|vbs|js|class|zip|rar|7z))\.(?:txt|log|dat|tmp|bak|old|cfg|ini|json|xml|png|jpe?g|gif|bmp|pdf|docx?|mp[34]|wav)$`)

// OriginalNameGuess returns the name a file had before a harmless extension
// was appended to it: mod.jar.txt -> mod.jar. Names without such a double
// extension return false.
func OriginalNameGuess(name string) (string, bool) {
	m := reDoubleExt.FindStringSubmatch(Base(name))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Stem returns the lowercased file name without any extension. It is used to
// cross reference files sharing a base name: mod.jar.txt, mod.jar and mod.zip
// share the stem "mod".
func Stem(name string) string {
	name = strings.ToLower(Base(name))
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}

// Ext returns the lowercased last extension of name including the dot.
func Ext(name string) string {
	return strings.ToLower(path.Ext(Base(name)))
}

// Base returns the last element of a slash or backslash separated path.
func Base(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// well known content types reported by Magic
const (
	MagicZip   = "zip"
	MagicPE    = "pe"
	MagicELF   = "elf"
	MagicMachO = "macho"
	MagicClass = "class"
)

var magics = []struct {
	kind   string
	prefix []byte
}{
	{MagicZip, []byte("PK\x03\x04")},
	{MagicPE, []byte("MZ")},
	{MagicELF, []byte("\x7fELF")},
	{MagicClass, []byte("\xca\xfe\xba\xbe")},
	{MagicMachO, []byte("\xcf\xfa\xed\xfe")},
	{MagicMachO, []byte("\xce\xfa\xed\xfe")},
}

// Magic sniffs the first bytes of r and returns the executable or archive
// kind, or an empty string.
func Magic(r io.Reader) string {
	var buf [8]byte
	n, _ := io.ReadFull(r, buf[:])
	head := buf[:n]
	for _, m := range magics {
		if bytes.HasPrefix(head, m.prefix) {
			return m.kind
		}
	}
	return ""
}

// MagicMatchesExt reports whether the content kind is expected for a file
// with the extension ext. Archives legitimately hide behind many extensions
// used by the game (jar, zip, mrpack), executables only behind their own.
func MagicMatchesExt(kind, ext string) bool {
	switch kind {
	case "":
		return true
	case MagicZip:
		switch ext {
		case ".jar", ".zip", ".mrpack", ".apk", ".docx", ".xlsx", ".pptx", ".odt", ".epub", ".war", ".ear", ".whl", ".nupkg", ".litemod", ".mcpack", ".mcworld":
			return true
		}
	case MagicPE:
		switch ext {
		case ".exe", ".dll", ".sys", ".scr", ".com", ".ocx", ".cpl", ".efi", ".mui", ".drv":
			return true
		}
	case MagicELF:
		return ext == "" || ext == ".so" || ext == ".bin" || ext == ".elf" || strings.HasPrefix(ext, ".so")
	case MagicMachO:
		return ext == "" || ext == ".dylib" || ext == ".bundle"
	case MagicClass:
		return ext == ".class"
	}
	return false
}

var (
	reJar       = regexp.MustCompile(`(?i)"([^"]+?\.jar)"|'([^']+?\.jar)'|([^\s"'=;,|]+\.jar)(?:\s|$|"|;|,|\|)`)
	reOptPrefix = regexp.MustCompile(`^-[A-Za-z][\w.-]*:`)
)

// JarPaths returns every .jar path mentioned in s, typically a command line
// or a log message. Quoted paths may contain spaces.
func JarPaths(s string) []string {
	var ret []string
	for _, m := range reJar.FindAllStringSubmatch(s, -1) {
		for _, g := range m[1:] {
			if g != "" {
				ret = append(ret, reOptPrefix.ReplaceAllString(g, ""))
				break
			}
		}
	}
	return ret
}
