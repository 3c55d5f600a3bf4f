package platform

// Hive is a registry root key
type Hive int

const (
	CurrentUser Hive = iota
	LocalMachine
)

func (h Hive) String() string {
	switch h {
	case CurrentUser:
		return "HKCU"
	case LocalMachine:
		return "HKLM"
	}
	return "unknown"
}

// RegistryValue is a registry value. Data holds REG_BINARY contents, Text
// holds REG_SZ and REG_EXPAND_SZ contents. Values of other types are skipped.
type RegistryValue struct {
	Name string
	Data []byte
	Text string
}

// Registry is the read only subset of the Windows registry the probes need
type Registry interface {
	Subkeys(hive Hive, path string) ([]string, error)
	Values(hive Hive, path string) ([]RegistryValue, error)
	String(hive Hive, path, name string) (string, error)
}
