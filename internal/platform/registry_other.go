//go:build !windows

package platform

import "github.com/ardent-labs/sleuth/internal/model"

type noRegistry struct{}

// SystemRegistry returns the registry of the running system, which only
// exists on Windows.
func SystemRegistry() Registry {
	return noRegistry{}
}

func (noRegistry) Subkeys(Hive, string) ([]string, error) {
	return nil, model.ErrUnsupported
}

func (noRegistry) Values(Hive, string) ([]RegistryValue, error) {
	return nil, model.ErrUnsupported
}

func (noRegistry) String(Hive, string, string) (string, error) {
	return "", model.ErrUnsupported
}
