//go:build windows

package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

type systemRegistry struct{}

// SystemRegistry returns the registry of the running system
func SystemRegistry() Registry {
	return systemRegistry{}
}

func root(h Hive) (registry.Key, error) {
	switch h {
	case CurrentUser:
		return registry.CURRENT_USER, nil
	case LocalMachine:
		return registry.LOCAL_MACHINE, nil
	}
	return 0, fmt.Errorf("unknown hive %d", h)
}

func open(h Hive, path string, access uint32) (registry.Key, error) {
	r, err := root(h)
	if err != nil {
		return 0, err
	}
	k, err := registry.OpenKey(r, path, access)
	if err != nil {
		return 0, fmt.Errorf("open %s\\%s: %w", h, path, err)
	}
	return k, nil
}

func (systemRegistry) Subkeys(h Hive, path string) ([]string, error) {
	k, err := open(h, path, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	return k.ReadSubKeyNames(0)
}

func (systemRegistry) Values(h Hive, path string) ([]RegistryValue, error) {
	k, err := open(h, path, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, err
	}
	ret := make([]RegistryValue, 0, len(names))
	for _, name := range names {
		if b, _, err := k.GetBinaryValue(name); err == nil {
			ret = append(ret, RegistryValue{Name: name, Data: b})
			continue
		} else if !errors.Is(err, registry.ErrUnexpectedType) {
			continue
		}
		if s, _, err := k.GetStringValue(name); err == nil {
			ret = append(ret, RegistryValue{Name: name, Text: s})
		}
	}
	return ret, nil
}

func (systemRegistry) String(h Hive, path, name string) (string, error) {
	k, err := open(h, path, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()
	s, _, err := k.GetStringValue(name)
	return s, err
}
