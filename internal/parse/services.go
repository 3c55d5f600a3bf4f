package parse

import (
	"strconv"
	"strings"
)

// Service is the state of a system service as reported by the service manager
type Service struct {
	Name    string
	Running bool
	// State is the raw state word of the service manager: running, dead,
	// failed, Stopped, exit status ...
	State   string
	Enabled *bool
}

// SystemctlUnits parses `systemctl list-units --type=service --all --plain
// --no-legend --no-pager`. Names are returned without the .service suffix.
func SystemctlUnits(out string) []Service {
	var ret []Service
	for line := range strings.Lines(out) {
		fields := strings.Fields(strings.TrimLeft(line, "●* "))
		if len(fields) < 4 || !strings.HasSuffix(fields[0], ".service") {
			continue
		}
		ret = append(ret, Service{
			Name:    strings.TrimSuffix(fields[0], ".service"),
			Running: fields[3] == "running",
			State:   fields[2] + "/" + fields[3],
		})
	}
	return ret
}

// SystemctlUnitFiles parses `systemctl list-unit-files --type=service
// --no-legend --no-pager` into name -> enabled.
func SystemctlUnitFiles(out string) map[string]bool {
	ret := make(map[string]bool)
	for line := range strings.Lines(out) {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasSuffix(fields[0], ".service") {
			continue
		}
		name := strings.TrimSuffix(fields[0], ".service")
		switch fields[1] {
		case "enabled", "enabled-runtime", "static", "alias", "indirect", "generated":
			ret[name] = true
		case "disabled", "masked", "masked-runtime":
			ret[name] = false
		}
	}
	return ret
}

// Launchctl parses `launchctl list`. A "-" PID means the job is loaded but
// not running.
func Launchctl(out string) []Service {
	var ret []Service
	for line := range strings.Lines(out) {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] == "PID" {
			continue
		}
		svc := Service{Name: fields[2]}
		if _, err := strconv.Atoi(fields[0]); err == nil {
			svc.Running = true
			svc.State = "running"
		} else {
			svc.State = "exit status " + fields[1]
		}
		ret = append(ret, svc)
	}
	return ret
}

// WindowsServices converts the rows of `Get-Service | Select-Object
// Name,Status,StartType | ConvertTo-Csv` into services.
func WindowsServices(rows []map[string]string) []Service {
	ret := make([]Service, 0, len(rows))
	for _, row := range rows {
		name := row["Name"]
		if name == "" {
			continue
		}
		svc := Service{
			Name:    name,
			State:   row["Status"],
			Running: strings.EqualFold(row["Status"], "Running"),
		}
		if st := row["StartType"]; st != "" {
			enabled := !strings.EqualFold(st, "Disabled")
			svc.Enabled = &enabled
		}
		ret = append(ret, svc)
	}
	return ret
}
