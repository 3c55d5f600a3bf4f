package model

import "time"

// Process is one entry of a process listing. Fields a listing method cannot
// provide are left zero.
type Process struct {
	PID     int32     `json:"pid"`
	PPID    int32     `json:"ppid,omitempty"`
	Name    string    `json:"name"`
	Exe     string    `json:"exe,omitempty"`
	Cmdline string    `json:"cmdline,omitempty"`
	Started time.Time `json:"started,omitzero"`
}
