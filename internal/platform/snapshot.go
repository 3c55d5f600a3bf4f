package platform

import (
	"context"
	"time"

	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/shirou/gopsutil/v4/process"
)

// Snapshot lists the running processes through gopsutil. Processes which
// exit or deny access while being inspected keep the fields read so far.
func Snapshot(ctx context.Context) ([]model.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]model.Process, 0, len(procs))
	for _, p := range procs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		mp := model.Process{PID: p.Pid}
		mp.Name, _ = p.NameWithContext(ctx)
		mp.Exe, _ = p.ExeWithContext(ctx)
		mp.Cmdline, _ = p.CmdlineWithContext(ctx)
		mp.PPID, _ = p.PpidWithContext(ctx)
		if ms, err := p.CreateTimeWithContext(ctx); err == nil && ms > 0 {
			mp.Started = time.UnixMilli(ms).UTC()
		}
		ret = append(ret, mp)
	}
	return ret, nil
}

// PIDExists reports whether a process with pid is running
func PIDExists(ctx context.Context, pid int32) (bool, error) {
	return process.PidExistsWithContext(ctx, pid)
}
