package parse_test

import (
	"testing"
	"time"

	"github.com/ardent-labs/sleuth/internal/parse"
	"github.com/stretchr/testify/require"
)

func TestTime(t *testing.T) {
	t.Parallel()
	want := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	for _, given := range []string{
		"2026-10-17T10:00:00+02:00",
		"2026-10-17T10:00:00,000000+02:00",
		"2026-10-17T10:00:00+0200",
		"2026-10-17T10:00:00.0000000+02:00",
		"2026-10-17 10:00:00.000000+0200",
	} {
		got, ok := parse.Time(given)
		require.True(t, ok, given)
		require.True(t, want.Equal(got), given)
	}
	_, ok := parse.Time("yesterday")
	require.False(t, ok)
}

func TestLinuxUSB(t *testing.T) {
	t.Parallel()
	events := parse.LogLines(
		"2026-10-17T10:00:00,123456+02:00 usb 1-1: new high-speed USB device number 5 using xhci_hcd\n" +
			"2026-10-17T10:05:00,000000+02:00 usb 1-1: USB disconnect, device number 5\n" +
			"2026-10-17T10:06:00+0200 host kernel: usb 3-2.1: USB disconnect, device number 9\n" +
			"[ 12.345] usb 2-1: USB disconnect, device number 2\n")
	require.Len(t, events, 3)

	devs := parse.LinuxUSB(events)
	require.Len(t, devs, 2)
	require.Equal(t, "usb 1-1 (device 5)", devs[0].Device)
	require.True(t, time.Date(2026, 10, 17, 8, 5, 0, 0, time.UTC).Equal(devs[0].Time))
	require.Equal(t, "usb 3-2.1 (device 9)", devs[1].Device)
}

func TestDarwinUSB(t *testing.T) {
	t.Parallel()
	events := parse.LogLines(
		"2026-10-17 10:00:00.123456+0200  0x1f4  Default  0x0  0  kernel: USB device Kingston DataTraveler@14100000 terminated\n" +
			"2026-10-17 10:01:00.000000+0200  0x1f4  Default  0x0  0  kernel: USB device Keyboard@14200000 attached\n")
	require.Len(t, events, 2)
	devs := parse.DarwinUSB(events)
	require.Len(t, devs, 1)
	require.Equal(t, "Kingston DataTraveler", devs[0].Device)
}

func TestWindowsUSB(t *testing.T) {
	t.Parallel()
	events := parse.EventRecords(
		`2026-10-17T10:00:00.0000000+02:00|Device USB\VID_0781&PID_5581\4C530001 was deleted.` + "\n" +
			`2026-10-17T10:01:00.0000000+02:00|Device SWD\PRINTENUM\{1} was deleted.` + "\n" +
			"not a record\n")
	require.Len(t, events, 2)
	devs := parse.WindowsUSB(events)
	require.Len(t, devs, 1)
	require.Equal(t, `VID_0781&PID_5581\4C530001`, devs[0].Device)
}

func TestDeletedObject(t *testing.T) {
	t.Parallel()
	name, ok := parse.DeletedObject("An attempt was made to access an object. Object Server: Security Object Type: File Object Name: C:\\Users\\x\\Desktop\\ghost.jar Handle ID: 0x1a4 Accesses: DELETE")
	require.True(t, ok)
	require.Equal(t, `C:\Users\x\Desktop\ghost.jar`, name)

	_, ok = parse.DeletedObject("Object Name: - Handle ID: 0x0")
	require.False(t, ok)
}
