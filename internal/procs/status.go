package procs

import "strings"

// Status is the normalized scheduler state of a process. OS-specific states
// the table below does not know map to StatusUnknown.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSleeping  Status = "sleeping"
	StatusStopped   Status = "stopped"
	StatusZombie    Status = "zombie"
	StatusDiskSleep Status = "disk-sleep"
	StatusIdle      Status = "idle"
	StatusWaiting   Status = "waiting"
	StatusLocked    Status = "locked"
	StatusDead      Status = "dead"
	StatusUnknown   Status = "unknown"
)

var statusNames = map[string]Status{
	"r": StatusRunning, "running": StatusRunning,
	"s": StatusSleeping, "sleep": StatusSleeping, "sleeping": StatusSleeping,
	"t": StatusStopped, "stop": StatusStopped, "stopped": StatusStopped, "tracing-stop": StatusStopped,
	"z": StatusZombie, "zombie": StatusZombie,
	"d": StatusDiskSleep, "u": StatusDiskSleep, "blocked": StatusDiskSleep, "disk-sleep": StatusDiskSleep,
	"i": StatusIdle, "idle": StatusIdle,
	"w": StatusWaiting, "wait": StatusWaiting, "waiting": StatusWaiting,
	"l": StatusLocked, "lock": StatusLocked, "locked": StatusLocked,
	"x": StatusDead, "dead": StatusDead,
}

// ParseStatus maps a raw OS status (a ps-style letter or a gopsutil word)
// onto Status.
func ParseStatus(raw string) Status {
	if s, ok := statusNames[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}

func parseStatusList(raw []string) Status {
	if len(raw) == 0 {
		return StatusUnknown
	}
	return ParseStatus(raw[0])
}
