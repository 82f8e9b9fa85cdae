package telemetry

import "strings"

// systemNames are infrastructure processes injected into every session pod.
var systemNames = []string{
	"pilot-agent",
	"envoy",
	"ttyd",
	"jupyter-lab",
	"code-server",
	"timeout.py",
	"listener.py",
}

// IsSystemProcess reports whether a process belongs to the pod's
// infrastructure rather than the user's workload.
func IsSystemProcess(name, cmdline string) bool {
	if name == "sh" {
		return true
	}
	for _, s := range systemNames {
		if name == s || strings.Contains(cmdline, s) {
			return true
		}
	}
	return false
}
