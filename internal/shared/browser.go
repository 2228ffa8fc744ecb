package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommands maps GOOS to the command that hands a URL to the desktop.
var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// OpenBrowser opens the default system browser to the specified URL.
func OpenBrowser(url string) error {
	rt := getRuntime()
	args, ok := browserCommands[rt]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	cmd := exec.Command(args[0], append(args[1:], url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
