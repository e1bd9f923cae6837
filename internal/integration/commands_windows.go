//go:build windows

package integration

// pauseCommands returns the media pause commands to try, in order.
// There is no universal player API on Windows, so the play/pause media key
// (virtual key 179) is injected via WScript.Shell.
func pauseCommands() []commandSpec {
	return []commandSpec{
		{name: "powershell", args: []string{
			"-NoProfile", "-Command",
			"(New-Object -ComObject WScript.Shell).SendKeys([char]179)",
		}},
	}
}

// suspendCommand returns the powrprof suspend call.
func suspendCommand() commandSpec {
	return commandSpec{name: "rundll32.exe", args: []string{"powrprof.dll,SetSuspendState", "0", "1", "0"}}
}
