//go:build darwin

package integration

// pauseScript pauses the common macOS players if they are running.
// Guarded per application so a missing app does not fail the script.
const pauseScript = `
if application "Music" is running then tell application "Music" to pause
if application "Spotify" is running then tell application "Spotify" to pause
if application "TV" is running then tell application "TV" to pause
`

// pauseCommands returns the media pause commands to try, in order.
func pauseCommands() []commandSpec {
	return []commandSpec{
		{name: "osascript", args: []string{"-e", pauseScript}},
	}
}

// suspendCommand returns the pmset immediate-sleep command.
func suspendCommand() commandSpec {
	return commandSpec{name: "pmset", args: []string{"sleepnow"}}
}
