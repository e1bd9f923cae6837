//go:build linux

package integration

// pauseCommands returns the media pause commands to try, in order.
// playerctl talks MPRIS and covers most desktop players.
func pauseCommands() []commandSpec {
	return []commandSpec{
		{name: "playerctl", args: []string{"--all-players", "pause"}},
	}
}

// suspendCommand returns the systemd suspend command.
func suspendCommand() commandSpec {
	return commandSpec{name: "systemctl", args: []string{"suspend"}}
}
