// Package integration wraps the OS commands Snoozarr shells out to:
// pausing media players and suspending the machine. The actual command
// lines are platform-specific and live in the commands_*.go files.
package integration

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/snoozarr/snoozarr/internal/logger"
)

// commandSpec names an external command with its arguments.
type commandSpec struct {
	name string
	args []string
}

func (c commandSpec) String() string {
	if len(c.args) == 0 {
		return c.name
	}
	return c.name + " " + strings.Join(c.args, " ")
}

// Compile-time assertions
var (
	_ MediaController = (*OSMediaController)(nil)
	_ PowerController = (*OSPowerController)(nil)
)

// OSMediaController pauses media playback by shelling out to the platform's
// player control command (playerctl on Linux, osascript on macOS, a media-key
// injection on Windows).
type OSMediaController struct {
	dryRun bool
}

// NewOSMediaController creates a media controller. With dryRun set, commands
// are logged instead of executed.
func NewOSMediaController(dryRun bool) *OSMediaController {
	return &OSMediaController{dryRun: dryRun}
}

// Pause runs the first available pause command for this platform.
func (c *OSMediaController) Pause() Result {
	specs := pauseCommands()

	if c.dryRun {
		for _, spec := range specs {
			logger.Infof("Dry run: would execute %s", spec)
		}
		return Result{Success: true, Message: "dry run: media pause skipped"}
	}

	for _, spec := range specs {
		path, err := exec.LookPath(spec.name)
		if err != nil {
			logger.Debugf("Media pause command %s not found: %v", spec.name, err)
			continue
		}

		out, err := exec.Command(path, spec.args...).CombinedOutput()
		if err != nil {
			msg := fmt.Sprintf("media pause command failed: %v: %s", err, strings.TrimSpace(string(out)))
			logger.Warnf("%s", msg)
			return Result{Success: false, Message: msg}
		}

		logger.Infof("Media paused via %s", spec.name)
		return Result{Success: true, Message: fmt.Sprintf("media paused via %s", spec.name)}
	}

	msg := "no supported media control command found"
	logger.Warnf("%s", msg)
	return Result{Success: false, Message: msg}
}

// OSPowerController suspends the machine by shelling out to the platform's
// suspend command (systemctl on Linux, pmset on macOS, rundll32 on Windows).
type OSPowerController struct {
	dryRun bool
}

// NewOSPowerController creates a power controller. With dryRun set, commands
// are logged instead of executed.
func NewOSPowerController(dryRun bool) *OSPowerController {
	return &OSPowerController{dryRun: dryRun}
}

// Suspend requests the host to sleep. A successful Result means the command
// was accepted, not that the machine is already asleep.
func (c *OSPowerController) Suspend() Result {
	spec := suspendCommand()

	if c.dryRun {
		logger.Infof("Dry run: would execute %s", spec)
		return Result{Success: true, Message: "dry run: suspend skipped"}
	}

	path, err := exec.LookPath(spec.name)
	if err != nil {
		msg := fmt.Sprintf("suspend command %s not found: %v", spec.name, err)
		logger.Errorf("%s", msg)
		return Result{Success: false, Message: msg}
	}

	out, err := exec.Command(path, spec.args...).CombinedOutput()
	if err != nil {
		msg := fmt.Sprintf("suspend command failed: %v: %s", err, strings.TrimSpace(string(out)))
		logger.Errorf("%s", msg)
		return Result{Success: false, Message: msg}
	}

	logger.Infof("Suspend requested via %s", spec.name)
	return Result{Success: true, Message: "suspend requested"}
}

// ToolStatus reports availability of a platform command at startup.
type ToolStatus struct {
	Name        string `json:"name"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// CheckTools probes the platform commands this build relies on and logs the
// result. Called once at startup so a missing suspend binary is visible
// before the first timer expires.
func CheckTools() []ToolStatus {
	var statuses []ToolStatus

	suspend := suspendCommand()
	statuses = append(statuses, checkTool(suspend.name, true, "suspends the machine when the timer expires"))

	seen := map[string]bool{suspend.name: true}
	for _, spec := range pauseCommands() {
		if seen[spec.name] {
			continue
		}
		seen[spec.name] = true
		statuses = append(statuses, checkTool(spec.name, false, "pauses media playback before suspend"))
	}

	for _, s := range statuses {
		if s.Available {
			logger.Infof("Tool check: %s available at %s", s.Name, s.Path)
		} else if s.Required {
			logger.Warnf("Tool check: required tool %s not found, suspend will fail", s.Name)
		} else {
			logger.Infof("Tool check: optional tool %s not found", s.Name)
		}
	}

	return statuses
}

func checkTool(name string, required bool, description string) ToolStatus {
	status := ToolStatus{
		Name:        name,
		Required:    required,
		Description: description,
	}
	if path, err := exec.LookPath(name); err == nil {
		status.Available = true
		status.Path = path
	}
	return status
}
