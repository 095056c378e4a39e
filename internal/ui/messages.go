// Package ui provides TUI view messages shared between components.
package ui

import "github.com/xiaofanforfabric/headlessmc/internal/core"

// Navigation messages
type (
	// NavigateToHome returns to the home prompt. Status or Err (at most one)
	// is shown on the status line.
	NavigateToHome struct {
		Status string
		Err    error
	}

	// NavigateToLogin starts an interactive Yggdrasil login. Args are the
	// words after the "login" command.
	NavigateToLogin struct {
		Args []string
	}

	// NavigateToLaunch runs the launch pre-flight check.
	NavigateToLaunch struct {
		Offline bool
	}
)

// Action messages
type (
	// LaunchReady is sent when pre-flight resolved the account to launch
	// with. The actual process launch is handled outside this subsystem.
	LaunchReady struct {
		Account *core.LaunchAccount
	}
)
