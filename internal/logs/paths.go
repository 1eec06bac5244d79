package logs

import (
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the OS-standard log directory for ipiped:
// %LOCALAPPDATA%\ipiped\logs on Windows, ~/Library/Logs/ipiped on macOS and
// the XDG state dir on Linux.
func Dir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		return windowsDir()
	case "darwin":
		return darwinDir()
	default:
		return linuxDir()
	}
}

func windowsDir() (string, error) {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return fallbackDir()
		}
		localAppData = filepath.Join(userProfile, "AppData", "Local")
	}
	return filepath.Join(localAppData, "ipiped", "logs"), nil
}

func darwinDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return fallbackDir()
	}
	return filepath.Join(home, "Library", "Logs", "ipiped"), nil
}

func linuxDir() (string, error) {
	if os.Getuid() == 0 {
		return "/var/log/ipiped", nil
	}
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fallbackDir()
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "ipiped", "logs"), nil
}

func fallbackDir() (string, error) {
	return filepath.Join(os.TempDir(), "ipiped", "logs"), nil
}
