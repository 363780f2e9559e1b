package env

import (
	"os"
	"path/filepath"
)

// (default: %USERPROFILE%/.frp-manager on Windows, $HOME/.frp-manager on Linux)
var DataDir string = GetDataDir()

/**
 * Get manager data directory path
 * @returns {string} Returns FRPM_HOME when set, otherwise ~/.frp-manager
 */
func GetDataDir() string {
	if dir := os.Getenv("FRPM_HOME"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(homeDir, ".frp-manager")
}
