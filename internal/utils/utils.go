package utils

import "os"

// Home returns the swp home directory of the current user without a trailing
// slash, creating it on first use.
func Home() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	home += "/.swp"

	if customHome := os.Getenv("SWP_HOME"); customHome != "" {
		home = customHome
	}

	if _, err := os.Stat(home); err != nil {
		if os.IsNotExist(err) {
			perm := os.FileMode(0o700)
			err := os.Mkdir(home, perm)
			if err != nil {
				return "", err
			}
		} else {
			return "", err
		}
	}

	return home, nil
}
