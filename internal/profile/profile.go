// Package profile loads endpoint settings from a yaml file so demo runs do
// not need a wall of flags.
package profile

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Profile holds the tunable parameters of an SWP endpoint.
type Profile struct {
	SlowStart        bool          `yaml:"slowStart"`
	FastRetransmit   bool          `yaml:"fastRetransmit"`
	Threshold        float64       `yaml:"threshold"`
	BufferSize       int           `yaml:"bufferSize"`
	WindowSize       int           `yaml:"windowSize"`
	ReadTimeout      time.Duration `yaml:"readTimeout"`
	TransmitDelay    time.Duration `yaml:"transmitDelay"`
	PropagationDelay time.Duration `yaml:"propagationDelay"`
	CwndLog          string        `yaml:"cwndLog"`
}

// Default returns the profile used when no file is given.
func Default() Profile {
	return Profile{
		SlowStart:        true,
		Threshold:        50,
		BufferSize:       5000,
		WindowSize:       1000,
		ReadTimeout:      50 * time.Millisecond,
		TransmitDelay:    10 * time.Millisecond,
		PropagationDelay: 10 * time.Millisecond,
	}
}

// Load reads a profile file, filling unset fields from the defaults.
func Load(path string) (Profile, error) {
	profile := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return profile, err
	}
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return profile, err
	}
	return profile, nil
}
