package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/askdb/askdb/internal/model"
)

// Profile is one named connection entry in the connections file.
type Profile struct {
	Driver   string `yaml:"driver"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// connectionsFile is the on-disk shape of connections.yaml.
type connectionsFile struct {
	Connections map[string]Profile `yaml:"connections"`
}

// LoadProfiles reads named connection profiles from a YAML file. A missing
// file is not an error; it yields an empty map.
func LoadProfiles(path string) (map[string]model.ConnectionParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.ConnectionParams{}, nil
		}
		return nil, fmt.Errorf("read connections file: %w", err)
	}

	var file connectionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse connections file: %w", err)
	}

	profiles := make(map[string]model.ConnectionParams, len(file.Connections))
	for name, p := range file.Connections {
		profiles[name] = model.ConnectionParams{
			Driver:   p.Driver,
			User:     p.User,
			Password: p.Password,
			Host:     p.Host,
			Port:     p.Port,
			Database: p.Database,
		}.Normalize()
	}
	return profiles, nil
}
