package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"strconv"
)

const Name = "markodon"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host          string
		HttpPort      int    `yaml:"httpPort"`
		Domain        string `yaml:"domain"`
		Username      string `yaml:"username"`
		DisplayName   string `yaml:"displayName"`
		Summary       string `yaml:"summary"`
		AvatarURL     string `yaml:"avatarUrl"`
		WithAp        bool   `yaml:"withAp"`
		AdminPassword string `yaml:"adminPassword"`
		DbFile        string `yaml:"dbFile"`
	}
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	var buf []byte
	var err error

	// Try to read from resolved path
	buf, err = os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		// Try to write default config to user config directory
		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("MARKODON_HOST")
	envHttpPort := os.Getenv("MARKODON_HTTPPORT")
	envDomain := os.Getenv("MARKODON_DOMAIN")
	envUsername := os.Getenv("MARKODON_USERNAME")
	envWithAp := os.Getenv("MARKODON_WITH_AP")
	envAdminPassword := os.Getenv("MARKODON_ADMIN_PASSWORD")
	envDbFile := os.Getenv("MARKODON_DBFILE")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envDomain != "" {
		c.Conf.Domain = envDomain
	}

	if envUsername != "" {
		c.Conf.Username = envUsername
	}

	if envWithAp == "true" {
		c.Conf.WithAp = true
	}

	if envAdminPassword != "" {
		c.Conf.AdminPassword = envAdminPassword
	}

	if envDbFile != "" {
		c.Conf.DbFile = envDbFile
	}

	return c, nil
}
