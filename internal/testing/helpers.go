package testing

import (
	"time"

	"pkdindustries/warden/internal/config"
)

// DefaultTestConfig returns a minimal configuration for testing
func DefaultTestConfig() *config.Configuration {
	return &config.Configuration{
		Server: &config.ServerConfig{
			Nick:    "testbot",
			Server:  "irc.test.local",
			Port:    6667,
			Channel: "#test",
			SSL:     false,
		},
		Bot: &config.BotConfig{
			AdminOverride: "",
			Verbose:       false,
			QueryTimeout:  time.Second * 30,
		},
		Store: &config.StoreConfig{
			Archive: "archive",
		},
		Auth: &config.AuthConfig{
			LoginPenalty: time.Second * 20,
		},
	}
}
