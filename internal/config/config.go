package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	Server *ServerConfig
	Bot    *BotConfig
	Store  *StoreConfig
	Auth   *AuthConfig
}

type ServerConfig struct {
	Nick        string
	Server      string
	Port        int
	Channel     string
	SSL         bool
	TLSInsecure bool
	SASLNick    string
	SASLPass    string
}

type BotConfig struct {
	AdminOverride string
	Verbose       bool
	QueryTimeout  time.Duration
}

type StoreConfig struct {
	Archive string
}

type AuthConfig struct {
	LoginPenalty time.Duration
}

// YamlSource implements cli.ValueSource for a map loaded from YAML
type YamlSource struct {
	data map[string]any
	key  string
}

func (y *YamlSource) Lookup() (string, bool) {
	if v, ok := y.data[y.key]; ok {
		// Handle slices by joining with comma
		if slice, ok := v.([]any); ok {
			var strs []string
			for _, item := range slice {
				strs = append(strs, fmt.Sprintf("%v", item))
			}
			return strings.Join(strs, ","), true
		}
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

func (y *YamlSource) String() string { return "yaml" }
func (y *YamlSource) GoString() string { return "yaml" }

func GetFlags() []cli.Flag {
	// Pre-parse config path
	configPath := getConfigPath()
	var configData map[string]any
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			_ = yaml.Unmarshal(data, &configData)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", configPath, err)
		}
	}

	// Helper to create sources: EnvVar > YAML > Default
	src := func(key string, env ...string) cli.ValueSourceChain {
		chain := cli.ValueSourceChain{}
		for _, e := range env {
			chain.Chain = append(chain.Chain, cli.EnvVar(e))
		}
		if configData != nil {
			chain.Chain = append(chain.Chain, &YamlSource{data: configData, key: key})
		}
		return chain
	}

	return []cli.Flag{
		// Config file
		&cli.StringFlag{Name: "config", Aliases: []string{"b"}, Usage: "use the named configuration file", Sources: cli.EnvVars("WARDEN_CONFIG")},

		// IRC Client Configuration
		&cli.StringFlag{Name: "nick", Aliases: []string{"n"}, Value: "warden", Usage: "bot's nickname on the irc server", Sources: src("nick", "WARDEN_NICK")},
		&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Value: "localhost", Usage: "irc server address", Sources: src("server", "WARDEN_SERVER")},
		&cli.BoolFlag{Name: "tls", Aliases: []string{"e"}, Usage: "enable TLS for the IRC connection", Sources: src("tls", "WARDEN_TLS")},
		&cli.BoolFlag{Name: "tlsinsecure", Usage: "skip TLS certificate verification", Sources: src("tlsinsecure", "WARDEN_TLSINSECURE")},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 6667, Usage: "irc server port", Sources: src("port", "WARDEN_PORT")},
		&cli.StringFlag{Name: "channel", Aliases: []string{"c"}, Usage: "irc channel to join", Sources: src("channel", "WARDEN_CHANNEL")},
		&cli.StringFlag{Name: "saslnick", Usage: "nick used for SASL", Sources: src("saslnick", "WARDEN_SASLNICK")},
		&cli.StringFlag{Name: "saslpass", Usage: "password for SASL plain", Sources: src("saslpass", "WARDEN_SASLPASS")},

		// Bot Configuration
		&cli.StringFlag{Name: "adminoverride", Aliases: []string{"a"}, Usage: "nickname granted admin unconditionally, used to bootstrap the first admin", Sources: src("adminoverride", "WARDEN_ADMINOVERRIDE")},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "enable verbose logging of sessions and configuration", Sources: src("verbose", "WARDEN_VERBOSE")},
		&cli.DurationFlag{Name: "querytimeout", Aliases: []string{"t"}, Value: time.Second * 30, Usage: "deadline for pending NAMES/WHO queries", Sources: src("querytimeout", "WARDEN_QUERYTIMEOUT")},

		// Identity archive
		&cli.StringFlag{Name: "archive", Value: "archive", Usage: "directory holding persistent user records", Sources: src("archive", "WARDEN_ARCHIVE")},

		// Auth behavior
		&cli.DurationFlag{Name: "loginpenalty", Value: time.Second * 20, Usage: "penalty window applied after a failed login attempt", Sources: src("loginpenalty", "WARDEN_LOGINPENALTY")},
	}
}

func getConfigPath() string {
	// Check env first
	if v := os.Getenv("WARDEN_CONFIG"); v != "" {
		return v
	}
	// Check args
	for i, arg := range os.Args {
		if arg == "--config" || arg == "-b" {
			if i+1 < len(os.Args) {
				return os.Args[i+1]
			}
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

func (c *Configuration) PrintConfig() {
	fmt.Printf("nick: %s\n", c.Server.Nick)
	fmt.Printf("server: %s\n", c.Server.Server)
	fmt.Printf("port: %d\n", c.Server.Port)
	fmt.Printf("channel: %s\n", c.Server.Channel)
	fmt.Printf("tls: %t\n", c.Server.SSL)
	fmt.Printf("tlsinsecure: %t\n", c.Server.TLSInsecure)
	fmt.Printf("saslnick: %s\n", c.Server.SASLNick)
	fmt.Printf("adminoverride: %s\n", c.Bot.AdminOverride)
	fmt.Printf("verbose: %t\n", c.Bot.Verbose)
	fmt.Printf("querytimeout: %s\n", c.Bot.QueryTimeout)
	fmt.Printf("archive: %s\n", c.Store.Archive)
	fmt.Printf("loginpenalty: %s\n", c.Auth.LoginPenalty)
}

func NewConfiguration(c *cli.Command) *Configuration {
	if c.IsSet("config") {
		zap.S().Infow("Using config file", "path", c.String("config"))
	}

	config := &Configuration{
		Server: &ServerConfig{
			Nick:        c.String("nick"),
			Server:      c.String("server"),
			Port:        c.Int("port"),
			Channel:     c.String("channel"),
			SSL:         c.Bool("tls"),
			TLSInsecure: c.Bool("tlsinsecure"),
			SASLNick:    c.String("saslnick"),
			SASLPass:    c.String("saslpass"),
		},
		Bot: &BotConfig{
			AdminOverride: c.String("adminoverride"),
			Verbose:       c.Bool("verbose"),
			QueryTimeout:  c.Duration("querytimeout"),
		},
		Store: &StoreConfig{
			Archive: c.String("archive"),
		},
		Auth: &AuthConfig{
			LoginPenalty: c.Duration("loginpenalty"),
		},
	}

	return config
}
