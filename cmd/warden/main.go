package main

// __        __            _
// \ \      / /_ _ _ __ __| | ___ _ __
//  \ \ /\ / / _` | '__/ _` |/ _ \ '_ \
//   \ V  V / (_| | | | (_| |  __/ | | |
//    \_/\_/ \__,_|_|  \__,_|\___|_| |_|
//  .  .  .  the  doorman  never  sleeps

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mazznoer/colorgrad"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"pkdindustries/warden/internal/bot"
	"pkdindustries/warden/internal/config"
)

func main() {
	fmt.Printf("%s\n", getBanner())

	cmd := &cli.Command{
		Name:    "warden",
		Usage:   "the doorman never sleeps",
		Version: bot.Version + " - http://github.com/pkdindustries/warden",
		Flags:   config.GetFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.NewConfiguration(c)
			if cfg.Bot.Verbose {
				cfg.PrintConfig()
			}
			return bot.Run(ctx, cfg)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		// Print to stderr first in case logger isn't initialized
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		zap.S().Fatal(err)
	}
}

func getBanner() string {
	banner := `
__        __            _
\ \      / /_ _ _ __ __| | ___ _ __
 \ \ /\ / / _' | '__/ _' |/ _ \ '_ \
  \ V  V / (_| | | | (_| |  __/ | | |
   \_/\_/ \__,_|_|  \__,_|\___|_| |_|
 .  .  .  the  doorman  never  sleeps  [v` + bot.Version + `]
`
	grad, _ := colorgrad.NewGradient().
		HtmlColors("#1115f0ff", "#fdfdfdff").
		Build()

	lines := strings.Split(banner, "\n")

	// Find max line length for gradient spread
	maxLen := 0
	for _, line := range lines {
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}

	colors := grad.Colors(uint(maxLen))
	var coloredBanner strings.Builder

	for _, line := range lines {
		for i, ch := range line {
			r, g, b, _ := colors[i].RGBA255()
			coloredBanner.WriteString(fmt.Sprintf("\x1b[38;2;%d;%d;%dm%c", r, g, b, ch))
		}
		coloredBanner.WriteString("\x1b[0m\n")
	}

	return coloredBanner.String()
}
