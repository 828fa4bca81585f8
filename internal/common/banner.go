package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	build := GetBuild()

	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("WORKFLOW SCHEDULER")
	b.PrintCenteredText("Whole-Slide Image Analysis Job Scheduler")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Build", build, 15)
	b.PrintKeyValue("Service URL", serviceURL, 15)
	b.PrintKeyValue("Max Workers", fmt.Sprintf("%d", config.Scheduler.MaxWorkers), 15)
	b.PrintKeyValue("Active Users", fmt.Sprintf("%d", config.Scheduler.MaxActiveUsers), 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("service_url", serviceURL).
		Int("max_workers", config.Scheduler.MaxWorkers).
		Int("max_active_users", config.Scheduler.MaxActiveUsers).
		Msg("Application started")
}
