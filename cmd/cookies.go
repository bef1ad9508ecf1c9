package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidra-dl/vidra/internal/config"
	"github.com/vidra-dl/vidra/internal/cookies"
	"github.com/vidra-dl/vidra/utils"
)

func newCookiesCmd() *cobra.Command {
	cookiesCmd := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect and refresh the browser cookie jar",
	}

	cookiesCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current cookie state",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.New(config.DefaultBaseDir())
			manager := newManager(cfg)
			printStatus(manager.Status(context.Background()))
			if manager.JarExists() {
				utils.PrintDetail("Jar: " + manager.JarPath())
			}
		},
	})

	cookiesCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Force a fresh cookie extraction, bypassing the cache",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.New(config.DefaultBaseDir())
			manager := newManager(cfg)
			utils.PrintInfo("Extracting cookies, this can take a few seconds...")
			printStatus(manager.TryAutoFetch(context.Background()))
		},
	})

	cookiesCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Clear the cookie cache and memoized state",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.New(config.DefaultBaseDir())
			newManager(cfg).Reset()
			utils.PrintSuccess("Cookie cache cleared")
		},
	})

	return cookiesCmd
}

func printStatus(status cookies.Status) {
	switch status.State {
	case cookies.StateFresh:
		utils.PrintSuccess(fmt.Sprintf("%s Cookies fresh (%.1fh old, source %s)", utils.StyleSymbols["pass"], status.AgeHours, status.Source))
	case cookies.StateStale:
		utils.PrintWarning(fmt.Sprintf("%s Cookies stale (%.1fh old), refresh recommended", utils.StyleSymbols["warning"], status.AgeHours))
	case cookies.StateAutoFetched:
		utils.PrintSuccess(fmt.Sprintf("%s Cookies fetched via %s", utils.StyleSymbols["pass"], status.Source))
	default:
		utils.PrintError(fmt.Sprintf("%s No cookies found: %s", utils.StyleSymbols["fail"], status.Error))
		fmt.Println()
		utils.PrintDetail(cookies.ManualGuide())
	}
}
