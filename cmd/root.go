package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vidra-dl/vidra/internal/config"
	"github.com/vidra-dl/vidra/internal/download"
	"github.com/vidra-dl/vidra/utils"
)

var (
	outputDir      string
	modeFlag       string
	qualityFlag    string
	clipFlag       string
	coverFlag      bool
	workers        int
	requireCookies bool
	debug          bool
)

var VidraVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "vidra [URL]",
	Short:   "Vidra is a cookie-aware concurrent video downloader",
	Version: VidraVersion,
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		cfg := config.New(config.DefaultBaseDir())
		task, err := buildTask(cfg, args[0])
		if err != nil {
			utils.PrintError(err.Error())
			os.Exit(1)
		}
		if err := runPool(cfg, []download.Task{task}); err != nil {
			utils.PrintError("Encountered failed download(s)")
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildTask(cfg config.Config, url string) (download.Task, error) {
	mode, err := parseMode(modeFlag)
	if err != nil {
		return download.Task{}, err
	}

	dir := outputDir
	if dir == "" {
		dir = cfg.LoadSetting(config.SettingDownloadDir, ".")
	}

	task := download.NewTask(url, dir, mode, resolveQuality(qualityFlag))
	task.Cover = coverFlag
	if clipFlag != "" {
		clip, err := parseClip(clipFlag)
		if err != nil {
			return download.Task{}, err
		}
		task.Clip = clip
	}
	return task, nil
}

// parseMode validates a download mode name.
func parseMode(name string) (download.Mode, error) {
	mode := download.Mode(name)
	switch mode {
	case download.ModeAudio, download.ModeVideo, download.ModeTogether, download.ModeNone:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid mode %q (audio, video, together, none)", name)
	}
}

// resolveQuality maps a known quality name to its format selector and
// passes anything else through as a raw yt-dlp selector.
func resolveQuality(name string) string {
	if selector, ok := download.QualitySelectors[name]; ok {
		return selector
	}
	return name
}

// parseClip parses a "START-END" window in seconds.
func parseClip(window string) (*download.ClipWindow, error) {
	startStr, endStr, found := strings.Cut(window, "-")
	if !found {
		return nil, fmt.Errorf("invalid clip %q, expected START-END seconds", window)
	}
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return nil, fmt.Errorf("invalid clip start %q", startStr)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return nil, fmt.Errorf("invalid clip end %q", endStr)
	}
	if end <= start {
		return nil, fmt.Errorf("clip end must be after start")
	}
	return &download.ClipWindow{Start: start, End: end}, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to the last used one)")
	rootCmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", "together", "Download mode: audio, video, together, none (cover only)")
	rootCmd.PersistentFlags().StringVarP(&qualityFlag, "quality", "q", "auto", "Quality: auto, 720p, 1080p, 2160p, or a raw format selector")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", download.DefaultConcurrency, "Number of parallel downloads")
	rootCmd.PersistentFlags().BoolVar(&coverFlag, "cover", false, "Also download the video thumbnail")
	rootCmd.PersistentFlags().StringVar(&clipFlag, "clip", "", "Clip window in seconds, e.g. 30-90")
	rootCmd.PersistentFlags().BoolVar(&requireCookies, "require-cookies", false, "Abort instead of downloading unauthenticated when no cookies are found")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCookiesCmd())
}
