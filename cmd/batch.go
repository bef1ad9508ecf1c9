package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vidra-dl/vidra/internal/config"
	"github.com/vidra-dl/vidra/internal/download"
	"github.com/vidra-dl/vidra/utils"
)

type batchEntry struct {
	Link    string `yaml:"link"`
	Dir     string `yaml:"dir,omitempty"`
	Mode    string `yaml:"mode,omitempty"`
	Quality string `yaml:"quality,omitempty"`
	Clip    string `yaml:"clip,omitempty"`
	Cover   bool   `yaml:"cover,omitempty"`
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Download multiple videos listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.New(config.DefaultBaseDir())
			tasks, err := readBatchFile(cfg, args[0])
			if err != nil {
				utils.PrintError(err.Error())
				os.Exit(1)
			}
			if len(tasks) == 0 {
				utils.PrintError("No valid entries found in the batch file")
				os.Exit(1)
			}
			utils.PrintHeader(fmt.Sprintf("Downloading %d tasks", len(tasks)))
			if err := runPool(cfg, tasks); err != nil {
				utils.PrintError("Encountered failed download(s)")
				os.Exit(1)
			}
		},
	}
}

func readBatchFile(cfg config.Config, path string) ([]download.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var entries []batchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}

	defaultDir := outputDir
	if defaultDir == "" {
		defaultDir = cfg.LoadSetting(config.SettingDownloadDir, ".")
	}

	var tasks []download.Task
	for _, entry := range entries {
		if entry.Link == "" {
			utils.PrintWarning("Skipping batch entry with empty link")
			continue
		}
		modeName := entry.Mode
		if modeName == "" {
			modeName = string(download.ModeTogether)
		}
		mode, err := parseMode(modeName)
		if err != nil {
			utils.PrintWarning(fmt.Sprintf("Skipping %s: %v", entry.Link, err))
			continue
		}
		dir := entry.Dir
		if dir == "" {
			dir = defaultDir
		}
		quality := entry.Quality
		if quality == "" {
			quality = qualityFlag
		}
		task := download.NewTask(entry.Link, dir, mode, resolveQuality(quality))
		task.Cover = entry.Cover
		if entry.Clip != "" {
			clip, err := parseClip(entry.Clip)
			if err != nil {
				utils.PrintWarning(fmt.Sprintf("Skipping %s: %v", entry.Link, err))
				continue
			}
			task.Clip = clip
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
