package cmd

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vidra-dl/vidra/internal/config"
	"github.com/vidra-dl/vidra/internal/cookies"
	"github.com/vidra-dl/vidra/internal/download"
	"github.com/vidra-dl/vidra/utils"
)

func newManager(cfg config.Config) *cookies.Manager {
	cache := cookies.NewCache(cfg.CachePath)
	service := cookies.NewService(cache, cfg.CookieJarPath, cookies.DefaultStrategies(cfg))
	return cookies.NewManager(service, cfg.CookieJarPath)
}

// runPool drives all tasks through the download pool, streaming progress
// to the terminal, and returns an error when any task failed.
func runPool(cfg config.Config, tasks []download.Task) error {
	if len(tasks) == 0 {
		return fmt.Errorf("no tasks to download")
	}

	manager := newManager(cfg)
	downloader := download.New(cfg, manager, func() bool { return !requireCookies })
	pool := download.NewPool(context.Background(), downloader, workers)

	var failures atomic.Int64
	var authFailures atomic.Int64
	pool.OnProgress = func(index int, p download.Progress) {
		switch p.Status {
		case download.StatusDownloading, download.StatusConverting:
			utils.PrintStream(fmt.Sprintf("[%d] %s", index, p.Message))
		case download.StatusPending:
			utils.PrintDetail(fmt.Sprintf("[%d] %s", index, p.Message))
		}
	}
	pool.OnResult = func(r download.Result) {
		switch r.Status {
		case download.ResultSuccess:
			utils.PrintSuccess(fmt.Sprintf("%s [%d] done", utils.StyleSymbols["pass"], r.Index))
		default:
			failures.Add(1)
			if r.Status == download.ResultAuthError {
				authFailures.Add(1)
			}
			utils.PrintError(fmt.Sprintf("%s [%d] %s: %s", utils.StyleSymbols["fail"], r.Index, r.Status, r.Message))
		}
	}
	pool.OnStatus = func(active, queued int) {
		logger := utils.GetLogger("cli")
		logger.Debug().Int("active", active).Int("queued", queued).Msg("pool status")
	}

	pool.AddTasks(tasks)
	pool.Wait()

	_ = cfg.SaveSetting(config.SettingDownloadDir, tasks[0].Dir)

	if authFailures.Load() > 0 {
		utils.PrintWarning("Some downloads failed authentication, try: vidra cookies refresh")
	}
	if failures.Load() > 0 {
		return fmt.Errorf("%d of %d tasks failed", failures.Load(), len(tasks))
	}
	return nil
}
