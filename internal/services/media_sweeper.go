package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"org-dashboard/internal/gateway"

	"github.com/robfig/cron/v3"
)

// MediaSweeper removes movie folders that no movie row points to. Such
// folders are left behind when an upload or a delete fails half way.
type MediaSweeper struct {
	gw   *gateway.Gateway
	cron *cron.Cron
}

func NewMediaSweeper(gw *gateway.Gateway) *MediaSweeper {
	return &MediaSweeper{
		gw:   gw,
		cron: cron.New(cron.WithSeconds()),
	}
}

// Start runs Sweep on the given six-field cron schedule until Stop.
func (m *MediaSweeper) Start(schedule string) error {
	_, err := m.cron.AddFunc(schedule, func() {
		removed, err := m.Sweep(context.Background())
		if err != nil {
			slog.Error("Media sweep failed", "error", err)
			return
		}
		slog.Info("Media sweep finished", "foldersRemoved", removed)
	})
	if err != nil {
		return fmt.Errorf("schedule media sweep %q: %w", schedule, err)
	}

	m.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (m *MediaSweeper) Stop() {
	<-m.cron.Stop().Done()
}

// Sweep deletes every folder under private/movie/ whose objects are not
// referenced by a movie row and returns how many folders it removed.
func (m *MediaSweeper) Sweep(ctx context.Context) (int, error) {
	keys, err := m.gw.Bucket.List(ctx, movieRoot)
	if err != nil {
		return 0, fmt.Errorf("list movie objects: %w", err)
	}

	folders := map[string][]string{}
	for _, key := range keys {
		if dir := folderOf(key); dir != "" {
			folders[dir] = append(folders[dir], key)
		}
	}
	if len(folders) == 0 {
		return 0, nil
	}

	records, err := m.gw.FindAll(ctx, MoviesCollection, nil)
	if err != nil {
		return 0, fmt.Errorf("list movies: %w", err)
	}

	referenced := make(map[string]bool, len(records))
	for _, rec := range records {
		if dir := folderOf(rec.GetString("path")); dir != "" {
			referenced[dir] = true
		}
	}

	orphans := make([]string, 0, len(folders))
	for dir := range folders {
		if !referenced[dir] {
			orphans = append(orphans, dir)
		}
	}
	sort.Strings(orphans)

	removed := 0
	for _, dir := range orphans {
		if err := m.gw.Bucket.Remove(ctx, folders[dir]...); err != nil {
			slog.Error("Failed to remove orphaned movie folder", "dir", dir, "error", err)
			continue
		}
		m.gw.Signer.Forget(ctx, folders[dir]...)
		slog.Info("Removed orphaned movie folder", "dir", dir, "objects", len(folders[dir]))
		removed++
	}

	return removed, nil
}
