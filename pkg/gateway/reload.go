package gateway

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/coachlink/gateway/internal/logger"
	"github.com/coachlink/gateway/internal/rvc"
)

// watchCoachMapping follows s.coachMapPath for writes and merges newly
// added devices into the running entity registry without restarting any
// network node, per spec_full §5's coach-mapping hot-reload supplement.
// Existing entities and their accumulated state are untouched; only
// entity_ids absent from the registry are added. It mirrors the teacher's
// cmd/dittofs/commands/logs.go fsnotify-on-write idiom, generalized from
// tailing a log file to re-parsing a config artifact.
func (s *Service) watchCoachMapping(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("coach mapping watcher: failed to start", logger.KeyError, err)
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.coachMapPath); err != nil {
		logger.Error("coach mapping watcher: failed to watch file", "path", s.coachMapPath, logger.KeyError, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.reloadCoachMapping()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("coach mapping watcher error", logger.KeyError, err)
		}
	}
}

// reloadCoachMapping re-parses s.coachMapPath, swaps the updater's
// lookup table, and merges any newly defined entities into the registry.
func (s *Service) reloadCoachMapping() {
	cm, err := rvc.LoadCoachMapping(s.coachMapPath)
	if err != nil {
		logger.Warn("coach mapping reload failed, keeping previous mapping", "path", s.coachMapPath, logger.KeyError, err)
		return
	}

	added := s.entities.MergeCoachMapping(cm)
	s.updater.ReplaceCoachMapping(cm)

	logger.Info("coach mapping reloaded", "path", s.coachMapPath, "entities_added", added)
}
