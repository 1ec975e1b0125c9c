package filter

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch hot-reloads the rules file when it changes on disk. Blocks until the
// context is cancelled, so run it in a goroutine.
func (f *Filter) Watch(ctx context.Context, path string, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// 监听目录而不是文件本身，编辑器原子保存会替换 inode
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	target := filepath.Clean(path)
	logger.Info("watching filter rules", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			rules, err := LoadRules(path)
			if err != nil {
				// 保留旧规则，坏文件不生效
				logger.Error("failed to reload filter rules", zap.Error(err))
				continue
			}
			f.Reload(rules)
			logger.Info("filter rules reloaded", zap.String("path", target))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("filter watcher error", zap.Error(err))
		}
	}
}
