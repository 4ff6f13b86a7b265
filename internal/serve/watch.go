package serve

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 200 * time.Millisecond

func (s *Server) startWatch(ctx context.Context) error {
	var err error
	s.watchOnce.Do(func() {
		w, e := fsnotify.NewWatcher()
		if e != nil {
			err = e
			return
		}
		s.watcher = w

		for _, root := range []string{s.cfg.Build.SourceDir, s.cfg.Build.StaticDir} {
			if root == "" {
				continue
			}
			if e := addTree(w, root); e != nil {
				err = e
				return
			}
		}
		go s.watchLoop(ctx)
	})
	return err
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func (s *Server) watchLoop(ctx context.Context) {
	s.log.Info("watching for file changes")
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				// new directories need their own watch
				_ = addTree(s.watcher, ev.Name)
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				debounce.Reset(debounceDelay)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", "err", err)
		case <-debounce.C:
			rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := s.Rebuild(rctx); err != nil {
				s.log.Error("rebuild failed", "err", err)
			}
			cancel()
		}
	}
}
