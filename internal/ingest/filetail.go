// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package ingest

import (
	"bufio"
	"context"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tomtom215/cartographus/internal/apperr"
	"github.com/tomtom215/cartographus/internal/extract"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/model"
)

// FileTailConfig describes one tailed file source.
type FileTailConfig struct {
	SourceID string
	Path     string
	// NewRecordPattern matches the start of a new log record; a line that
	// doesn't match is folded as a continuation of the previous record
	// (e.g. Java stack traces). Empty means every line starts a record.
	NewRecordPattern string
	AccessLog        bool
}

// FileTail tails a single file from its current end, following truncation
// and recreation the way `tail -F` does.
type FileTail struct {
	cfg       FileTailConfig
	sink      Sink
	extractor *extract.Extractor
	newRecord *regexp.Regexp

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFileTail(cfg FileTailConfig, sink Sink, extractor *extract.Extractor) (*FileTail, error) {
	var re *regexp.Regexp
	if cfg.NewRecordPattern != "" {
		compiled, err := regexp.Compile(cfg.NewRecordPattern)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, "ingest.NewFileTail", "compile newRecordPattern", err)
		}
		re = compiled
	}
	return &FileTail{cfg: cfg, sink: sink, extractor: extractor, newRecord: re}, nil
}

func (f *FileTail) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "ingest.FileTail.Start", "create fsnotify watcher", err)
	}
	if err := watcher.Add(f.cfg.Path); err != nil {
		watcher.Close()
		return apperr.Wrap(apperr.KindUnavailable, "ingest.FileTail.Start", "watch "+f.cfg.Path, err)
	}

	file, err := openAtEnd(f.cfg.Path)
	if err != nil {
		watcher.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	f.wg.Add(1)
	go f.run(runCtx, watcher, file)
	logging.Info().Str("path", f.cfg.Path).Msg("file tail started")
	return nil
}

func (f *FileTail) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
}

func openAtEnd(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "ingest.openAtEnd", "open "+path, err)
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, apperr.Wrap(apperr.KindUnavailable, "ingest.openAtEnd", "seek "+path, err)
	}
	return file, nil
}

func (f *FileTail) run(ctx context.Context, watcher *fsnotify.Watcher, file *os.File) {
	defer f.wg.Done()
	defer watcher.Close()
	defer file.Close()

	reader := bufio.NewReader(file)
	var pending strings.Builder

	flushPending := func() {
		if pending.Len() == 0 {
			return
		}
		f.emit(ctx, pending.String())
		pending.Reset()
	}

	readAvailable := func() {
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				trimmed := strings.TrimRight(line, "\r\n")
				if f.newRecord == nil || f.newRecord.MatchString(trimmed) || pending.Len() == 0 {
					flushPending()
					pending.WriteString(trimmed)
				} else {
					pending.WriteByte('\n')
					pending.WriteString(trimmed)
				}
			}
			if err != nil {
				return
			}
		}
	}

	readAvailable()

	for {
		select {
		case <-ctx.Done():
			flushPending()
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				flushPending()
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				readAvailable()
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				flushPending()
				reopened, err := openAtEnd(f.cfg.Path)
				if err == nil {
					file.Close()
					file = reopened
					reader = bufio.NewReader(file)
					watcher.Add(f.cfg.Path)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Str("path", f.cfg.Path).Msg("file tail watcher error")
		}
	}
}

func (f *FileTail) emit(ctx context.Context, raw string) {
	event := model.NewLogEvent(f.cfg.SourceID, raw)
	if f.cfg.AccessLog {
		if md, ok := extract.ParseAccessLog(raw); ok {
			for k, v := range md {
				event.Metadata[k] = v
			}
		}
	}
	recordAccepted(ctx, "filetail", f.cfg.SourceID, f.extractor, f.sink, event)
}
