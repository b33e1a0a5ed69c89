/*
SpoolWatcher 落盘目录监听器
监听 ingest.spool.dir，新出现或被改写的 *.json 在防抖后导入。
启动时先导入目录中已有的文件；导入按文件串行执行。
*/
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ImportHook 单个文件导入完成后的回调
type ImportHook func(path string, result *Result, err error)

// SpoolWatcher 落盘目录监听器
type SpoolWatcher struct {
	dir      string
	debounce time.Duration
	importer *FileImporter
	watcher  *fsnotify.Watcher
	hook     ImportHook

	mu       sync.Mutex
	pending  map[string]*time.Timer
	importMu sync.Mutex
	inflight sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSpoolWatcher 创建落盘目录监听器
func NewSpoolWatcher(dir string, debounce time.Duration, importer *FileImporter) (*SpoolWatcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("spool dir is required")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SpoolWatcher{
		dir:      dir,
		debounce: debounce,
		importer: importer,
		watcher:  watcher,
		pending:  make(map[string]*time.Timer),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// OnImported 设置导入回调，需在 Start 之前调用
func (w *SpoolWatcher) OnImported(hook ImportHook) {
	w.hook = hook
}

// Start 启动监听
func (w *SpoolWatcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create spool dir: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to add spool dir to watcher: %w", err)
	}

	go w.watchLoop()

	// 已存在的文件
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to list spool dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && isSpoolFile(entry.Name()) {
			w.schedule(filepath.Join(w.dir, entry.Name()))
		}
	}

	logger.LogSystemEvent("spool_watcher", "started", "spool watcher started", logrus.InfoLevel, map[string]interface{}{
		"dir":      w.dir,
		"debounce": w.debounce.String(),
		"existing": len(entries),
	})
	return nil
}

// Stop 停止监听，等待进行中的导入结束
func (w *SpoolWatcher) Stop() error {
	w.cancel()

	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		logger.LogSystemEvent("spool_watcher", "stop_timeout", "spool watcher stop timeout", logrus.WarnLevel, nil)
	}

	w.mu.Lock()
	for path, timer := range w.pending {
		if timer.Stop() {
			w.inflight.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.inflight.Wait()
	return w.watcher.Close()
}

// watchLoop 监听循环
func (w *SpoolWatcher) watchLoop() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && isSpoolFile(filepath.Base(event.Name)) {
				w.schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.LogSystemEvent("spool_watcher", "watch_error", err.Error(), logrus.WarnLevel, map[string]interface{}{
				"dir": w.dir,
			})
		}
	}
}

// schedule 防抖: 同一文件在防抖时间内的多次事件只导入一次
func (w *SpoolWatcher) schedule(path string) {
	if w.ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		if timer.Stop() {
			timer.Reset(w.debounce)
			return
		}
	}

	w.inflight.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.inflight.Done()

		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		w.importOne(path)
	})
	w.pending[path] = timer
}

func (w *SpoolWatcher) importOne(path string) {
	w.importMu.Lock()
	defer w.importMu.Unlock()

	if w.ctx.Err() != nil {
		return
	}
	// 已被其它进程处理
	if _, err := os.Stat(path); err != nil {
		return
	}

	result, err := w.importer.ImportFile(w.ctx, path)
	if err != nil {
		logger.LogError(err, "", "", path, "SPOOL", map[string]interface{}{
			"operation": "import_spool_file",
		})
	}
	if w.hook != nil {
		w.hook(path, result, err)
	}
}

// isSpoolFile 只处理 .json，忽略隐藏文件与临时文件
func isSpoolFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".json")
}
