package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"voicebridge/internal/application"
)

const transcriptSuffix = ".txt"

var supportedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".webm": true,
}

// InboxDevice stands in for a microphone on hosts without one: each capture
// takes the oldest audio file dropped into an inbox directory and moves it
// into the recordings directory.
type InboxDevice struct {
	inbox      string
	recordings string
	logger     *slog.Logger
	mu         sync.Mutex
}

func NewInboxDevice(inbox, recordings string, logger *slog.Logger) *InboxDevice {
	return &InboxDevice{
		inbox:      inbox,
		recordings: recordings,
		logger:     logger,
	}
}

// RequestMicrophone is granted whenever the inbox directory is usable.
func (d *InboxDevice) RequestMicrophone(_ context.Context) (bool, error) {
	if err := os.MkdirAll(d.inbox, 0o755); err != nil {
		return false, fmt.Errorf("creating inbox dir: %w", err)
	}
	return true, nil
}

func (d *InboxDevice) Open(_ context.Context, _ application.CaptureFormat) (application.CaptureHandle, error) {
	if _, err := os.ReadDir(d.inbox); err != nil {
		return nil, fmt.Errorf("reading inbox: %w", err)
	}
	return &inboxCapture{device: d}, nil
}

func (d *InboxDevice) take() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.inbox)
	if err != nil {
		return "", fmt.Errorf("reading dir: %w", err)
	}

	type candidate struct {
		name    string
		modTime int64
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !supportedExtensions[ext] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{name: entry.Name(), modTime: info.ModTime().UnixNano()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime == candidates[j].modTime {
			return candidates[i].name < candidates[j].name
		}
		return candidates[i].modTime < candidates[j].modTime
	})

	for _, c := range candidates {
		src := filepath.Join(d.inbox, c.name)
		ext := strings.ToLower(filepath.Ext(c.name))
		if ext == ".wav" {
			if _, err := WAVDuration(src); err != nil {
				d.logger.Warn("skipping invalid recording", "file", c.name, "error", err)
				continue
			}
		}

		if err := os.MkdirAll(d.recordings, 0o755); err != nil {
			return "", fmt.Errorf("creating recordings dir: %w", err)
		}
		dst := filepath.Join(d.recordings, uuid.NewString()+ext)
		if err := os.Rename(src, dst); err != nil {
			return "", fmt.Errorf("moving %s: %w", c.name, err)
		}
		// A transcript sidecar travels with its recording.
		if err := os.Rename(src+transcriptSuffix, dst+transcriptSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("moving transcript sidecar", "file", c.name, "error", err)
		}
		return dst, nil
	}

	return "", errors.New("no recording found in inbox")
}

type inboxCapture struct {
	device  *InboxDevice
	path    string
	stopped bool
}

func (c *inboxCapture) Stop(_ context.Context) error {
	if c.stopped {
		return nil
	}
	c.stopped = true
	path, err := c.device.take()
	if err != nil {
		return err
	}
	c.path = path
	return nil
}

func (c *inboxCapture) Locator() (string, error) {
	if !c.stopped {
		return "", errors.New("capture still running")
	}
	if c.path == "" {
		return "", errors.New("nothing captured")
	}
	return c.path, nil
}

func (c *inboxCapture) Discard() error {
	c.stopped = true
	if c.path == "" {
		return nil
	}
	return removeIfExists(c.path)
}

// Disposer deletes consumed recordings that live under its root directory.
type Disposer struct {
	root string
}

func NewDisposer(root string) *Disposer {
	return &Disposer{root: root}
}

func (d *Disposer) Dispose(locator string) error {
	root, err := filepath.Abs(d.root)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(locator)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s outside %s", locator, d.root)
	}
	return removeIfExists(path)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Remove(path + transcriptSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
