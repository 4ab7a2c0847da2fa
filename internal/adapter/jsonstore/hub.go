package jsonstore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/port/commhub"
)

// Hub persists channel messages as one newline-delimited JSON log per
// channel. Appends are immediate, not debounced: a message log is an audit
// trail and loses nothing on rewrite-free appends.
type Hub struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewHub creates a file-backed communication hub rooted at dir.
func NewHub(dir string) (*Hub, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("channel dir: %w", err)
	}
	return &Hub{dir: dir, now: time.Now}, nil
}

func (h *Hub) channelPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\.") {
		return "", fmt.Errorf("invalid channel name %q", name)
	}
	return filepath.Join(h.dir, name+".ndjson"), nil
}

func (h *Hub) CreateChannel(_ context.Context, name string) error {
	path, err := h.channelPath(name)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create channel %s: %w", name, err)
	}
	return f.Close()
}

func (h *Hub) SendMessage(_ context.Context, channel, sender, body string) (*commhub.Message, error) {
	path, err := h.channelPath(channel)
	if err != nil {
		return nil, err
	}

	msg := &commhub.Message{
		ID:        uuid.NewString(),
		Channel:   channel,
		Sender:    sender,
		Body:      body,
		CreatedAt: h.now().UTC(),
	}
	line, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open channel %s: %w", channel, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("append to channel %s: %w", channel, err)
	}
	return msg, nil
}

// GetMessages returns the most recent limit messages in chronological
// order. limit <= 0 returns everything.
func (h *Hub) GetMessages(_ context.Context, channel string, limit int) ([]commhub.Message, error) {
	path, err := h.channelPath(channel)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open channel %s: %w", channel, err)
	}
	defer f.Close()

	var messages []commhub.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg commhub.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			// A torn trailing line from a crash mid-append is skipped.
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read channel %s: %w", channel, err)
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (h *Hub) ListChannels(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), ".ndjson"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
