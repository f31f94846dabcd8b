package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/bim4d-backend-go/internal/config"
)

type fakePoster struct {
	mu    sync.Mutex
	tags  []string
	posts []map[string]interface{}
}

func (p *fakePoster) Post(tag string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tags = append(p.tags, tag)
	p.posts = append(p.posts, message.(map[string]interface{}))
	return nil
}

func TestFluentHandler_FlattensAttrs(t *testing.T) {
	p := &fakePoster{}
	log := slog.New(NewFluentHandler(p, "bim4d", slog.LevelInfo)).
		With("component", "cache").
		WithGroup("op")

	log.Debug("dropped")
	log.Warn("evicted", "count", 3, "err", errors.New("boom"))

	require.Len(t, p.posts, 1)
	assert.Equal(t, "bim4d.warn", p.tags[0])
	post := p.posts[0]
	assert.Equal(t, "evicted", post["message"])
	assert.Equal(t, "cache", post["component"])
	assert.EqualValues(t, 3, post["op.count"])
	assert.Equal(t, "boom", post["op.err"])
}

func TestFanoutHandler_RespectsEachLevel(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleHandler(ConsoleOptions{Writer: &buf, Level: slog.LevelDebug, JSON: true})
	p := &fakePoster{}
	log := slog.New(NewFanoutHandler(console, NewFluentHandler(p, "app", slog.LevelWarn)))

	log.Debug("only console")
	log.Error("both", "key", "v")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &rec))
	assert.Equal(t, "both", rec["msg"])
	require.Len(t, p.posts, 1)
	assert.Equal(t, "v", p.posts[0]["key"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestNew_ConsoleOnly(t *testing.T) {
	cfg := &config.Config{AppName: "test", Log: config.LogConfig{Level: "debug"}}
	log, closeFn, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.NoError(t, closeFn())
	assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))
}
