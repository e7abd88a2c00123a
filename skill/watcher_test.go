package skill

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnSkillFileWrite(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "greet")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	skillPath := filepath.Join(dir, "SKILL.md")
	require.NoError(t, os.WriteFile(skillPath, []byte("---\nname: greet\ndescription: v1\n---\nbody"), 0o644))

	var reloadCount int32
	w, err := NewWatcher([]string{dir}, func() { atomic.AddInt32(&reloadCount, 1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(skillPath, []byte("---\nname: greet\ndescription: v2\n---\nbody"), 0o644))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&reloadCount) > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresNonSkillFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(root, 0o755))

	var reloadCount int32
	w, err := NewWatcher([]string{root}, func() { atomic.AddInt32(&reloadCount, 1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("irrelevant"), 0o644))

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&reloadCount))
}
