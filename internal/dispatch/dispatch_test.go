package dispatch

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

func TestTruncateAppendsSuffixOnlyWhenOverLimit(t *testing.T) {
	short := "hello"
	require.Equal(t, short, truncate(short))

	long := strings.Repeat("x", maxOutputBytes+500)
	got := truncate(long)
	require.LessOrEqual(t, len(got), maxOutputBytes)
	require.True(t, strings.HasSuffix(got, truncatedSuffix))
}

func TestSocketClientSendReachesListener(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "listener-a.plistener")

	addr, err := net.ResolveUnixAddr("unixgram", sockPath)
	require.NoError(t, err)
	conn, err := net.ListenUnixgram("unixgram", addr)
	require.NoError(t, err)
	defer conn.Close()

	client := NewSocketClient(PhaseListenerExt, dir)
	errs := client.Send(context.Background(), []byte(`{"hello":"world"}`))
	require.Empty(t, errs)

	buf := make([]byte, 256)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, `{"hello":"world"}`, string(buf[:n]))
}

func TestSocketClientSendIgnoresNonMatchingExtensions(t *testing.T) {
	dir := t.TempDir()
	// A file with a non-matching extension should never be dialed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-a-socket.olistener"), nil, 0o644))

	client := NewSocketClient(PhaseListenerExt, dir)
	errs := client.Send(context.Background(), []byte("ignored"))
	require.Empty(t, errs)
}

func TestSocketClientSendOnMissingDirReturnsNoErrors(t *testing.T) {
	client := NewSocketClient(PhaseListenerExt, filepath.Join(t.TempDir(), "does-not-exist"))
	errs := client.Send(context.Background(), []byte("x"))
	require.Empty(t, errs)
}

func TestInstanceMetadataCarriesParamsUserParamsAndPendingGroup(t *testing.T) {
	meta := runspec.Metadata{
		ID:           runspec.ID{JobID: "build", RunID: "abc123"},
		Params:       []runspec.Param{{Name: "retries", Value: "3"}},
		UserParams:   map[string]string{"triggered_by": "cron"},
		PendingGroup: "nightly",
	}

	got := instanceMetadata(meta)
	require.Equal(t, "build", got.JobID)
	require.Equal(t, "abc123", got.RunID)
	require.Equal(t, "nightly", got.PendingGroup)
	require.Equal(t, meta.UserParams, got.UserParams)
	require.Len(t, got.Parameters, 1)
	require.Equal(t, "retries", got.Parameters[0].Name)
	require.Equal(t, "3", got.Parameters[0].Value)
}

func TestPhaseDispatcherLogsEachListenerSendFailure(t *testing.T) {
	dir := t.TempDir()
	// A stale socket file whose listener is gone: dialing it fails, and
	// that failure must reach the installed error logger rather than
	// being dropped silently.
	deadPath := filepath.Join(dir, "dead.plistener")
	addr, err := net.ResolveUnixAddr("unixgram", deadPath)
	require.NoError(t, err)
	conn, err := net.ListenUnixgram("unixgram", addr)
	require.NoError(t, err)
	conn.Close()

	var mu sync.Mutex
	var logged []error
	SetErrorLogger(func(jobID, runID string, err error) {
		mu.Lock()
		defer mu.Unlock()
		logged = append(logged, err)
		require.Equal(t, "build", jobID)
		require.Equal(t, "abc123", runID)
	})
	defer SetErrorLogger(nil)

	d := NewPhaseDispatcher(dir)
	snap := &runsnap.Snapshot{Metadata: runspec.Metadata{ID: runspec.ID{JobID: "build", RunID: "abc123"}}}
	d.Observe(phase.RUNNING, phase.TRIGGERED, time.Now(), snap)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, logged)
}
