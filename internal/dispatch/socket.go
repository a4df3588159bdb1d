// Package dispatch fans out lifecycle and output events to external
// listeners over local Unix datagram sockets, one datagram per listener
// file found in the socket directory.
package dispatch

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"
)

const (
	// PhaseListenerExt is the file extension a phase-event listener's
	// socket is named with.
	PhaseListenerExt = ".plistener"
	// OutputListenerExt is the file extension an output-event listener's
	// socket is named with.
	OutputListenerExt = ".olistener"
)

// SocketDir returns the directory dispatchers scan for listener sockets
// and receivers bind new ones into: a per-user subdirectory of TMPDIR (or
// /tmp), mirroring spec.md §6's "a well-known, per-user directory".
func SocketDir() string {
	base := os.Getenv("TMPDIR")
	if base == "" {
		base = "/tmp"
	}
	return filepath.Join(base, "taskrun-"+strconv.Itoa(os.Getuid()))
}

// SocketClient sends datagrams to every file matching ext inside a
// directory (default SocketDir()).
type SocketClient struct {
	Ext string
	Dir string
}

// NewSocketClient constructs a SocketClient for the given listener
// extension, scanning SocketDir() unless dir is overridden.
func NewSocketClient(ext, dir string) *SocketClient {
	if dir == "" {
		dir = SocketDir()
	}
	return &SocketClient{Ext: ext, Dir: dir}
}

// Send writes payload to every socket in c.Dir whose name ends with
// c.Ext. Sends fan out concurrently via errgroup so one slow or dead
// listener never delays delivery to the others; failures are collected
// and returned rather than aborting the rest of the fan-out (errgroup's
// first-error-wins semantics would stop remaining sends, which is the
// wrong behavior for independent datagram fan-out, so each send's error
// is captured locally instead of returned to the group).
func (c *SocketClient) Send(ctx context.Context, payload []byte) []error {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return []error{err}
	}

	var targets []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) == c.Ext {
			targets = append(targets, filepath.Join(c.Dir, e.Name()))
		}
	}
	if len(targets) == 0 {
		return nil
	}

	errs := make([]error, len(targets))
	g, _ := errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			errs[i] = sendOne(ctx, target, payload)
			return nil
		})
	}
	_ = g.Wait()

	var out []error
	for i, e := range errs {
		if e != nil {
			out = append(out, fmt.Errorf("%s: %w", targets[i], e))
		}
	}
	return out
}

func sendOne(ctx context.Context, socketPath string, payload []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unixgram", socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(dl); err != nil {
			return err
		}
	}
	_, err = conn.Write(payload)
	return err
}
