// Command taskrund is a self-contained demo of the run engine: it starts
// an in-process receiver, then drives a handful of Shell executions
// through the runner under a Serial coordinator, dispatching every phase
// and output event to the receiver over a real Unix datagram socket and
// persisting a snapshot to disk on every transition.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"taskrun/internal/coordinate"
	"taskrun/internal/dispatch"
	"taskrun/internal/execution"
	"taskrun/internal/obslog"
	"taskrun/internal/phase"
	"taskrun/internal/receive"
	"taskrun/internal/runner"
	"taskrun/internal/runspec"
	"taskrun/internal/wire"
)

func main() {
	var (
		group     = flag.String("group", "demo", "serial coordination group every command joins")
		stateDir  = flag.String("state-dir", "", "directory for persisted run snapshots (temp dir if empty)")
		socketDir = flag.String("socket-dir", "", "directory for dispatch/receive sockets (dispatch.SocketDir() if empty)")
	)
	flag.Parse()
	commands := flag.Args()
	if len(commands) == 0 {
		commands = []string{"echo hello", "echo world"}
	}

	log := obslog.NewStderr(obslog.LevelFromEnv())
	runner.SetErrorLogger(obslog.ObserverErrorHook(log))
	dispatch.SetErrorLogger(func(jobID, runID string, err error) {
		log.Err().Err(err).Str("job_id", jobID).Str("run_id", runID).Log("dispatch send failed")
	})

	if *stateDir == "" {
		dir, err := os.MkdirTemp("", "taskrund-state-*")
		if err != nil {
			log.Err().Err(err).Log("create state dir")
			os.Exit(1)
		}
		*stateDir = dir
	}
	store := newSnapshotStore(*stateDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Notice().Log("received shutdown signal")
		cancel()
	}()

	exitCode := run(ctx, log, store, *group, *socketDir, commands)
	os.Exit(exitCode)
}

func run(ctx context.Context, log *obslog.Logger, store *snapshotStore, group, socketDir string, commands []string) int {
	receiver, err := receive.NewReceiver(dispatch.PhaseListenerExt, socketDir)
	if err != nil {
		log.Err().Err(err).Log("start phase receiver")
		return 1
	}
	defer receiver.Close()

	outputReceiver, err := receive.NewReceiver(dispatch.OutputListenerExt, socketDir)
	if err != nil {
		log.Err().Err(err).Log("start output receiver")
		return 1
	}
	defer outputReceiver.Close()

	warn := func(reason string, err error) {
		b := log.Warning().Str("reason", reason)
		if err != nil {
			b = b.Err(err)
		}
		b.Log("receiver dropped datagram")
	}
	receiver.Warn = warn
	outputReceiver.Warn = warn

	receiver.Phase = receive.PhaseListenerFunc(func(meta wire.InstanceMetadata, event wire.PhaseEvent) {
		log.Info().Str("job_id", meta.JobID).Str("run_id", meta.RunID).
			Str("phase", event.NewPhase).Log("phase transition received")
	})
	outputReceiver.Output = receive.OutputListenerFunc(func(meta wire.InstanceMetadata, event wire.OutputEvent) {
		stream := os.Stdout
		if event.IsError {
			stream = os.Stderr
		}
		fmt.Fprintf(stream, "[%s/%s] %s\n", meta.JobID, meta.RunID, event.Output)
	})

	go receiver.Run(ctx)
	go outputReceiver.Run(ctx)

	phaseDispatcher := dispatch.NewPhaseDispatcher(socketDir)
	outputDispatcher := dispatch.NewOutputDispatcher(socketDir)

	exitCode := 0
	for _, command := range commands {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			continue
		}
		jobID := command
		meta := runspec.Metadata{
			ID:           runspec.ID{JobID: jobID, RunID: runspec.NextRunID()},
			PendingGroup: group,
		}

		exec := execution.NewShell(fields[0], fields[1:]...)
		coord := coordinate.Serial(group)
		r := runner.New(meta, coord, exec, nil)

		r.AddStateObserver(phaseDispatcher.Observe, 0, false)
		r.AddStateObserver(store.Observe, 0, false)
		r.AddOutputObserver(outputDispatcher.Observe, 0)

		done, err := r.Run(ctx)
		if err != nil {
			log.Err().Err(err).Str("job_id", jobID).Log("run failed to start")
			exitCode = 1
			continue
		}
		snap := r.Snapshot()
		if !done || snap.State != phase.COMPLETED {
			exitCode = 1
		}
		log.Info().Str("job_id", jobID).Str("run_id", meta.ID.RunID).
			Str("state", snap.State.String()).Log("run finished")
	}
	return exitCode
}
