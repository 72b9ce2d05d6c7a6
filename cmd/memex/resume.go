package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/memex-cli/internal/kernelerr"
	"github.com/haasonsaas/memex-cli/internal/state"
)

// buildResumeCmd loads a persisted state.StateSnapshot and restores a
// StateManager from it, then reports what was recovered. A real
// resumed session would hand the restored manager to the next `run`
// invocation; here resume's job ends at reporting, since there is no
// live supervisor process to hand the manager to across CLI
// invocations.
func buildResumeCmd(deps *cliDeps) *cobra.Command {
	var (
		snapshotDir string
		snapshotID  string
	)

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Restore runtime state from a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshotDir == "" {
				return kernelerr.New(kernelerr.Command, "--snapshot-dir is required", nil)
			}

			mgr, err := state.NewSnapshotManager(snapshotDir, 1)
			if err != nil {
				return kernelerr.New(kernelerr.Io, "open snapshot dir", err)
			}

			var (
				snap  state.StateSnapshot
				found bool
			)
			if snapshotID != "" {
				snap, err = mgr.LoadByID(snapshotID)
				if err != nil {
					return kernelerr.New(kernelerr.Replay, "load snapshot by id", err)
				}
				found = true
			} else {
				snap, found, err = mgr.LoadLatest()
				if err != nil {
					return kernelerr.New(kernelerr.Replay, "load latest snapshot", err)
				}
			}
			if !found {
				return kernelerr.New(kernelerr.Replay, "no snapshot found in "+snapshotDir, nil)
			}

			sm := state.NewStateManager(snap.AppState.ConfigVersion, 256)
			sm.Restore(snap.AppState, snap.Sessions)
			defer sm.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "resumed snapshot %s (taken %s)\n", snap.SnapshotID, snap.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
			fmt.Fprintf(out, "  config_version=%s sessions=%d\n", snap.AppState.ConfigVersion, len(snap.Sessions))
			for id, sess := range snap.Sessions {
				fmt.Fprintf(out, "  - session %s: run=%s phase=%s\n", id, sess.RunID, sess.Runtime.Phase)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "", "Directory containing snapshot_*.json files")
	cmd.Flags().StringVar(&snapshotID, "snapshot-id", "", "Load a specific snapshot id instead of the latest")

	return cmd
}
