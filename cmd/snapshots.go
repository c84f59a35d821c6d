package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"aws-snapshot-utility/models"
	"aws-snapshot-utility/service"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Commands for snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List EC2 snapshots",
	Long: `List the snapshots of every volume attached to the selected instances,
one per line:

  snapshot id, volume id, instance id, state, progress, start time`,
	Args: cobra.NoArgs,
	RunE: runWithService(func(ctx context.Context, svc *service.SnapshotService, project models.ProjectFilter) error {
		return svc.ListSnapshots(ctx, project)
	}),
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsListCmd)

	addProjectFlag(snapshotsListCmd, "Only snapshots for project (tag project:<name>)")
}
