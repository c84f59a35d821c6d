package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"aws-snapshot-utility/models"
	"aws-snapshot-utility/service"
)

var volumesCmd = &cobra.Command{
	Use:   "volumes",
	Short: "Commands for volumes",
}

var volumesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List EC2 volumes",
	Long: `List the EBS volumes attached to the selected instances, one per line:

  volume id, instance id, state, size, encryption`,
	Args: cobra.NoArgs,
	RunE: runWithService(func(ctx context.Context, svc *service.SnapshotService, project models.ProjectFilter) error {
		return svc.ListVolumes(ctx, project)
	}),
}

func init() {
	rootCmd.AddCommand(volumesCmd)
	volumesCmd.AddCommand(volumesListCmd)

	addProjectFlag(volumesListCmd, "Only volumes for project (tag project:<name>)")
}
