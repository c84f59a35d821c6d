package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"aws-snapshot-utility/models"
	"aws-snapshot-utility/service"
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "Commands for instances",
}

var instancesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List EC2 instances",
	Long: `List EC2 instances, one per line:

  id, type, availability zone, state, public DNS name, project

Instances without a project tag show "<no project>".`,
	Args: cobra.NoArgs,
	RunE: runWithService(func(ctx context.Context, svc *service.SnapshotService, project models.ProjectFilter) error {
		return svc.ListInstances(ctx, project)
	}),
}

var instancesStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start EC2 instances",
	Long:  `Request a start for every selected instance. Does not wait for the instances to run.`,
	Args:  cobra.NoArgs,
	RunE: runWithService(func(ctx context.Context, svc *service.SnapshotService, project models.ProjectFilter) error {
		return svc.StartInstances(ctx, project)
	}),
}

var instancesStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop EC2 instances",
	Long:  `Request a stop for every selected instance. Does not wait for the instances to stop.`,
	Args:  cobra.NoArgs,
	RunE: runWithService(func(ctx context.Context, svc *service.SnapshotService, project models.ProjectFilter) error {
		return svc.StopInstances(ctx, project)
	}),
}

var instancesSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Create snapshots of all volumes",
	Long: `Create snapshots of all volumes of every selected instance.

Instances are handled one at a time: the instance is stopped and waited on,
each attached volume is snapshotted, then the instance is started and waited
on. If any step fails the command exits and the instance is left as it is,
which may mean stopped.`,
	Args: cobra.NoArgs,
	RunE: runWithService(func(ctx context.Context, svc *service.SnapshotService, project models.ProjectFilter) error {
		return svc.SnapshotInstances(ctx, project)
	}),
}

func init() {
	rootCmd.AddCommand(instancesCmd)

	instancesCmd.AddCommand(instancesListCmd)
	instancesCmd.AddCommand(instancesStartCmd)
	instancesCmd.AddCommand(instancesStopCmd)
	instancesCmd.AddCommand(instancesSnapshotCmd)

	addProjectFlag(instancesListCmd, "Only instances for project (tag project:<name>)")
	addProjectFlag(instancesStartCmd, "Only instances for project")
	addProjectFlag(instancesStopCmd, "Only instances for project")
	addProjectFlag(instancesSnapshotCmd, "Only instances for project (tag project:<name>)")
}
