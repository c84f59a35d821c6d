package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	flog "aws-snapshot-utility/logger"
	"aws-snapshot-utility/models"
)

// InstanceFinder resolves the project filter to a set of instances.
type InstanceFinder interface {
	Instances(ctx context.Context, project models.ProjectFilter) ([]models.Instance, error)
}

type StorageReader interface {
	Volumes(ctx context.Context, instanceID string) ([]models.Volume, error)
	Snapshots(ctx context.Context, volumeID string) ([]models.Snapshot, error)
}

type InstanceController interface {
	StartInstance(ctx context.Context, instanceID string) error
	StopInstance(ctx context.Context, instanceID string) error
	WaitUntilStopped(ctx context.Context, instanceID string) error
	WaitUntilRunning(ctx context.Context, instanceID string) error
	CreateSnapshot(ctx context.Context, volumeID, description string) (*models.Snapshot, error)
}

type Fleet interface {
	InstanceFinder
	StorageReader
	InstanceController
}

// SnapshotService walks instances, their volumes and the volumes' snapshots
// one at a time. Rows and progress lines go to out; diagnostics go to the
// logger.
type SnapshotService struct {
	fleet  Fleet
	out    io.Writer
	logger *flog.Logger
}

func NewSnapshotService(fleet Fleet, out io.Writer, logger *flog.Logger) *SnapshotService {
	return &SnapshotService{
		fleet:  fleet,
		out:    out,
		logger: logger,
	}
}

func (s *SnapshotService) ListInstances(ctx context.Context, project models.ProjectFilter) error {
	startTime := time.Now()

	instances, err := s.fleet.Instances(ctx, project)
	if err != nil {
		return err
	}

	for _, instance := range instances {
		if err := s.println(instance.Row()); err != nil {
			return err
		}
	}

	s.logger.Info("listed instances",
		zap.String("project", project.String()),
		zap.Int("instance_count", len(instances)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

func (s *SnapshotService) ListVolumes(ctx context.Context, project models.ProjectFilter) error {
	startTime := time.Now()

	instances, err := s.fleet.Instances(ctx, project)
	if err != nil {
		return err
	}

	count := 0
	for _, instance := range instances {
		volumes, err := s.fleet.Volumes(ctx, instance.InstanceID)
		if err != nil {
			return err
		}

		for _, volume := range volumes {
			if err := s.println(volume.Row()); err != nil {
				return err
			}
			count++
		}
	}

	s.logger.Info("listed volumes",
		zap.String("project", project.String()),
		zap.Int("volume_count", count),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

func (s *SnapshotService) ListSnapshots(ctx context.Context, project models.ProjectFilter) error {
	startTime := time.Now()

	instances, err := s.fleet.Instances(ctx, project)
	if err != nil {
		return err
	}

	count := 0
	for _, instance := range instances {
		volumes, err := s.fleet.Volumes(ctx, instance.InstanceID)
		if err != nil {
			return err
		}

		for _, volume := range volumes {
			snapshots, err := s.fleet.Snapshots(ctx, volume.VolumeID)
			if err != nil {
				return err
			}

			for _, snapshot := range snapshots {
				if err := s.println(snapshot.Row(instance.InstanceID)); err != nil {
					return err
				}
				count++
			}
		}
	}

	s.logger.Info("listed snapshots",
		zap.String("project", project.String()),
		zap.Int("snapshot_count", count),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// StartInstances requests a start for every selected instance without
// waiting for any of them to reach "running".
func (s *SnapshotService) StartInstances(ctx context.Context, project models.ProjectFilter) error {
	startTime := time.Now()

	instances, err := s.fleet.Instances(ctx, project)
	if err != nil {
		return err
	}

	for _, instance := range instances {
		if err := s.printf("Starting %s...\n", instance.InstanceID); err != nil {
			return err
		}
		if err := s.fleet.StartInstance(ctx, instance.InstanceID); err != nil {
			return err
		}
	}

	s.logger.Info("start requested for instances",
		zap.String("project", project.String()),
		zap.Int("instance_count", len(instances)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// StopInstances requests a stop for every selected instance without
// waiting for any of them to reach "stopped".
func (s *SnapshotService) StopInstances(ctx context.Context, project models.ProjectFilter) error {
	startTime := time.Now()

	instances, err := s.fleet.Instances(ctx, project)
	if err != nil {
		return err
	}

	for _, instance := range instances {
		if err := s.printf("Stopping %s...\n", instance.InstanceID); err != nil {
			return err
		}
		if err := s.fleet.StopInstance(ctx, instance.InstanceID); err != nil {
			return err
		}
	}

	s.logger.Info("stop requested for instances",
		zap.String("project", project.String()),
		zap.Int("instance_count", len(instances)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// SnapshotInstances stops each selected instance, snapshots every attached
// volume and starts the instance again, one instance at a time. A failure
// returns immediately and leaves the instance in whatever state it reached.
func (s *SnapshotService) SnapshotInstances(ctx context.Context, project models.ProjectFilter) error {
	startTime := time.Now()

	instances, err := s.fleet.Instances(ctx, project)
	if err != nil {
		return err
	}

	created := 0
	for _, instance := range instances {
		n, err := s.snapshotInstance(ctx, instance.InstanceID)
		created += n
		if err != nil {
			s.logger.Error("snapshot run aborted",
				zap.String("instance_id", instance.InstanceID),
				zap.Int("snapshots_created", created),
				zap.Error(err),
			)
			return err
		}
	}

	s.logger.Info("snapshot run completed",
		zap.String("project", project.String()),
		zap.Int("instance_count", len(instances)),
		zap.Int("snapshots_created", created),
		zap.Duration("duration", time.Since(startTime)),
	)

	return s.printf("Job complete\n")
}

func (s *SnapshotService) snapshotInstance(ctx context.Context, instanceID string) (int, error) {
	if err := s.printf("Stopping %s...\n", instanceID); err != nil {
		return 0, err
	}
	if err := s.fleet.StopInstance(ctx, instanceID); err != nil {
		return 0, err
	}
	if err := s.fleet.WaitUntilStopped(ctx, instanceID); err != nil {
		return 0, err
	}

	volumes, err := s.fleet.Volumes(ctx, instanceID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, volume := range volumes {
		if err := s.printf("Creating snapshot of %s\n", volume.VolumeID); err != nil {
			return created, err
		}
		if _, err := s.fleet.CreateSnapshot(ctx, volume.VolumeID, models.SnapshotDescription); err != nil {
			return created, err
		}
		created++
	}

	if err := s.printf("Starting %s...\n", instanceID); err != nil {
		return created, err
	}
	if err := s.fleet.StartInstance(ctx, instanceID); err != nil {
		return created, err
	}
	if err := s.fleet.WaitUntilRunning(ctx, instanceID); err != nil {
		return created, err
	}

	return created, nil
}

func (s *SnapshotService) println(row string) error {
	if _, err := fmt.Fprintln(s.out, row); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (s *SnapshotService) printf(format string, args ...any) error {
	if _, err := fmt.Fprintf(s.out, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
