package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"go.uber.org/zap"

	"aws-snapshot-utility/models"
)

func (p *FleetProvider) StartInstance(ctx context.Context, instanceID string) error {
	_, err := p.client.ec2Client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		p.client.logger.Error("failed to start instance",
			append(apiErrorFields(err), zap.String("instance_id", instanceID))...,
		)
		return fmt.Errorf("failed to start instance %s: %w", instanceID, err)
	}

	p.client.logger.Info("start requested", zap.String("instance_id", instanceID))
	return nil
}

func (p *FleetProvider) StopInstance(ctx context.Context, instanceID string) error {
	_, err := p.client.ec2Client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		p.client.logger.Error("failed to stop instance",
			append(apiErrorFields(err), zap.String("instance_id", instanceID))...,
		)
		return fmt.Errorf("failed to stop instance %s: %w", instanceID, err)
	}

	p.client.logger.Info("stop requested", zap.String("instance_id", instanceID))
	return nil
}

// WaitUntilStopped polls DescribeInstances until the instance reports
// "stopped" or the wait timeout elapses.
func (p *FleetProvider) WaitUntilStopped(ctx context.Context, instanceID string) error {
	waiter := ec2.NewInstanceStoppedWaiter(p.client.ec2Client, func(o *ec2.InstanceStoppedWaiterOptions) {
		o.MinDelay = p.client.waiterMinDelay
		o.MaxDelay = p.client.waiterMaxDelay
	})

	p.client.logger.Info("waiting for instance to stop",
		zap.String("instance_id", instanceID),
		zap.Duration("timeout", p.client.waitTimeout),
	)

	input := &ec2.DescribeInstancesInput{InstanceIds: []string{instanceID}}
	if err := waiter.Wait(ctx, input, p.client.waitTimeout); err != nil {
		p.client.logger.Error("instance did not stop",
			append(apiErrorFields(err), zap.String("instance_id", instanceID))...,
		)
		return fmt.Errorf("waiting for instance %s to stop: %w", instanceID, err)
	}
	return nil
}

// WaitUntilRunning polls DescribeInstances until the instance reports
// "running" or the wait timeout elapses.
func (p *FleetProvider) WaitUntilRunning(ctx context.Context, instanceID string) error {
	waiter := ec2.NewInstanceRunningWaiter(p.client.ec2Client, func(o *ec2.InstanceRunningWaiterOptions) {
		o.MinDelay = p.client.waiterMinDelay
		o.MaxDelay = p.client.waiterMaxDelay
	})

	p.client.logger.Info("waiting for instance to run",
		zap.String("instance_id", instanceID),
		zap.Duration("timeout", p.client.waitTimeout),
	)

	input := &ec2.DescribeInstancesInput{InstanceIds: []string{instanceID}}
	if err := waiter.Wait(ctx, input, p.client.waitTimeout); err != nil {
		p.client.logger.Error("instance did not start",
			append(apiErrorFields(err), zap.String("instance_id", instanceID))...,
		)
		return fmt.Errorf("waiting for instance %s to run: %w", instanceID, err)
	}
	return nil
}

// CreateSnapshot requests a snapshot of the volume. It does not wait for the
// snapshot to complete.
func (p *FleetProvider) CreateSnapshot(ctx context.Context, volumeID, description string) (*models.Snapshot, error) {
	out, err := p.client.ec2Client.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(volumeID),
		Description: aws.String(description),
	})
	if err != nil {
		p.client.logger.Error("failed to create snapshot",
			append(apiErrorFields(err), zap.String("volume_id", volumeID))...,
		)
		return nil, fmt.Errorf("failed to create snapshot of volume %s: %w", volumeID, err)
	}

	snapshot := &models.Snapshot{
		SnapshotID: aws.ToString(out.SnapshotId),
		VolumeID:   volumeID,
		State:      string(out.State),
		Progress:   aws.ToString(out.Progress),
		StartTime:  aws.ToTime(out.StartTime),
	}

	p.client.logger.Info("snapshot requested",
		zap.String("volume_id", volumeID),
		zap.String("snapshot_id", snapshot.SnapshotID),
	)

	return snapshot, nil
}
