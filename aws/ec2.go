package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"

	"aws-snapshot-utility/models"
)

const (
	filterAttachedInstance = "attachment.instance-id"
	filterVolumeID         = "volume-id"
)

type (
	// EC2Client is the subset of *ec2.Client the fleet provider calls. It also
	// satisfies the paginator and waiter client interfaces of the SDK.
	EC2Client interface {
		DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
		DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
		DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
		StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
		StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
		CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	}
)

type FleetProvider struct {
	client *AWSClient
}

func NewFleetProvider(client *AWSClient) *FleetProvider {
	return &FleetProvider{
		client: client,
	}
}

// Instances returns every instance tagged project=<project>, or every
// instance in the account when no project is given. Narrowing is done by the
// API filter, never client-side.
func (p *FleetProvider) Instances(ctx context.Context, project models.ProjectFilter) ([]models.Instance, error) {
	p.client.logger.Info("describing instances",
		zap.String("project", project.String()),
	)

	input := &ec2.DescribeInstancesInput{}
	if project.IsSet() {
		input.Filters = []types.Filter{
			{
				Name:   aws.String("tag:" + models.ProjectTagKey),
				Values: []string{project.String()},
			},
		}
	}

	var instances []models.Instance
	paginator := ec2.NewDescribeInstancesPaginator(p.client.ec2Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			p.client.logger.Error("failed to describe instances", apiErrorFields(err)...)
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}

		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				instances = append(instances, p.mapToInstance(instance))
			}
		}
	}

	p.client.logger.Info("instances resolved",
		zap.String("project", project.String()),
		zap.Int("instance_count", len(instances)),
	)

	return instances, nil
}

// Volumes returns the volumes attached to the given instance.
func (p *FleetProvider) Volumes(ctx context.Context, instanceID string) ([]models.Volume, error) {
	input := &ec2.DescribeVolumesInput{
		Filters: []types.Filter{
			{
				Name:   aws.String(filterAttachedInstance),
				Values: []string{instanceID},
			},
		},
	}

	var volumes []models.Volume
	paginator := ec2.NewDescribeVolumesPaginator(p.client.ec2Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			p.client.logger.Error("failed to describe volumes",
				append(apiErrorFields(err), zap.String("instance_id", instanceID))...,
			)
			return nil, fmt.Errorf("failed to describe volumes of instance %s: %w", instanceID, err)
		}

		for _, volume := range page.Volumes {
			volumes = append(volumes, p.mapToVolume(volume, instanceID))
		}
	}

	p.client.logger.Debug("volumes resolved",
		zap.String("instance_id", instanceID),
		zap.Int("volume_count", len(volumes)),
	)

	return volumes, nil
}

// Snapshots returns the snapshots taken from the given volume.
func (p *FleetProvider) Snapshots(ctx context.Context, volumeID string) ([]models.Snapshot, error) {
	input := &ec2.DescribeSnapshotsInput{
		Filters: []types.Filter{
			{
				Name:   aws.String(filterVolumeID),
				Values: []string{volumeID},
			},
		},
	}

	var snapshots []models.Snapshot
	paginator := ec2.NewDescribeSnapshotsPaginator(p.client.ec2Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			p.client.logger.Error("failed to describe snapshots",
				append(apiErrorFields(err), zap.String("volume_id", volumeID))...,
			)
			return nil, fmt.Errorf("failed to describe snapshots of volume %s: %w", volumeID, err)
		}

		for _, snapshot := range page.Snapshots {
			snapshots = append(snapshots, p.mapToSnapshot(snapshot))
		}
	}

	p.client.logger.Debug("snapshots resolved",
		zap.String("volume_id", volumeID),
		zap.Int("snapshot_count", len(snapshots)),
	)

	return snapshots, nil
}

func (p *FleetProvider) mapToInstance(instance types.Instance) models.Instance {
	if instance.Placement == nil {
		instance.Placement = &types.Placement{}
	}

	result := models.Instance{
		InstanceID:       aws.ToString(instance.InstanceId),
		InstanceType:     string(instance.InstanceType),
		AvailabilityZone: aws.ToString(instance.Placement.AvailabilityZone),
		PublicDNSName:    aws.ToString(instance.PublicDnsName),
		Tags:             p.extractTags(instance.Tags),
	}
	if instance.State != nil {
		result.State = string(instance.State.Name)
	}

	return result
}

func (p *FleetProvider) mapToVolume(volume types.Volume, instanceID string) models.Volume {
	return models.Volume{
		VolumeID:   aws.ToString(volume.VolumeId),
		InstanceID: instanceID,
		State:      string(volume.State),
		SizeGiB:    aws.ToInt32(volume.Size),
		Encrypted:  aws.ToBool(volume.Encrypted),
	}
}

func (p *FleetProvider) mapToSnapshot(snapshot types.Snapshot) models.Snapshot {
	return models.Snapshot{
		SnapshotID: aws.ToString(snapshot.SnapshotId),
		VolumeID:   aws.ToString(snapshot.VolumeId),
		State:      string(snapshot.State),
		Progress:   aws.ToString(snapshot.Progress),
		StartTime:  aws.ToTime(snapshot.StartTime),
	}
}

func (p *FleetProvider) extractTags(tags []types.Tag) map[string]string {
	result := make(map[string]string, len(tags))
	for _, tag := range tags {
		result[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return result
}
