package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProjectTagKey = "project"
	NoProject     = "<no project>"

	SnapshotDescription = "Created by aws snapshot utility"

	LabelEncrypted    = "Encrypted"
	LabelNotEncrypted = "Not Encrypted"

	// StartTimeLayout matches strftime("%c") in the C locale.
	StartTimeLayout = time.ANSIC

	rowSeparator = ", "
)

type (
	// ProjectFilter selects instances by their project tag. The zero value
	// selects every instance.
	ProjectFilter string

	Instance struct {
		InstanceID       string            // "i-1234567890abcdef0"
		InstanceType     string            // "t3.medium"
		AvailabilityZone string            // "us-east-1a"
		State            string            // "running"
		PublicDNSName    string            // "" when the instance has no public address
		Tags             map[string]string // {"project": "demo"}
	}

	Volume struct {
		VolumeID   string
		InstanceID string
		State      string
		SizeGiB    int32
		Encrypted  bool
	}

	Snapshot struct {
		SnapshotID string
		VolumeID   string
		State      string
		Progress   string // "100%"
		StartTime  time.Time
	}
)

func (p ProjectFilter) IsSet() bool {
	return p != ""
}

func (p ProjectFilter) String() string {
	return string(p)
}

func (i Instance) Project() string {
	if project, ok := i.Tags[ProjectTagKey]; ok {
		return project
	}
	return NoProject
}

// Row renders: id, type, az, state, public dns, project.
func (i Instance) Row() string {
	return joinRow(
		i.InstanceID,
		i.InstanceType,
		i.AvailabilityZone,
		i.State,
		i.PublicDNSName,
		i.Project(),
	)
}

func (v Volume) EncryptionLabel() string {
	if v.Encrypted {
		return LabelEncrypted
	}
	return LabelNotEncrypted
}

func (v Volume) Size() string {
	return fmt.Sprintf("%dGiB", v.SizeGiB)
}

// Row renders: volume id, instance id, state, size, encryption.
func (v Volume) Row() string {
	return joinRow(
		v.VolumeID,
		v.InstanceID,
		v.State,
		v.Size(),
		v.EncryptionLabel(),
	)
}

// Row renders: snapshot id, volume id, instance id, state, progress, start.
// The instance is the one whose volume was walked to reach the snapshot.
func (s Snapshot) Row(instanceID string) string {
	return joinRow(
		s.SnapshotID,
		s.VolumeID,
		instanceID,
		s.State,
		s.Progress,
		s.StartTime.Format(StartTimeLayout),
	)
}

func joinRow(fields ...string) string {
	return strings.Join(fields, rowSeparator)
}
