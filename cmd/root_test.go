package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aws-snapshot-utility/config"
	flog "aws-snapshot-utility/logger"
	"aws-snapshot-utility/models"
	"aws-snapshot-utility/service"
)

type stubFleet struct {
	instances []models.Instance
	volumes   map[string][]models.Volume
	err       error

	lastProject models.ProjectFilter
	snapshotted []string
}

func (s *stubFleet) Instances(_ context.Context, project models.ProjectFilter) ([]models.Instance, error) {
	s.lastProject = project
	if s.err != nil {
		return nil, s.err
	}
	var result []models.Instance
	for _, instance := range s.instances {
		if !project.IsSet() || instance.Tags[models.ProjectTagKey] == project.String() {
			result = append(result, instance)
		}
	}
	return result, nil
}

func (s *stubFleet) Volumes(_ context.Context, instanceID string) ([]models.Volume, error) {
	return s.volumes[instanceID], nil
}

func (s *stubFleet) Snapshots(context.Context, string) ([]models.Snapshot, error) {
	return nil, nil
}

func (s *stubFleet) StartInstance(context.Context, string) error    { return nil }
func (s *stubFleet) StopInstance(context.Context, string) error     { return nil }
func (s *stubFleet) WaitUntilStopped(context.Context, string) error { return nil }
func (s *stubFleet) WaitUntilRunning(context.Context, string) error { return nil }

func (s *stubFleet) CreateSnapshot(_ context.Context, volumeID, description string) (*models.Snapshot, error) {
	s.snapshotted = append(s.snapshotted, volumeID+":"+description)
	return &models.Snapshot{SnapshotID: "snap-" + volumeID, VolumeID: volumeID}, nil
}

func newStubFleet() *stubFleet {
	return &stubFleet{
		instances: []models.Instance{
			{
				InstanceID:       "i-1",
				InstanceType:     "t3.micro",
				AvailabilityZone: "us-east-1a",
				State:            "running",
				PublicDNSName:    "ec2-1.compute.amazonaws.com",
				Tags:             map[string]string{"project": "demo"},
			},
			{
				InstanceID:       "i-2",
				InstanceType:     "t3.micro",
				AvailabilityZone: "us-east-1b",
				State:            "running",
				Tags:             map[string]string{"project": "other"},
			},
			{
				InstanceID:       "i-3",
				InstanceType:     "t2.nano",
				AvailabilityZone: "us-east-1c",
				State:            "stopped",
			},
		},
		volumes: map[string][]models.Volume{
			"i-1": {
				{VolumeID: "vol-1", InstanceID: "i-1", State: "in-use", SizeGiB: 8, Encrypted: true},
				{VolumeID: "vol-2", InstanceID: "i-1", State: "in-use", SizeGiB: 30},
			},
		},
	}
}

// resetFlags restores every flag in the tree to its default so values and
// Changed bits from an earlier Execute do not leak into the next one.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with fleet in place of EC2 and returns stdout.
func execute(t *testing.T, fleet service.Fleet, args ...string) (string, error) {
	t.Helper()

	var gotCfg *config.Config
	original := fleetFactory
	fleetFactory = func(_ context.Context, cfg *config.Config, _ *flog.Logger) (service.Fleet, error) {
		gotCfg = cfg
		return fleet, nil
	}
	t.Cleanup(func() { fleetFactory = original })

	resetFlags(rootCmd)
	settings = nil

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if gotCfg != nil {
		assert.Equal(t, settings, gotCfg)
	}
	return out.String(), err
}

func TestInstancesList_ProjectFilter(t *testing.T) {
	fleet := newStubFleet()

	out, err := execute(t, fleet, "instances", "list", "--project", "demo")
	require.NoError(t, err)

	assert.Equal(t, "i-1, t3.micro, us-east-1a, running, ec2-1.compute.amazonaws.com, demo\n", out)
	assert.Equal(t, models.ProjectFilter("demo"), fleet.lastProject)
}

func TestInstancesList_NoProjectPlaceholder(t *testing.T) {
	out, err := execute(t, newStubFleet(), "instances", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "i-3, t2.nano, us-east-1c, stopped, , <no project>", lines[2])
}

func TestVolumesList(t *testing.T) {
	out, err := execute(t, newStubFleet(), "volumes", "list", "--project", "demo")
	require.NoError(t, err)

	assert.Equal(t, "vol-1, i-1, in-use, 8GiB, Encrypted\nvol-2, i-1, in-use, 30GiB, Not Encrypted\n", out)
}

func TestInstancesSnapshot(t *testing.T) {
	fleet := newStubFleet()

	out, err := execute(t, fleet, "instances", "snapshot", "--project", "demo")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"vol-1:Created by aws snapshot utility",
		"vol-2:Created by aws snapshot utility",
	}, fleet.snapshotted)
	assert.Equal(t, "Stopping i-1...\nCreating snapshot of vol-1\nCreating snapshot of vol-2\nStarting i-1...\nJob complete\n", out)
}

func TestInstancesStartStop(t *testing.T) {
	out, err := execute(t, newStubFleet(), "instances", "start", "--project", "other")
	require.NoError(t, err)
	assert.Equal(t, "Starting i-2...\n", out)

	out, err = execute(t, newStubFleet(), "instances", "stop", "--project", "other")
	require.NoError(t, err)
	assert.Equal(t, "Stopping i-2...\n", out)
}

func TestCommand_FleetErrorFails(t *testing.T) {
	fleet := newStubFleet()
	fleet.err = errors.New("AuthFailure")

	_, err := execute(t, fleet, "snapshots", "list")
	assert.ErrorIs(t, err, fleet.err)
}

func TestCommand_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shotty.hcl")
	require.NoError(t, os.WriteFile(path, []byte("profile = \"work\"\nwait_timeout = \"2m\"\n"), 0o600))

	_, err := execute(t, newStubFleet(), "--config", path, "instances", "list")
	require.NoError(t, err)

	assert.Equal(t, "work", settings.Profile)
	assert.Equal(t, 2*time.Minute, settings.WaitTimeout)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shotty.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCommand_SettingsPrecedence(t *testing.T) {
	path := writeConfigFile(t, `
profile      = "file"
region       = "eu-west-1"
wait_timeout = "2m"
`)

	tests := []struct {
		name        string
		args        []string
		profile     string
		region      string
		waitTimeout time.Duration
	}{
		{
			name:        "defaults only",
			args:        []string{"instances", "list"},
			profile:     "shotty",
			region:      "",
			waitTimeout: 10 * time.Minute,
		},
		{
			name: "flags override file",
			args: []string{
				"--config", path,
				"--profile", "flag",
				"--region", "us-west-2",
				"--wait-timeout", "30s",
				"instances", "list",
			},
			profile:     "flag",
			region:      "us-west-2",
			waitTimeout: 30 * time.Second,
		},
		{
			name:        "file overrides defaults",
			args:        []string{"--config", path, "instances", "list"},
			profile:     "file",
			region:      "eu-west-1",
			waitTimeout: 2 * time.Minute,
		},
		{
			name:        "single flag keeps the rest of the file",
			args:        []string{"--config", path, "--region", "ap-south-1", "instances", "list"},
			profile:     "file",
			region:      "ap-south-1",
			waitTimeout: 2 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, newStubFleet(), tt.args...)
			require.NoError(t, err)
			require.NotNil(t, settings)

			assert.Equal(t, tt.profile, settings.Profile)
			assert.Equal(t, tt.region, settings.Region)
			assert.Equal(t, tt.waitTimeout, settings.WaitTimeout)
		})
	}
}

func TestCommand_VerboseRaisesButNeverLowersLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		verbose  bool
		expected string
	}{
		{name: "default", expected: "error"},
		{name: "verbose default", verbose: true, expected: "info"},
		{name: "verbose over warn", config: `log_level = "warn"`, verbose: true, expected: "info"},
		{name: "verbose keeps debug", config: `log_level = "debug"`, verbose: true, expected: "debug"},
		{name: "verbose keeps info", config: `log_level = "info"`, verbose: true, expected: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args []string
			if tt.config != "" {
				args = append(args, "--config", writeConfigFile(t, tt.config))
			}
			if tt.verbose {
				args = append(args, "-v")
			}
			args = append(args, "instances", "list")

			_, err := execute(t, newStubFleet(), args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, settings.LogLevel)
		})
	}
}

func TestCommand_LogFormat(t *testing.T) {
	_, err := execute(t, newStubFleet(), "--log-format", "development", "instances", "list")
	require.NoError(t, err)
	assert.Equal(t, config.LogFormatDevelopment, settings.LogFormat)

	_, err = execute(t, newStubFleet(), "instances", "list")
	require.NoError(t, err)
	assert.Equal(t, config.LogFormatConsole, settings.LogFormat)

	_, err = execute(t, newStubFleet(), "--log-format", "json", "instances", "list")
	assert.Error(t, err)
}

func TestCommand_InvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shotty.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "loud"`), 0o600))

	_, err := execute(t, newStubFleet(), "--config", path, "instances", "list")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, newStubFleet(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: "+version)
}
