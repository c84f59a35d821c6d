package aws

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	flog "aws-snapshot-utility/logger"
)

const (
	DefaultWaitTimeout = 10 * time.Minute

	// Matches the SDK waiter defaults for the instance state waiters.
	defaultWaiterMinDelay = 15 * time.Second
	defaultWaiterMaxDelay = 120 * time.Second
)

type AWSClient struct {
	_              struct{}
	region         string
	logger         *flog.Logger
	ec2Client      EC2Client
	waitTimeout    time.Duration
	waiterMinDelay time.Duration
	waiterMaxDelay time.Duration
}

type Option func(*AWSClient)

// WithWaitTimeout bounds every blocking stop/start wait.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *AWSClient) {
		if d > 0 {
			c.waitTimeout = d
		}
	}
}

// WithWaiterDelay overrides the polling interval bounds of the state waiters.
func WithWaiterDelay(minDelay, maxDelay time.Duration) Option {
	return func(c *AWSClient) {
		if minDelay > 0 && maxDelay >= minDelay {
			c.waiterMinDelay = minDelay
			c.waiterMaxDelay = maxDelay
		}
	}
}

func NewAWSClient(ctx context.Context, region string, ec2Client EC2Client, logger *flog.Logger, opts ...Option) (*AWSClient, error) {
	if ec2Client == nil {
		return nil, errors.New("ec2 client is required")
	}

	client := &AWSClient{
		region:         region,
		logger:         logger,
		ec2Client:      ec2Client,
		waitTimeout:    DefaultWaitTimeout,
		waiterMinDelay: defaultWaiterMinDelay,
		waiterMaxDelay: defaultWaiterMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}

	logger.Debug("aws client initialised",
		zap.String("region", region),
		zap.Duration("wait_timeout", client.waitTimeout),
	)

	return client, nil
}

func (c *AWSClient) Region() string {
	return c.region
}

// apiErrorFields exposes the AWS error code, if any, as log fields.
func apiErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields,
			zap.String("error_code", apiErr.ErrorCode()),
			zap.String("error_message", apiErr.ErrorMessage()),
		)
	}
	return fields
}
