// package ec2 contains the AWS-backed cloud provisioner
package ec2

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

var _ secondary.CloudProvisioner = &Provisioner{}

// ec2API is the slice of the EC2 client the provisioner uses.
type ec2API interface {
	RunInstances(ctx context.Context, params *awsec2.RunInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.RunInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *awsec2.DescribeInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *awsec2.TerminateInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.TerminateInstancesOutput, error)
}

// Provisioner launches and releases EC2 instances running the judging image.
type Provisioner struct {
	client ec2API
	cfg    *config.CloudCfg
	logger primary.Logger
}

// NewProvisioner creates a new EC2 provisioner
func NewProvisioner(client ec2API, cfg *config.CloudCfg, logger primary.Logger) *Provisioner {
	return &Provisioner{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Launch requests one instance of the given class and waits until it exposes
// a private address.
func (p *Provisioner) Launch(ctx context.Context, class domain.InstanceClass) (*domain.Instance, error) {
	input := &awsec2.RunInstancesInput{
		ImageId:      aws.String(p.cfg.ImageID),
		InstanceType: ec2types.InstanceType(p.instanceType(class)),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		SubnetId:     aws.String(p.cfg.SubnetID),
		SecurityGroupIds: []string{
			p.cfg.SecurityGroupID,
		},
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags: []ec2types.Tag{
					{Key: aws.String("managed-by"), Value: aws.String("examgrid")},
					{Key: aws.String("instance-class"), Value: aws.String(string(class))},
				},
			},
		},
	}
	if p.cfg.KeyName != "" {
		input.KeyName = aws.String(p.cfg.KeyName)
	}

	out, err := p.client.RunInstances(ctx, input)
	if err != nil {
		p.logger.Error("Failed to launch instance", "class", class, "error", err)
		return nil, fmt.Errorf("failed to launch instance: %w", err)
	}
	if len(out.Instances) == 0 {
		return nil, fmt.Errorf("launch returned no instances")
	}

	instanceID := aws.ToString(out.Instances[0].InstanceId)
	p.logger.Info("Launched instance", "instanceID", instanceID, "class", class)

	addr, err := p.awaitAddress(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("instance %s has no address: %w", instanceID, err)
	}

	return &domain.Instance{ID: instanceID, Addr: addr}, nil
}

// Terminate releases an instance. Unknown or already-terminated instances
// are treated as success.
func (p *Provisioner) Terminate(ctx context.Context, instanceID string) error {
	_, err := p.client.TerminateInstances(ctx, &awsec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "InvalidInstanceID.NotFound", "IncorrectInstanceState":
				p.logger.Warn("Instance already gone", "instanceID", instanceID, "code", apiErr.ErrorCode())
				return nil
			}
		}
		p.logger.Error("Failed to terminate instance", "instanceID", instanceID, "error", err)
		return fmt.Errorf("failed to terminate instance %s: %w", instanceID, err)
	}

	p.logger.Info("Terminated instance", "instanceID", instanceID)
	return nil
}

// awaitAddress polls DescribeInstances until the instance reports a private
// IP or the wait budget runs out.
func (p *Provisioner) awaitAddress(ctx context.Context, instanceID string) (string, error) {
	deadline := time.Now().Add(p.cfg.AddrWaitBudget)
	ticker := time.NewTicker(p.cfg.AddrWaitInterval)
	defer ticker.Stop()

	for {
		addr, err := p.lookupAddress(ctx, instanceID)
		if err != nil {
			p.logger.Debug("Address lookup failed", "instanceID", instanceID, "error", err)
		} else if addr != "" {
			return addr, nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("no address after %s", p.cfg.AddrWaitBudget)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Provisioner) lookupAddress(ctx context.Context, instanceID string) (string, error) {
	out, err := p.client.DescribeInstances(ctx, &awsec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", err
	}
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			if aws.ToString(inst.InstanceId) != instanceID {
				continue
			}
			if inst.PrivateIpAddress != nil {
				return aws.ToString(inst.PrivateIpAddress), nil
			}
		}
	}
	return "", nil
}

func (p *Provisioner) instanceType(class domain.InstanceClass) string {
	switch class {
	case domain.InstanceClassSmall:
		return p.cfg.SmallType
	case domain.InstanceClassPerformance:
		return p.cfg.PerformanceType
	default:
		return p.cfg.StandardType
	}
}
