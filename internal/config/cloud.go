package config

import "time"

// CloudCfg drives the EC2 provisioner.
type CloudCfg struct {
	Region          string
	ImageID         string
	SubnetID        string
	SecurityGroupID string
	KeyName         string

	// Instance types per cost tier
	SmallType       string
	StandardType    string
	PerformanceType string

	// How long to wait for a launched instance to expose an address.
	AddrWaitInterval time.Duration
	AddrWaitBudget   time.Duration
}

func NewCloudCfg() *CloudCfg {
	return &CloudCfg{
		Region:           envStr("AWS_REGION", "us-east-1"),
		ImageID:          envStr("JUDGE_IMAGE_ID", ""),
		SubnetID:         envStr("JUDGE_SUBNET_ID", ""),
		SecurityGroupID:  envStr("JUDGE_SECURITY_GROUP_ID", ""),
		KeyName:          envStr("JUDGE_KEY_NAME", ""),
		SmallType:        envStr("INSTANCE_TYPE_SMALL", "t3.medium"),
		StandardType:     envStr("INSTANCE_TYPE_STANDARD", "c5.xlarge"),
		PerformanceType:  envStr("INSTANCE_TYPE_PERFORMANCE", "c5.2xlarge"),
		AddrWaitInterval: envSeconds("INSTANCE_ADDR_WAIT_INTERVAL_SEC", 3*time.Second),
		AddrWaitBudget:   envSeconds("INSTANCE_ADDR_WAIT_BUDGET_SEC", 60*time.Second),
	}
}
