package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Profile string
	Region  string

	// AssumeRole configuration
	AssumeRole *AssumeRoleCredentials
}

// AssumeRoleCredentials holds AssumeRole-specific configuration
type AssumeRoleCredentials struct {
	RoleARN     string
	SessionName string
	Duration    int32
	ExternalID  string
}

// NewSession loads the AWS configuration for the given profile and region,
// applying AssumeRole credentials when configured.
func NewSession(ctx context.Context, auth AuthConfig) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if auth.Profile != "" && auth.Profile != "default" {
		opts = append(opts, config.WithSharedConfigProfile(auth.Profile))
	}
	if auth.Region != "" {
		opts = append(opts, config.WithRegion(auth.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, &Error{
			Type:    ErrorTypePermission,
			Message: fmt.Sprintf("failed to load AWS config for profile '%s' in region '%s'", auth.Profile, auth.Region),
			Cause:   err,
		}
	}

	if auth.AssumeRole != nil {
		awsConfig = applyAssumeRole(awsConfig, auth.AssumeRole)
	}

	return awsConfig, nil
}

// applyAssumeRole applies AssumeRole configuration to the AWS config
func applyAssumeRole(awsConfig aws.Config, roleConfig *AssumeRoleCredentials) aws.Config {
	stsClient := sts.NewFromConfig(awsConfig)

	provider := stscreds.NewAssumeRoleProvider(stsClient, roleConfig.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = roleConfig.SessionName
		o.Duration = time.Duration(roleConfig.Duration) * time.Second
		if roleConfig.ExternalID != "" {
			o.ExternalID = aws.String(roleConfig.ExternalID)
		}
	})

	assumedConfig := awsConfig.Copy()
	assumedConfig.Credentials = aws.NewCredentialsCache(provider)

	return assumedConfig
}

// NewCloudFormationClient creates a CloudFormation service client from a
// loaded session.
func NewCloudFormationClient(cfg aws.Config) *cloudformation.Client {
	return cloudformation.NewFromConfig(cfg)
}

// NewS3Client creates an S3 service client from a loaded session.
func NewS3Client(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg)
}
