package aws

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"
)

// RateLimitedClient wraps the CloudFormation client with rate limiting and
// error handling. It deliberately performs no retries of its own: a
// definitive failure response from the service is surfaced as-is, and
// transient-retry policy stays in the SDK transport.
type RateLimitedClient struct {
	client  CloudFormationAPI
	limiter *rate.Limiter
	region  string
}

// NewRateLimitedClient creates a new rate-limited client
// AWS CloudFormation has default limits of ~10 requests per second
func NewRateLimitedClient(client CloudFormationAPI, region string) *RateLimitedClient {
	// Conservative rate limiting: 5 requests per second with burst of 10
	limiter := rate.NewLimiter(rate.Limit(5), 10)

	return &RateLimitedClient{
		client:  client,
		limiter: limiter,
		region:  region,
	}
}

var _ CloudFormationAPI = (*RateLimitedClient)(nil)

// ValidateTemplate implements CloudFormationAPI with rate limiting
func (r *RateLimitedClient) ValidateTemplate(ctx context.Context, params *cloudformation.ValidateTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ValidateTemplateOutput, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	output, err := r.client.ValidateTemplate(ctx, params, optFns...)
	return output, r.handleError(err)
}

// DescribeStacks implements CloudFormationAPI with rate limiting
func (r *RateLimitedClient) DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	output, err := r.client.DescribeStacks(ctx, params, optFns...)
	return output, r.handleError(err)
}

// CreateStack implements CloudFormationAPI with rate limiting
func (r *RateLimitedClient) CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	output, err := r.client.CreateStack(ctx, params, optFns...)
	return output, r.handleError(err)
}

// UpdateStack implements CloudFormationAPI with rate limiting
func (r *RateLimitedClient) UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	output, err := r.client.UpdateStack(ctx, params, optFns...)
	return output, r.handleError(err)
}

// DeleteStack implements CloudFormationAPI with rate limiting
func (r *RateLimitedClient) DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	output, err := r.client.DeleteStack(ctx, params, optFns...)
	return output, r.handleError(err)
}

// CreateChangeSet implements CloudFormationAPI with rate limiting
func (r *RateLimitedClient) CreateChangeSet(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	output, err := r.client.CreateChangeSet(ctx, params, optFns...)
	return output, r.handleError(err)
}

// ExecuteChangeSet implements CloudFormationAPI with rate limiting
func (r *RateLimitedClient) ExecuteChangeSet(ctx context.Context, params *cloudformation.ExecuteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	output, err := r.client.ExecuteChangeSet(ctx, params, optFns...)
	return output, r.handleError(err)
}

// DescribeChangeSet implements CloudFormationAPI with rate limiting
func (r *RateLimitedClient) DescribeChangeSet(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	output, err := r.client.DescribeChangeSet(ctx, params, optFns...)
	return output, r.handleError(err)
}

func (r *RateLimitedClient) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return &Error{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit context cancelled",
			Cause:   err,
		}
	}
	return nil
}

// handleError converts AWS errors to our custom error types. Service
// errors carrying domain meaning (validation failures, not-found) pass
// through untouched so callers can classify them.
func (r *RateLimitedClient) handleError(err error) error {
	if err == nil {
		return nil
	}

	// Handle AWS service errors
	var awsErr smithy.APIError
	if errors.As(err, &awsErr) {
		switch awsErr.ErrorCode() {
		case "AccessDenied", "UnauthorizedOperation":
			return &Error{
				Type:    ErrorTypePermission,
				Message: "insufficient AWS permissions",
				Cause:   err,
			}
		case "Throttling", "RequestLimitExceeded", "TooManyRequestsException":
			return &Error{
				Type:    ErrorTypeRateLimit,
				Message: "AWS API rate limit exceeded",
				Cause:   err,
			}
		case "InvalidParameterValue":
			if strings.Contains(awsErr.ErrorMessage(), "region") {
				return &Error{
					Type:    ErrorTypeInvalidRegion,
					Message: "invalid AWS region: " + r.region,
					Cause:   err,
				}
			}
		}
		return err
	}

	// Handle context errors
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: "request timeout or cancelled",
			Cause:   err,
		}
	}

	// Handle network-related errors
	errMsg := err.Error()
	if strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "timeout") {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: "network connectivity issue",
			Cause:   err,
		}
	}

	return err
}
