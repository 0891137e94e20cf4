package stack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCloudFormationAPI implements aws.CloudFormationAPI for testing
type mockCloudFormationAPI struct {
	validateTemplateFunc  func(ctx context.Context, params *cloudformation.ValidateTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ValidateTemplateOutput, error)
	describeStacksFunc    func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	createStackFunc       func(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	updateStackFunc       func(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
	deleteStackFunc       func(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
	createChangeSetFunc   func(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error)
	executeChangeSetFunc  func(ctx context.Context, params *cloudformation.ExecuteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error)
	describeChangeSetFunc func(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error)

	describeStacksCalls   int
	createStackCalls      int
	updateStackCalls      int
	deleteStackCalls      int
	createChangeSetCalls  int
	executeChangeSetCalls int
}

func (m *mockCloudFormationAPI) ValidateTemplate(ctx context.Context, params *cloudformation.ValidateTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ValidateTemplateOutput, error) {
	if m.validateTemplateFunc != nil {
		return m.validateTemplateFunc(ctx, params, optFns...)
	}
	return &cloudformation.ValidateTemplateOutput{}, nil
}

func (m *mockCloudFormationAPI) DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	m.describeStacksCalls++
	if m.describeStacksFunc != nil {
		return m.describeStacksFunc(ctx, params, optFns...)
	}
	return &cloudformation.DescribeStacksOutput{}, nil
}

func (m *mockCloudFormationAPI) CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	m.createStackCalls++
	if m.createStackFunc != nil {
		return m.createStackFunc(ctx, params, optFns...)
	}
	return &cloudformation.CreateStackOutput{}, nil
}

func (m *mockCloudFormationAPI) UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
	m.updateStackCalls++
	if m.updateStackFunc != nil {
		return m.updateStackFunc(ctx, params, optFns...)
	}
	return &cloudformation.UpdateStackOutput{}, nil
}

func (m *mockCloudFormationAPI) DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	m.deleteStackCalls++
	if m.deleteStackFunc != nil {
		return m.deleteStackFunc(ctx, params, optFns...)
	}
	return &cloudformation.DeleteStackOutput{}, nil
}

func (m *mockCloudFormationAPI) CreateChangeSet(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	m.createChangeSetCalls++
	if m.createChangeSetFunc != nil {
		return m.createChangeSetFunc(ctx, params, optFns...)
	}
	return &cloudformation.CreateChangeSetOutput{}, nil
}

func (m *mockCloudFormationAPI) ExecuteChangeSet(ctx context.Context, params *cloudformation.ExecuteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error) {
	m.executeChangeSetCalls++
	if m.executeChangeSetFunc != nil {
		return m.executeChangeSetFunc(ctx, params, optFns...)
	}
	return &cloudformation.ExecuteChangeSetOutput{}, nil
}

func (m *mockCloudFormationAPI) DescribeChangeSet(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	if m.describeChangeSetFunc != nil {
		return m.describeChangeSetFunc(ctx, params, optFns...)
	}
	return &cloudformation.DescribeChangeSetOutput{}, nil
}

func stackNotFoundError(stackName string) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: fmt.Sprintf("Stack with id %s does not exist", stackName),
		Fault:   smithy.FaultClient,
	}
}

func describeStacksOutput(stackName string, status types.StackStatus) *cloudformation.DescribeStacksOutput {
	return &cloudformation.DescribeStacksOutput{
		Stacks: []types.Stack{
			{
				StackName:   aws.String(stackName),
				StackStatus: status,
			},
		},
	}
}

func newTestDeployer(t *testing.T, mock *mockCloudFormationAPI, req Request) *Deployer {
	t.Helper()

	deployer, err := NewDeployer(mock, req)
	require.NoError(t, err)
	deployer.SetOutput(io.Discard)
	return deployer
}

func TestDeployer_SetWaitTimeout(t *testing.T) {
	deployer := newTestDeployer(t, &mockCloudFormationAPI{}, Request{StackName: "test-stack", TemplateBody: "{}"})

	assert.Equal(t, defaultWaitTimeout, deployer.waitTimeout)

	deployer.SetWaitTimeout(5 * time.Minute)
	assert.Equal(t, 5*time.Minute, deployer.waitTimeout)
}

func TestNewDeployer_EmptyStackName(t *testing.T) {
	mock := &mockCloudFormationAPI{}

	_, err := NewDeployer(mock, Request{TemplateBody: "{}"})

	var emptyName *EmptyStackNameError
	require.ErrorAs(t, err, &emptyName)
	assert.Zero(t, mock.describeStacksCalls)
}

func TestDeployer_ValidateTemplate(t *testing.T) {
	templateFile := filepath.Join(t.TempDir(), "template.yaml")
	require.NoError(t, os.WriteFile(templateFile, []byte("Resources: {}\n"), 0o644))

	tests := []struct {
		name             string
		req              Request
		validateErr      error
		expectedBody     string
		expectedURL      string
		wantNotSpecified bool
		wantValidation   bool
	}{
		{
			name:         "literal template body",
			req:          Request{StackName: "test-stack", TemplateBody: "Resources: {}"},
			expectedBody: "Resources: {}",
		},
		{
			name:         "template body naming a local file is inlined",
			req:          Request{StackName: "test-stack", TemplateBody: templateFile},
			expectedBody: "Resources: {}\n",
		},
		{
			name:        "template URL",
			req:         Request{StackName: "test-stack", TemplateURL: "https://bucket.s3.amazonaws.com/template.yaml"},
			expectedURL: "https://bucket.s3.amazonaws.com/template.yaml",
		},
		{
			name:             "no template source",
			req:              Request{StackName: "test-stack"},
			wantNotSpecified: true,
		},
		{
			name:           "remote validation failure",
			req:            Request{StackName: "test-stack", TemplateBody: "not a template"},
			validateErr:    &smithy.GenericAPIError{Code: "ValidationError", Message: "Invalid template"},
			wantValidation: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotInput *cloudformation.ValidateTemplateInput
			mock := &mockCloudFormationAPI{
				validateTemplateFunc: func(ctx context.Context, params *cloudformation.ValidateTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ValidateTemplateOutput, error) {
					gotInput = params
					if tt.validateErr != nil {
						return nil, tt.validateErr
					}
					return &cloudformation.ValidateTemplateOutput{}, nil
				},
			}

			deployer := newTestDeployer(t, mock, tt.req)
			err := deployer.ValidateTemplate(context.Background())

			switch {
			case tt.wantNotSpecified:
				var notSpecified *TemplateNotSpecifiedError
				assert.ErrorAs(t, err, &notSpecified)
				assert.Nil(t, gotInput)
			case tt.wantValidation:
				var validation *TemplateValidationError
				require.ErrorAs(t, err, &validation)
				assert.ErrorContains(t, validation.Cause, "Invalid template")
			default:
				require.NoError(t, err)
				require.NotNil(t, gotInput)
				if tt.expectedBody != "" {
					assert.Equal(t, tt.expectedBody, aws.ToString(gotInput.TemplateBody))
				}
				if tt.expectedURL != "" {
					assert.Equal(t, tt.expectedURL, aws.ToString(gotInput.TemplateURL))
				}
			}
		})
	}
}

func TestDeployer_Create_StackAlreadyExists(t *testing.T) {
	mock := &mockCloudFormationAPI{
		describeStacksFunc: func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
			return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
		},
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

	err := deployer.Create(context.Background())

	var alreadyExists *StackAlreadyExistsError
	require.ErrorAs(t, err, &alreadyExists)
	assert.Equal(t, "test-stack", alreadyExists.StackName)
	assert.Zero(t, mock.createStackCalls)
}

func TestDeployer_Create_Success(t *testing.T) {
	mock := &mockCloudFormationAPI{}
	mock.describeStacksFunc = func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
		// Absent for the existence check, then complete for the waiter.
		if mock.describeStacksCalls == 1 {
			return nil, stackNotFoundError("test-stack")
		}
		return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

	err := deployer.Create(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, mock.createStackCalls)
}

func TestDeployer_Create_ReviewInProgressDoesNotCountAsExisting(t *testing.T) {
	mock := &mockCloudFormationAPI{}
	mock.describeStacksFunc = func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
		if mock.describeStacksCalls == 1 {
			return describeStacksOutput("test-stack", types.StackStatusReviewInProgress), nil
		}
		return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

	err := deployer.Create(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, mock.createStackCalls)
}

func TestDeployer_Update_StackDoesntExist(t *testing.T) {
	mock := &mockCloudFormationAPI{
		describeStacksFunc: func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
			return nil, stackNotFoundError("test-stack")
		},
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

	err := deployer.Update(context.Background())

	var doesntExist *StackDoesntExistError
	require.ErrorAs(t, err, &doesntExist)
	assert.Zero(t, mock.updateStackCalls)
}

func TestDeployer_Update_NoOp(t *testing.T) {
	mock := &mockCloudFormationAPI{
		describeStacksFunc: func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
			return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
		},
		updateStackFunc: func(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
			return nil, &smithy.GenericAPIError{
				Code:    "ValidationError",
				Message: "No updates are to be performed.",
			}
		},
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

	err := deployer.Update(context.Background())

	var noOp *UpdateNoOpError
	require.ErrorAs(t, err, &noOp)
	assert.Equal(t, "test-stack", noOp.StackName)
}

func TestDeployer_Update_Success(t *testing.T) {
	mock := &mockCloudFormationAPI{}
	mock.describeStacksFunc = func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
		if mock.describeStacksCalls == 1 {
			return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
		}
		return describeStacksOutput("test-stack", types.StackStatusUpdateComplete), nil
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

	err := deployer.Update(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, mock.updateStackCalls)
}

func TestDeployer_Delete_StackDoesntExist(t *testing.T) {
	mock := &mockCloudFormationAPI{
		describeStacksFunc: func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
			return nil, stackNotFoundError("test-stack")
		},
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack"})

	err := deployer.Delete(context.Background())

	var doesntExist *StackDoesntExistError
	require.ErrorAs(t, err, &doesntExist)
	assert.Zero(t, mock.deleteStackCalls)
}

func TestDeployer_Delete_Success(t *testing.T) {
	mock := &mockCloudFormationAPI{}
	mock.describeStacksFunc = func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
		if mock.describeStacksCalls == 1 {
			return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
		}
		return describeStacksOutput("test-stack", types.StackStatusDeleteComplete), nil
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack"})

	err := deployer.Delete(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, mock.deleteStackCalls)
}

func TestDeployer_Deploy_ChangeSetType(t *testing.T) {
	tests := []struct {
		name         string
		exists       bool
		expectedType types.ChangeSetType
	}{
		{
			name:         "absent stack gets a CREATE change set",
			exists:       false,
			expectedType: types.ChangeSetTypeCreate,
		},
		{
			name:         "existing stack gets an UPDATE change set",
			exists:       true,
			expectedType: types.ChangeSetTypeUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotInput *cloudformation.CreateChangeSetInput
			mock := &mockCloudFormationAPI{
				describeStacksFunc: func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
					if tt.exists {
						return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
					}
					return nil, stackNotFoundError("test-stack")
				},
				createChangeSetFunc: func(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
					gotInput = params
					return &cloudformation.CreateChangeSetOutput{}, nil
				},
				describeChangeSetFunc: func(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
					return &cloudformation.DescribeChangeSetOutput{Status: types.ChangeSetStatusCreateComplete}, nil
				},
			}
			deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

			err := deployer.Deploy(context.Background(), false)

			require.NoError(t, err)
			require.NotNil(t, gotInput)
			assert.Equal(t, tt.expectedType, gotInput.ChangeSetType)
			assert.True(t, strings.HasPrefix(aws.ToString(gotInput.ChangeSetName), changeSetNamePrefix))
			assert.Zero(t, mock.executeChangeSetCalls)
		})
	}
}

func TestDeployer_Deploy_EmptyChangeSet(t *testing.T) {
	tests := []struct {
		name   string
		reason string
	}{
		{
			name:   "no updates phrasing",
			reason: "No updates are to be performed.",
		},
		{
			name:   "no changes phrasing",
			reason: "The submitted information didn't contain changes. Submit different information to create a change set.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCloudFormationAPI{
				describeStacksFunc: func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
					return describeStacksOutput("test-stack", types.StackStatusUpdateComplete), nil
				},
				describeChangeSetFunc: func(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
					return &cloudformation.DescribeChangeSetOutput{
						Status:       types.ChangeSetStatusFailed,
						StatusReason: aws.String(tt.reason),
					}, nil
				},
			}
			deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

			err := deployer.Deploy(context.Background(), true)

			var emptyChangeSet *EmptyChangeSetError
			require.ErrorAs(t, err, &emptyChangeSet)
			assert.Equal(t, "test-stack", emptyChangeSet.StackName)
			assert.Zero(t, mock.executeChangeSetCalls)
		})
	}
}

func TestDeployer_Deploy_GenuineChangeSetFailure(t *testing.T) {
	mock := &mockCloudFormationAPI{
		describeStacksFunc: func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
			return describeStacksOutput("test-stack", types.StackStatusUpdateComplete), nil
		},
		describeChangeSetFunc: func(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
			return &cloudformation.DescribeChangeSetOutput{
				Status:       types.ChangeSetStatusFailed,
				StatusReason: aws.String("Access denied for resource provisioning"),
			}, nil
		},
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

	err := deployer.Deploy(context.Background(), true)

	require.Error(t, err)
	var emptyChangeSet *EmptyChangeSetError
	assert.False(t, errors.As(err, &emptyChangeSet))
	assert.Zero(t, mock.executeChangeSetCalls)
}

func TestDeployer_Deploy_CreateFlow(t *testing.T) {
	mock := &mockCloudFormationAPI{
		describeChangeSetFunc: func(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
			return &cloudformation.DescribeChangeSetOutput{Status: types.ChangeSetStatusCreateComplete}, nil
		},
	}
	mock.describeStacksFunc = func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
		if mock.describeStacksCalls == 1 {
			return nil, stackNotFoundError("test-stack")
		}
		return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

	err := deployer.Deploy(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, 1, mock.createChangeSetCalls)
	assert.Equal(t, 1, mock.executeChangeSetCalls)
}

func TestDeployer_Deploy_ExecutionFailureWrapsDeployFailed(t *testing.T) {
	mock := &mockCloudFormationAPI{
		describeChangeSetFunc: func(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
			return &cloudformation.DescribeChangeSetOutput{Status: types.ChangeSetStatusCreateComplete}, nil
		},
	}
	mock.describeStacksFunc = func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
		if mock.describeStacksCalls == 1 {
			return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
		}
		// The execution waiter observes a rollback, a failure state.
		return describeStacksOutput("test-stack", types.StackStatusUpdateRollbackComplete), nil
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack", TemplateBody: "{}"})

	err := deployer.Deploy(context.Background(), true)

	var deployFailed *DeployFailedError
	require.ErrorAs(t, err, &deployFailed)
	assert.Equal(t, "test-stack", deployFailed.StackName)
	assert.Error(t, deployFailed.Cause)
}

func TestDeployer_Deploy_SuppliedChangeSetNameIsKept(t *testing.T) {
	var gotInput *cloudformation.CreateChangeSetInput
	mock := &mockCloudFormationAPI{
		describeStacksFunc: func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
			return describeStacksOutput("test-stack", types.StackStatusCreateComplete), nil
		},
		createChangeSetFunc: func(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
			gotInput = params
			return &cloudformation.CreateChangeSetOutput{}, nil
		},
		describeChangeSetFunc: func(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
			return &cloudformation.DescribeChangeSetOutput{Status: types.ChangeSetStatusCreateComplete}, nil
		},
	}
	deployer := newTestDeployer(t, mock, Request{
		StackName:     "test-stack",
		TemplateBody:  "{}",
		ChangeSetName: "my-change-set",
	})

	err := deployer.Deploy(context.Background(), false)

	require.NoError(t, err)
	require.NotNil(t, gotInput)
	assert.Equal(t, "my-change-set", aws.ToString(gotInput.ChangeSetName))
	assert.Equal(t, "my-change-set", deployer.ChangeSetName())
}

func TestDeployer_DescribeStacksErrorPropagates(t *testing.T) {
	mock := &mockCloudFormationAPI{
		describeStacksFunc: func(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized"}
		},
	}
	deployer := newTestDeployer(t, mock, Request{StackName: "test-stack"})

	err := deployer.Delete(context.Background())

	require.Error(t, err)
	var doesntExist *StackDoesntExistError
	assert.False(t, errors.As(err, &doesntExist))
	assert.Zero(t, mock.deleteStackCalls)
}
