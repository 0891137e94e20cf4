package stack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"

	awsclient "github.com/cfn-tools/cfndeploy/internal/aws"
)

const (
	changeSetNamePrefix = "stack-change-set-"

	// waiterMinDelay is the fixed inter-poll delay for all waiters.
	waiterMinDelay = 5 * time.Second

	defaultWaitTimeout = 60 * time.Minute
)

// noChangeReasons are the status-reason phrasings CloudFormation uses when a
// change set fails because the submitted template matches the deployed stack.
var noChangeReasons = []string{
	"No updates are to be performed",
	"The submitted information didn't contain changes",
}

// Deployer drives the lifecycle of a single stack. Remote state is never
// cached: every mutating operation re-checks stack existence with a live
// query immediately before acting, because the service is the only system
// of record and state can change between invocations.
type Deployer struct {
	api         awsclient.CloudFormationAPI
	req         Request
	out         io.Writer
	waitTimeout time.Duration

	// Recorded when the change set is submitted, consumed by the
	// execution wait to pick the matching waiter.
	changeSetName string
	changeSetType types.ChangeSetType
}

// NewDeployer validates the request and returns a deployer for it. The
// request is owned by this deployer; it is not shared across runs.
func NewDeployer(api awsclient.CloudFormationAPI, req Request) (*Deployer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &Deployer{
		api:         api,
		req:         req,
		out:         os.Stdout,
		waitTimeout: defaultWaitTimeout,
	}, nil
}

// SetOutput redirects the one-line progress statements. Progress output is
// purely advisory; pass io.Discard in non-interactive contexts.
func (d *Deployer) SetOutput(w io.Writer) {
	d.out = w
}

// SetWaitTimeout bounds how long each waiter polls before giving up.
func (d *Deployer) SetWaitTimeout(timeout time.Duration) {
	d.waitTimeout = timeout
}

// ChangeSetName returns the change set name recorded by the last Deploy.
func (d *Deployer) ChangeSetName() string {
	return d.changeSetName
}

// ValidateTemplate resolves the template source and validates it against the
// remote service. A TemplateBody that names an existing local file is read
// and inlined first.
func (d *Deployer) ValidateTemplate(ctx context.Context) error {
	switch {
	case d.req.TemplateBody != "":
		if info, err := os.Stat(d.req.TemplateBody); err == nil && !info.IsDir() {
			body, err := os.ReadFile(d.req.TemplateBody)
			if err != nil {
				return &TemplateValidationError{Cause: err}
			}
			d.req.TemplateBody = string(body)
		}
		input := &cloudformation.ValidateTemplateInput{
			TemplateBody: aws.String(d.req.TemplateBody),
		}
		if _, err := d.api.ValidateTemplate(ctx, input); err != nil {
			return &TemplateValidationError{Cause: err}
		}
	case d.req.TemplateURL != "":
		input := &cloudformation.ValidateTemplateInput{
			TemplateURL: aws.String(d.req.TemplateURL),
		}
		if _, err := d.api.ValidateTemplate(ctx, input); err != nil {
			return &TemplateValidationError{Cause: err}
		}
	default:
		return &TemplateNotSpecifiedError{}
	}

	return nil
}

// Deploy creates a change set for the stack, waits for it to compute, and,
// when executeChangeSet is set, executes it and blocks until the stack
// reaches its terminal status. An empty diff surfaces as *EmptyChangeSetError
// without attempting execution.
func (d *Deployer) Deploy(ctx context.Context, executeChangeSet bool) error {
	if err := d.ValidateTemplate(ctx); err != nil {
		return err
	}
	if err := d.createChangeSet(ctx); err != nil {
		return err
	}
	if err := d.waitForChangeSet(ctx); err != nil {
		return err
	}

	if !executeChangeSet {
		return nil
	}

	fmt.Fprintf(d.out, "Deploying stack %s...\n", d.req.StackName)
	if _, err := d.api.ExecuteChangeSet(ctx, d.req.executeChangeSetInput(d.changeSetName)); err != nil {
		return err
	}
	return d.waitForExecution(ctx)
}

// Create creates the stack and blocks until creation completes. It fails
// with *StackAlreadyExistsError, before issuing the create call, when the
// stack already exists.
func (d *Deployer) Create(ctx context.Context) error {
	if err := d.ValidateTemplate(ctx); err != nil {
		return err
	}

	exists, err := d.stackExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return &StackAlreadyExistsError{StackName: d.req.StackName}
	}

	fmt.Fprintf(d.out, "Creating stack %s...\n", d.req.StackName)
	if _, err := d.api.CreateStack(ctx, d.req.createStackInput()); err != nil {
		return err
	}

	waiter := cloudformation.NewStackCreateCompleteWaiter(d.api, func(o *cloudformation.StackCreateCompleteWaiterOptions) {
		o.MinDelay = waiterMinDelay
	})
	return waiter.Wait(ctx, d.req.describeStacksInput(), d.waitTimeout)
}

// Update updates the stack and blocks until the update completes. It fails
// with *StackDoesntExistError, before issuing the update call, when the
// stack does not exist. A service-reported "nothing to update" response
// surfaces as *UpdateNoOpError.
func (d *Deployer) Update(ctx context.Context) error {
	if err := d.ValidateTemplate(ctx); err != nil {
		return err
	}

	exists, err := d.stackExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return &StackDoesntExistError{StackName: d.req.StackName}
	}

	fmt.Fprintf(d.out, "Updating stack %s...\n", d.req.StackName)
	if _, err := d.api.UpdateStack(ctx, d.req.updateStackInput()); err != nil {
		if isNoUpdateError(err) {
			return &UpdateNoOpError{StackName: d.req.StackName}
		}
		return err
	}

	waiter := cloudformation.NewStackUpdateCompleteWaiter(d.api, func(o *cloudformation.StackUpdateCompleteWaiterOptions) {
		o.MinDelay = waiterMinDelay
	})
	return waiter.Wait(ctx, d.req.describeStacksInput(), d.waitTimeout)
}

// Delete deletes the stack and blocks until deletion completes. It fails
// with *StackDoesntExistError, before issuing the delete call, when the
// stack does not exist.
func (d *Deployer) Delete(ctx context.Context) error {
	exists, err := d.stackExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return &StackDoesntExistError{StackName: d.req.StackName}
	}

	fmt.Fprintf(d.out, "Deleting stack %s...\n", d.req.StackName)
	if _, err := d.api.DeleteStack(ctx, d.req.deleteStackInput()); err != nil {
		return err
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(d.api, func(o *cloudformation.StackDeleteCompleteWaiterOptions) {
		o.MinDelay = waiterMinDelay
	})
	return waiter.Wait(ctx, d.req.describeStacksInput(), d.waitTimeout)
}

// describeStack returns the live stack record, or nil when the stack does
// not exist. Only the service's "does not exist" validation error maps to
// absence; anything else propagates.
func (d *Deployer) describeStack(ctx context.Context) (*types.Stack, error) {
	output, err := d.api.DescribeStacks(ctx, d.req.describeStacksInput())
	if err != nil {
		if isStackNotFoundError(err, d.req.StackName) {
			return nil, nil
		}
		return nil, err
	}

	if len(output.Stacks) == 0 {
		return nil, nil
	}
	return &output.Stacks[0], nil
}

// stackExists reports whether the stack exists as a real stack. A stack in
// REVIEW_IN_PROGRESS has only a pending change set preview and does not
// count as existing.
func (d *Deployer) stackExists(ctx context.Context) (bool, error) {
	stack, err := d.describeStack(ctx)
	if err != nil {
		return false, err
	}
	if stack == nil {
		return false, nil
	}
	return stack.StackStatus != types.StackStatusReviewInProgress, nil
}

// createChangeSet submits the change set, synthesizing a unique name when
// none was supplied and selecting the type from live stack existence.
func (d *Deployer) createChangeSet(ctx context.Context) error {
	name := d.req.ChangeSetName
	if name == "" {
		name = changeSetNamePrefix + strconv.FormatInt(time.Now().Unix(), 10)
	}
	d.changeSetName = name

	exists, err := d.stackExists(ctx)
	if err != nil {
		return err
	}
	d.changeSetType = types.ChangeSetTypeUpdate
	if !exists {
		d.changeSetType = types.ChangeSetTypeCreate
	}

	_, err = d.api.CreateChangeSet(ctx, d.req.createChangeSetInput(name, d.changeSetType))
	return err
}

// waitForChangeSet blocks until the change set reaches a terminal state.
// A FAILED change set whose status reason indicates an empty diff surfaces
// as *EmptyChangeSetError; all other failures propagate.
func (d *Deployer) waitForChangeSet(ctx context.Context) error {
	waiter := cloudformation.NewChangeSetCreateCompleteWaiter(d.api, func(o *cloudformation.ChangeSetCreateCompleteWaiterOptions) {
		o.MinDelay = waiterMinDelay
	})

	err := waiter.Wait(ctx, d.req.describeChangeSetInput(d.changeSetName), d.waitTimeout)
	if err == nil {
		return nil
	}

	output, describeErr := d.api.DescribeChangeSet(ctx, d.req.describeChangeSetInput(d.changeSetName))
	if describeErr == nil &&
		output.Status == types.ChangeSetStatusFailed &&
		isNoChangeReason(aws.ToString(output.StatusReason)) {
		return &EmptyChangeSetError{StackName: d.req.StackName}
	}

	return err
}

// waitForExecution blocks until the executed change set's stack reaches the
// complete status matching the recorded change set type.
func (d *Deployer) waitForExecution(ctx context.Context) error {
	var err error
	switch d.changeSetType {
	case types.ChangeSetTypeCreate:
		waiter := cloudformation.NewStackCreateCompleteWaiter(d.api, func(o *cloudformation.StackCreateCompleteWaiterOptions) {
			o.MinDelay = waiterMinDelay
		})
		err = waiter.Wait(ctx, d.req.describeStacksInput(), d.waitTimeout)
	case types.ChangeSetTypeUpdate:
		waiter := cloudformation.NewStackUpdateCompleteWaiter(d.api, func(o *cloudformation.StackUpdateCompleteWaiterOptions) {
			o.MinDelay = waiterMinDelay
		})
		err = waiter.Wait(ctx, d.req.describeStacksInput(), d.waitTimeout)
	}

	if err != nil {
		return &DeployFailedError{StackName: d.req.StackName, Cause: err}
	}
	return nil
}

func isNoChangeReason(reason string) bool {
	for _, msg := range noChangeReasons {
		if strings.Contains(reason, msg) {
			return true
		}
	}
	return false
}

func isStackNotFoundError(err error, stackName string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.ErrorMessage(), fmt.Sprintf("Stack with id %s does not exist", stackName))
}

func isNoUpdateError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
}
