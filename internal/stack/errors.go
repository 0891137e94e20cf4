package stack

import "fmt"

// EmptyStackNameError indicates a request was constructed without a stack name.
type EmptyStackNameError struct{}

func (e *EmptyStackNameError) Error() string {
	return "StackName is required"
}

// TemplateNotSpecifiedError indicates neither a template body nor a template
// URL was supplied.
type TemplateNotSpecifiedError struct{}

func (e *TemplateNotSpecifiedError) Error() string {
	return "TemplateBody or TemplateURL is required"
}

// TemplateValidationError wraps a failure from the remote template validation.
type TemplateValidationError struct {
	Cause error
}

func (e *TemplateValidationError) Error() string {
	return fmt.Sprintf("template is not valid: %v", e.Cause)
}

func (e *TemplateValidationError) Unwrap() error {
	return e.Cause
}

// EmptyChangeSetError indicates the computed change set contained no changes.
// This is the expected outcome of deploying a template that matches the
// deployed stack, not a provisioning failure.
type EmptyChangeSetError struct {
	StackName string
}

func (e *EmptyChangeSetError) Error() string {
	return fmt.Sprintf("no changes to deploy, stack %s is up to date", e.StackName)
}

// UpdateNoOpError indicates an update was submitted but the service reported
// nothing to change.
type UpdateNoOpError struct {
	StackName string
}

func (e *UpdateNoOpError) Error() string {
	return fmt.Sprintf("no changes to update, stack %s is up to date", e.StackName)
}

// StackDoesntExistError indicates an operation requiring an existing stack was
// attempted against an absent one.
type StackDoesntExistError struct {
	StackName string
}

func (e *StackDoesntExistError) Error() string {
	return fmt.Sprintf("stack %s doesn't exist", e.StackName)
}

// StackAlreadyExistsError indicates a create was attempted against a stack
// that already exists.
type StackAlreadyExistsError struct {
	StackName string
}

func (e *StackAlreadyExistsError) Error() string {
	return fmt.Sprintf("stack %s already exists", e.StackName)
}

// DeployFailedError wraps a failed or timed-out change set execution.
type DeployFailedError struct {
	StackName string
	Cause     error
}

func (e *DeployFailedError) Error() string {
	return fmt.Sprintf("failed to create/update stack %s: %v", e.StackName, e.Cause)
}

func (e *DeployFailedError) Unwrap() error {
	return e.Cause
}
