package stack

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// Request is the union of all parameters accepted for a stack operation.
// Each remote call sees only the fields it accepts: the per-operation input
// builders below copy a fixed set of fields into the SDK's typed input
// struct, so operation-irrelevant fields never leak into a call that would
// reject them.
type Request struct {
	StackName string

	// Template source. Exactly one of TemplateBody or TemplateURL must be
	// set. TemplateBody may be either a literal template or the path to a
	// local template file, which is read and inlined during validation.
	TemplateBody string
	TemplateURL  string

	Parameters         []types.Parameter
	Capabilities       []types.Capability
	Tags               []types.Tag
	NotificationARNs   []string
	ResourceTypes      []string
	RoleARN            string
	StackPolicyBody    string
	StackPolicyURL     string
	ClientRequestToken string

	// Create-only fields
	DisableRollback  *bool
	TimeoutInMinutes *int32
	OnFailure        types.OnFailure

	// Update-only fields
	UsePreviousTemplate         *bool
	StackPolicyDuringUpdateBody string
	StackPolicyDuringUpdateURL  string

	// Delete-only fields
	RetainResources []string

	// Change-set fields. ChangeSetName is synthesized when empty.
	ChangeSetName        string
	ChangeSetDescription string
}

// Validate checks the request's local invariants. It must be called (and
// must pass) before any client or session is constructed.
func (r *Request) Validate() error {
	if r.StackName == "" {
		return &EmptyStackNameError{}
	}
	return nil
}

func (r *Request) describeStacksInput() *cloudformation.DescribeStacksInput {
	return &cloudformation.DescribeStacksInput{
		StackName: aws.String(r.StackName),
	}
}

func (r *Request) createStackInput() *cloudformation.CreateStackInput {
	return &cloudformation.CreateStackInput{
		StackName:          aws.String(r.StackName),
		TemplateBody:       nz(r.TemplateBody),
		TemplateURL:        nz(r.TemplateURL),
		Parameters:         r.Parameters,
		Capabilities:       r.Capabilities,
		Tags:               r.Tags,
		NotificationARNs:   r.NotificationARNs,
		ResourceTypes:      r.ResourceTypes,
		RoleARN:            nz(r.RoleARN),
		StackPolicyBody:    nz(r.StackPolicyBody),
		StackPolicyURL:     nz(r.StackPolicyURL),
		ClientRequestToken: nz(r.ClientRequestToken),
		DisableRollback:    r.DisableRollback,
		TimeoutInMinutes:   r.TimeoutInMinutes,
		OnFailure:          r.OnFailure,
	}
}

func (r *Request) updateStackInput() *cloudformation.UpdateStackInput {
	return &cloudformation.UpdateStackInput{
		StackName:                   aws.String(r.StackName),
		TemplateBody:                nz(r.TemplateBody),
		TemplateURL:                 nz(r.TemplateURL),
		Parameters:                  r.Parameters,
		Capabilities:                r.Capabilities,
		Tags:                        r.Tags,
		NotificationARNs:            r.NotificationARNs,
		ResourceTypes:               r.ResourceTypes,
		RoleARN:                     nz(r.RoleARN),
		StackPolicyBody:             nz(r.StackPolicyBody),
		StackPolicyURL:              nz(r.StackPolicyURL),
		ClientRequestToken:          nz(r.ClientRequestToken),
		UsePreviousTemplate:         r.UsePreviousTemplate,
		StackPolicyDuringUpdateBody: nz(r.StackPolicyDuringUpdateBody),
		StackPolicyDuringUpdateURL:  nz(r.StackPolicyDuringUpdateURL),
	}
}

func (r *Request) deleteStackInput() *cloudformation.DeleteStackInput {
	return &cloudformation.DeleteStackInput{
		StackName:          aws.String(r.StackName),
		RetainResources:    r.RetainResources,
		RoleARN:            nz(r.RoleARN),
		ClientRequestToken: nz(r.ClientRequestToken),
	}
}

func (r *Request) createChangeSetInput(name string, csType types.ChangeSetType) *cloudformation.CreateChangeSetInput {
	return &cloudformation.CreateChangeSetInput{
		StackName:           aws.String(r.StackName),
		ChangeSetName:       aws.String(name),
		ChangeSetType:       csType,
		Description:         nz(r.ChangeSetDescription),
		TemplateBody:        nz(r.TemplateBody),
		TemplateURL:         nz(r.TemplateURL),
		Parameters:          r.Parameters,
		Capabilities:        r.Capabilities,
		Tags:                r.Tags,
		NotificationARNs:    r.NotificationARNs,
		ResourceTypes:       r.ResourceTypes,
		RoleARN:             nz(r.RoleARN),
		UsePreviousTemplate: r.UsePreviousTemplate,
		ClientToken:         nz(r.ClientRequestToken),
	}
}

func (r *Request) executeChangeSetInput(name string) *cloudformation.ExecuteChangeSetInput {
	return &cloudformation.ExecuteChangeSetInput{
		StackName:          aws.String(r.StackName),
		ChangeSetName:      aws.String(name),
		ClientRequestToken: nz(r.ClientRequestToken),
	}
}

func (r *Request) describeChangeSetInput(name string) *cloudformation.DescribeChangeSetInput {
	return &cloudformation.DescribeChangeSetInput{
		StackName:     aws.String(r.StackName),
		ChangeSetName: aws.String(name),
	}
}

// nz converts a string to a pointer, mapping the empty string to nil so
// unset fields stay absent from the wire request.
func nz(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
