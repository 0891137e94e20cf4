package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/spf13/cobra"

	awsclient "github.com/cfn-tools/cfndeploy/internal/aws"
	"github.com/cfn-tools/cfndeploy/internal/config"
	"github.com/cfn-tools/cfndeploy/internal/packager"
	"github.com/cfn-tools/cfndeploy/internal/stack"
	"github.com/cfn-tools/cfndeploy/internal/uploader"
)

var (
	profile string
	region  string

	// AssumeRole parameters
	assumeRole  string
	sessionName string
	duration    int32
	externalID  string

	// package flags
	templateFile       string
	s3Bucket           string
	s3Prefix           string
	kmsKeyID           string
	forceUpload        bool
	outputTemplateFile string
	useJSON            bool

	// stack flags
	stackName          string
	templateURL        string
	parameterOverrides []string
	capabilities       []string
	tags               []string
	notificationARNs   []string
	roleARN            string
	timeoutInMinutes   int32
	disableRollback    bool
	onFailure          string
	clientRequestToken string
	changeSetName      string
	noExecuteChangeSet bool
	retainResources    []string
	waitTimeout        int32
)

func main() {
	rootCmd := newRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cfndeploy",
		Short: "Package and deploy CloudFormation templates",
		Long: `cfndeploy packages CloudFormation templates by uploading local artifacts
to S3 under content-addressed keys, and drives the stack lifecycle
(create, update, delete, change-set-first deploy) with blocking waits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "default", "AWS profile name")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "AWS region name (required)")

	// AssumeRole flags
	rootCmd.PersistentFlags().StringVar(&assumeRole, "assume-role", "", "ARN of the IAM role to assume")
	rootCmd.PersistentFlags().StringVar(&sessionName, "session-name", "cfndeploy-session", "Session name for the assumed role session")
	rootCmd.PersistentFlags().Int32Var(&duration, "duration", 3600, "Session duration in seconds (900-43200)")
	rootCmd.PersistentFlags().StringVar(&externalID, "external-id", "", "External ID for AssumeRole (required by some roles for security)")

	rootCmd.MarkPersistentFlagRequired("region")

	rootCmd.AddCommand(newPackageCommand())
	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newDeleteCommand())

	return rootCmd
}

func newPackageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Upload local artifacts referenced by a template and rewrite their references",
		RunE:  runPackage,
	}

	cmd.Flags().StringVarP(&templateFile, "template-file", "t", "", "Path to the template to package (required)")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket receiving the artifacts (required)")
	cmd.Flags().StringVar(&s3Prefix, "s3-prefix", "", "Key prefix for uploaded artifacts")
	cmd.Flags().StringVar(&kmsKeyID, "kms-key-id", "", "KMS key for server-side encryption of uploaded artifacts")
	cmd.Flags().BoolVar(&forceUpload, "force-upload", false, "Upload artifacts even when they already exist in the bucket")
	cmd.Flags().StringVarP(&outputTemplateFile, "output-template-file", "o", "", "Where to write the packaged template (omit for a dry preview)")
	cmd.Flags().BoolVar(&useJSON, "use-json", false, "Serialize the packaged template as JSON instead of YAML")

	cmd.MarkFlagRequired("template-file")
	cmd.MarkFlagRequired("s3-bucket")

	return cmd
}

func newDeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a stack through a change set",
		RunE:  runDeploy,
	}
	addStackFlags(cmd)
	cmd.Flags().StringVar(&changeSetName, "change-set-name", "", "Change set name (synthesized when omitted)")
	cmd.Flags().BoolVar(&noExecuteChangeSet, "no-execute-changeset", false, "Create the change set without executing it")
	return cmd
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a stack and wait for completion",
		RunE:  runCreate,
	}
	addStackFlags(cmd)
	cmd.Flags().Int32Var(&timeoutInMinutes, "timeout-in-minutes", 0, "Stack creation timeout")
	cmd.Flags().BoolVar(&disableRollback, "disable-rollback", false, "Disable rollback on creation failure")
	cmd.Flags().StringVar(&onFailure, "on-failure", "", "Action on creation failure (DO_NOTHING, ROLLBACK, DELETE)")
	return cmd
}

func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a stack and wait for completion",
		RunE:  runUpdate,
	}
	addStackFlags(cmd)
	return cmd
}

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stack and wait for completion",
		RunE:  runDelete,
	}
	cmd.Flags().StringVarP(&stackName, "stack-name", "s", "", "Stack name (required)")
	cmd.Flags().StringSliceVar(&retainResources, "retain-resources", nil, "Logical IDs of resources to retain")
	cmd.Flags().StringVar(&roleARN, "role-arn", "", "IAM role CloudFormation assumes for the operation")
	cmd.Flags().StringVar(&clientRequestToken, "client-request-token", "", "Idempotency token for the operation")
	cmd.Flags().Int32Var(&waitTimeout, "wait-timeout", 0, "Minutes to wait for the operation to finish (default 60)")
	cmd.MarkFlagRequired("stack-name")
	return cmd
}

func addStackFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&stackName, "stack-name", "s", "", "Stack name (required)")
	cmd.Flags().StringVarP(&templateFile, "template-file", "t", "", "Path to the template file")
	cmd.Flags().StringVar(&templateURL, "template-url", "", "S3 URL of the template")
	cmd.Flags().StringSliceVar(&parameterOverrides, "parameter-overrides", nil, "Stack parameters as Key=Value pairs")
	cmd.Flags().StringSliceVar(&capabilities, "capabilities", nil, "Capabilities to acknowledge (e.g. CAPABILITY_IAM)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Stack tags as Key=Value pairs")
	cmd.Flags().StringSliceVar(&notificationARNs, "notification-arns", nil, "SNS topic ARNs notified of stack events")
	cmd.Flags().StringVar(&roleARN, "role-arn", "", "IAM role CloudFormation assumes for the operation")
	cmd.Flags().StringVar(&clientRequestToken, "client-request-token", "", "Idempotency token for the operation")
	cmd.Flags().Int32Var(&waitTimeout, "wait-timeout", 0, "Minutes to wait for the operation to finish (default 60)")
	cmd.MarkFlagRequired("stack-name")
}

func runPackage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	// Fail before any network activity when the input is missing.
	if info, err := os.Stat(templateFile); err != nil || info.IsDir() {
		return &packager.InvalidTemplatePathError{Path: templateFile}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	session, err := awsclient.NewSession(ctx, authConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create AWS session: %w", err)
	}

	// Progress is advisory and only rendered on an interactive terminal.
	progress := io.Discard
	if info, err := os.Stdout.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		progress = os.Stdout
	}

	up := uploader.New(awsclient.NewS3Client(session), s3Bucket, region, uploader.Options{
		Prefix:      s3Prefix,
		KMSKeyID:    kmsKeyID,
		ForceUpload: forceUpload,
		Progress:    progress,
	})

	format := packageFormat(cfg)

	baseDir := filepath.Dir(templateFile)
	if baseDir == "." {
		baseDir = cwd
	}

	p := packager.New(packager.NewTemplateExporter(up, baseDir))
	data, err := p.Package(ctx, templateFile, format, outputTemplateFile)
	if err != nil {
		return err
	}

	if outputTemplateFile == "" {
		fmt.Print(string(data))
	} else {
		fmt.Printf("Packaged template written to %s\n", outputTemplateFile)
	}
	return nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	deployer, err := newDeployer(ctx)
	if err != nil {
		return err
	}

	err = deployer.Deploy(ctx, !noExecuteChangeSet)
	var emptyChangeSet *stack.EmptyChangeSetError
	if errors.As(err, &emptyChangeSet) {
		// An empty diff is the expected outcome of re-deploying an
		// unchanged template, not a fault.
		fmt.Printf("No changes to deploy. Stack %s is up to date\n", emptyChangeSet.StackName)
		return nil
	}
	return err
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	deployer, err := newDeployer(ctx)
	if err != nil {
		return err
	}
	return deployer.Create(ctx)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	deployer, err := newDeployer(ctx)
	if err != nil {
		return err
	}
	return deployer.Update(ctx)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	deployer, err := newDeployer(ctx)
	if err != nil {
		return err
	}
	return deployer.Delete(ctx)
}

// newDeployer builds the deployment request from flags and wires it to a
// rate-limited CloudFormation client. Request validation runs before any
// session is created.
func newDeployer(ctx context.Context) (*stack.Deployer, error) {
	req, err := buildRequest()
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	session, err := awsclient.NewSession(ctx, authConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	api := awsclient.NewRateLimitedClient(awsclient.NewCloudFormationClient(session), cfg.Region)
	deployer, err := stack.NewDeployer(api, req)
	if err != nil {
		return nil, err
	}
	if waitTimeout > 0 {
		deployer.SetWaitTimeout(time.Duration(waitTimeout) * time.Minute)
	}
	return deployer, nil
}

func buildRequest() (stack.Request, error) {
	parameters, err := parseParameters(parameterOverrides)
	if err != nil {
		return stack.Request{}, err
	}
	stackTags, err := parseTags(tags)
	if err != nil {
		return stack.Request{}, err
	}

	req := stack.Request{
		StackName:          stackName,
		TemplateBody:       templateFile,
		TemplateURL:        templateURL,
		Parameters:         parameters,
		Tags:               stackTags,
		NotificationARNs:   notificationARNs,
		RoleARN:            roleARN,
		ClientRequestToken: clientRequestToken,
		ChangeSetName:      changeSetName,
		RetainResources:    retainResources,
		OnFailure:          cfntypes.OnFailure(onFailure),
	}

	for _, c := range capabilities {
		req.Capabilities = append(req.Capabilities, cfntypes.Capability(c))
	}
	if timeoutInMinutes > 0 {
		req.TimeoutInMinutes = &timeoutInMinutes
	}
	if disableRollback {
		req.DisableRollback = &disableRollback
	}

	return req, nil
}

// loadConfig assembles the application configuration from the global flags
// and validates it before any AWS client is built.
func loadConfig() (config.Config, error) {
	cfg := config.Config{
		Profile:        profile,
		Region:         region,
		TemplateFormat: "yaml",
	}
	if useJSON {
		cfg.TemplateFormat = "json"
	}
	if !config.ValidateTemplateFormat(cfg.TemplateFormat) {
		return config.Config{}, fmt.Errorf("unsupported template format: %s", cfg.TemplateFormat)
	}

	if assumeRole != "" {
		cfg.AssumeRole = &config.AssumeRoleConfig{
			RoleARN:     assumeRole,
			SessionName: sessionName,
			Duration:    duration,
			ExternalID:  externalID,
		}
		if err := cfg.AssumeRole.Validate(); err != nil {
			return config.Config{}, fmt.Errorf("AssumeRole configuration invalid: %w", err)
		}
	}

	return cfg, nil
}

func authConfig(cfg config.Config) awsclient.AuthConfig {
	auth := awsclient.AuthConfig{
		Profile: cfg.Profile,
		Region:  cfg.Region,
	}
	if cfg.AssumeRole != nil {
		auth.AssumeRole = &awsclient.AssumeRoleCredentials{
			RoleARN:     cfg.AssumeRole.RoleARN,
			SessionName: cfg.AssumeRole.SessionName,
			Duration:    cfg.AssumeRole.Duration,
			ExternalID:  cfg.AssumeRole.ExternalID,
		}
	}
	return auth
}

// packageFormat maps the validated configuration format to the serializer.
func packageFormat(cfg config.Config) packager.Format {
	if cfg.TemplateFormat == "json" {
		return packager.FormatJSON
	}
	return packager.FormatYAML
}

// parseParameters converts Key=Value pairs into stack parameters, preserving
// the order they were supplied in.
func parseParameters(pairs []string) ([]cfntypes.Parameter, error) {
	var parameters []cfntypes.Parameter
	for _, pair := range pairs {
		key, value, err := splitPair(pair)
		if err != nil {
			return nil, err
		}
		parameters = append(parameters, cfntypes.Parameter{
			ParameterKey:   &key,
			ParameterValue: &value,
		})
	}
	return parameters, nil
}

// parseTags converts Key=Value pairs into stack tags.
func parseTags(pairs []string) ([]cfntypes.Tag, error) {
	var stackTags []cfntypes.Tag
	for _, pair := range pairs {
		key, value, err := splitPair(pair)
		if err != nil {
			return nil, err
		}
		stackTags = append(stackTags, cfntypes.Tag{
			Key:   &key,
			Value: &value,
		})
	}
	return stackTags, nil
}

func splitPair(pair string) (string, string, error) {
	key, value, found := strings.Cut(pair, "=")
	if !found || key == "" {
		return "", "", fmt.Errorf("invalid Key=Value pair: %q", pair)
	}
	return key, value, nil
}

// exitCode maps each named failure kind to a distinct process exit code.
func exitCode(err error) int {
	var (
		emptyStackName     *stack.EmptyStackNameError
		templateNotSpec    *stack.TemplateNotSpecifiedError
		templateValidation *stack.TemplateValidationError
		updateNoOp         *stack.UpdateNoOpError
		stackDoesntExist   *stack.StackDoesntExistError
		stackExists        *stack.StackAlreadyExistsError
		deployFailed       *stack.DeployFailedError
		emptyChangeSet     *stack.EmptyChangeSetError
		invalidPath        *packager.InvalidTemplatePathError
		invalidURL         *packager.InvalidTemplateURLError
		exportFailure      *packager.ExportError
		bucketNotFound     *uploader.BucketNotFoundError
	)

	switch {
	case errors.As(err, &emptyStackName):
		return 2
	case errors.As(err, &templateNotSpec):
		return 3
	case errors.As(err, &templateValidation):
		return 4
	case errors.As(err, &invalidPath):
		return 5
	case errors.As(err, &invalidURL):
		return 6
	case errors.As(err, &emptyChangeSet):
		return 7
	case errors.As(err, &updateNoOp):
		return 8
	case errors.As(err, &stackDoesntExist):
		return 9
	case errors.As(err, &stackExists):
		return 10
	case errors.As(err, &deployFailed):
		return 11
	case errors.As(err, &bucketNotFound):
		return 12
	case errors.As(err, &exportFailure):
		return 13
	default:
		return 1
	}
}
