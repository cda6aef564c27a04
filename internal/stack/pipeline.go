// Package stack hands a declaration set to Pulumi as AWS resources.
package stack

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/pulumi/pulumi-aws/sdk/v5/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v5/go/aws/lambda"
	"github.com/pulumi/pulumi-aws/sdk/v5/go/aws/s3"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"infrastructure-pipeline/internal/declare"
	"infrastructure-pipeline/internal/initaction"
)

// Runtime settings of the initialization function.
const (
	FunctionRuntime = "provided.al2"
	FunctionHandler = "bootstrap"
	FunctionTimeout = 60
)

// PipelineArgs contains the arguments for declaring the pipeline bucket.
type PipelineArgs struct {
	// Declarations to apply. Required.
	Declarations *declare.Set
	// ARN of the KMS key the bucket is encrypted under. Required.
	KeyArn pulumi.StringInput
	// Bucket receiving the server access logs. Required.
	LoggingBucketName pulumi.StringInput
	// Bundle of cmd/initaction built as `bootstrap`. Required.
	HandlerCode pulumi.Archive
}

// Pipeline is the data-stage bucket together with its one-time
// initialization action.
type Pipeline struct {
	pulumi.ResourceState

	Bucket            *s3.Bucket
	PublicAccessBlock *s3.BucketPublicAccessBlock
	BucketPolicy      *s3.BucketPolicy
	Role              *iam.Role
	RolePolicy        *iam.RolePolicy
	Function          *lambda.Function
	Init              *lambda.Invocation

	BucketName         pulumi.StringOutput
	BucketArn          pulumi.StringOutput
	RoleArn            pulumi.StringOutput
	PhysicalResourceID pulumi.StringOutput
}

// NewPipeline declares the bucket, its policies, the execution role and the
// initialization action, in dependency order.
func NewPipeline(ctx *pulumi.Context, name string, args *PipelineArgs, opts ...pulumi.ResourceOption) (*Pipeline, error) {
	if args == nil || args.Declarations == nil {
		return nil, errors.New("pipeline declarations are required")
	}
	if args.KeyArn == nil || args.LoggingBucketName == nil || args.HandlerCode == nil {
		return nil, errors.New("pipeline key ARN, logging bucket name and handler code are required")
	}
	set := args.Declarations

	p := &Pipeline{}
	if err := ctx.RegisterComponentResource("pipeline:storage:Pipeline", name, p, opts...); err != nil {
		return nil, errors.Wrapf(err, "register %s", name)
	}
	parent := pulumi.Parent(p)

	if err := p.declareBucket(ctx, set.Bucket, args, parent); err != nil {
		return nil, err
	}
	if err := p.declareRole(ctx, set, args.KeyArn.ToStringOutput(), parent); err != nil {
		return nil, err
	}
	if err := p.declareInit(ctx, set.Init, args.HandlerCode, parent); err != nil {
		return nil, err
	}

	if err := ctx.RegisterResourceOutputs(p, pulumi.Map{
		"bucketName":         p.BucketName,
		"bucketArn":          p.BucketArn,
		"roleArn":            p.RoleArn,
		"physicalResourceId": p.PhysicalResourceID,
	}); err != nil {
		return nil, errors.Wrapf(err, "register outputs of %s", name)
	}
	return p, nil
}

func (p *Pipeline) declareBucket(ctx *pulumi.Context, b declare.Bucket, args *PipelineArgs, parent pulumi.ResourceOption) error {
	opts := []pulumi.ResourceOption{parent}
	if b.RemovalPolicy == declare.RemovalPolicyRetain {
		opts = append(opts, pulumi.RetainOnDelete(true))
	}

	var loggings s3.BucketLoggingArray
	if b.ServerAccessLogsBucket != "" {
		loggings = s3.BucketLoggingArray{
			&s3.BucketLoggingArgs{
				TargetBucket: args.LoggingBucketName,
				TargetPrefix: pulumi.String(b.ServerAccessLogsPrefix),
			},
		}
	}

	bucket, err := s3.NewBucket(ctx, b.LogicalName, &s3.BucketArgs{
		Bucket:                            pulumi.String(b.Name),
		ForceDestroy:                      pulumi.Bool(b.RemovalPolicy == declare.RemovalPolicyDestroy && b.AutoDeleteObjects),
		ServerSideEncryptionConfiguration: encryptionConfig(b.Encryption, args.KeyArn.ToStringOutput(), b.BucketKeyEnabled),
		Loggings:                          loggings,
		LifecycleRules:                    lifecycleRules(b.LifecycleRules),
		Tags: pulumi.StringMap{
			"Name": pulumi.String(b.Name),
		},
	}, opts...)
	if err != nil {
		return errors.Wrapf(err, "declare %s", b.LogicalName)
	}
	p.Bucket = bucket
	p.BucketName = bucket.Bucket
	p.BucketArn = bucket.Arn
	ctx.Log.Debug(fmt.Sprintf("declared bucket %s", b.Name), &pulumi.LogArgs{Resource: p})

	p.PublicAccessBlock, err = s3.NewBucketPublicAccessBlock(ctx, b.LogicalName, publicAccessBlockArgs(bucket, b.BlockPublicAccess), parent)
	if err != nil {
		return errors.Wrapf(err, "declare public access block of %s", b.LogicalName)
	}

	if !b.EnforceSSL {
		ctx.Log.Warn(fmt.Sprintf("bucket %s accepts requests without TLS", b.Name), &pulumi.LogArgs{Resource: p})
		return nil
	}
	policy := bucket.Arn.ApplyT(func(arn string) (string, error) {
		return declare.DenyInsecureTransport(arn).JSON()
	}).(pulumi.StringOutput)
	p.BucketPolicy, err = s3.NewBucketPolicy(ctx, b.LogicalName, &s3.BucketPolicyArgs{
		Bucket: bucket.ID(),
		Policy: policy,
	}, parent, pulumi.DependsOn([]pulumi.Resource{p.PublicAccessBlock}))
	if err != nil {
		return errors.Wrapf(err, "declare policy of %s", b.LogicalName)
	}
	return nil
}

func lifecycleRules(rules []declare.LifecycleRule) s3.BucketLifecycleRuleArray {
	out := make(s3.BucketLifecycleRuleArray, 0, len(rules))
	for _, r := range rules {
		out = append(out, &s3.BucketLifecycleRuleArgs{
			Id:      pulumi.String(r.ID),
			Enabled: pulumi.Bool(r.Enabled),
			Expiration: &s3.BucketLifecycleRuleExpirationArgs{
				Days: pulumi.Int(r.ExpirationDays),
			},
		})
	}
	return out
}

func (p *Pipeline) declareRole(ctx *pulumi.Context, set *declare.Set, keyArn pulumi.StringOutput, parent pulumi.ResourceOption) error {
	r := set.Role
	trust, err := r.TrustPolicy.JSON()
	if err != nil {
		return errors.Wrapf(err, "encode trust policy of %s", r.LogicalName)
	}

	p.Role, err = iam.NewRole(ctx, r.LogicalName, &iam.RoleArgs{
		AssumeRolePolicy:  pulumi.String(trust),
		ManagedPolicyArns: pulumi.ToStringArray(r.ManagedPolicies),
	}, parent)
	if err != nil {
		return errors.Wrapf(err, "declare %s", r.LogicalName)
	}
	p.RoleArn = p.Role.Arn

	// The scoped statement targets the bucket's objects and the key they are
	// encrypted under, both known only once declared.
	scope := set.Init.Policy
	policy := pulumi.All(p.BucketArn, keyArn).ApplyT(func(in []interface{}) (string, error) {
		bucketArn, key := in[0].(string), in[1].(string)
		doc := declare.Allow(scope.Statement[0].Action, bucketArn+"/*")
		doc.Statement = append(doc.Statement, declare.Allow(declare.KeyActions, key).Statement...)
		return doc.JSON()
	}).(pulumi.StringOutput)

	p.RolePolicy, err = iam.NewRolePolicy(ctx, r.LogicalName, &iam.RolePolicyArgs{
		Role:   p.Role.ID(),
		Policy: policy,
	}, parent)
	if err != nil {
		return errors.Wrapf(err, "declare policy of %s", r.LogicalName)
	}

	for _, arn := range r.ManagedPolicies {
		if strings.HasSuffix(arn, "/"+declare.FullStorageAccessPolicy) {
			ctx.Log.Warn(fmt.Sprintf("role %s is granted %s, broader than the initialization action needs", r.LogicalName, arn), &pulumi.LogArgs{Resource: p})
		}
	}
	return nil
}

func (p *Pipeline) declareInit(ctx *pulumi.Context, a declare.InitializationAction, code pulumi.Archive, parent pulumi.ResourceOption) error {
	fn, err := lambda.NewFunction(ctx, a.LogicalName, &lambda.FunctionArgs{
		Role:          p.Role.Arn,
		Runtime:       pulumi.String(FunctionRuntime),
		Handler:       pulumi.String(FunctionHandler),
		Code:          code,
		Architectures: pulumi.StringArray{pulumi.String("arm64")},
		Timeout:       pulumi.Int(FunctionTimeout),
	}, parent, pulumi.DependsOn([]pulumi.Resource{p.RolePolicy}))
	if err != nil {
		return errors.Wrapf(err, "declare function of %s", a.LogicalName)
	}
	p.Function = fn

	// The bucket name is taken from the declared bucket so the request
	// cannot be issued before the bucket exists.
	p.PhysicalResourceID = p.BucketName.ApplyT(declare.PhysicalResourceID).(pulumi.StringOutput)
	input := p.BucketName.ApplyT(func(bucket string) (string, error) {
		params := make(map[string]string, len(a.Parameters))
		for k, v := range a.Parameters {
			params[k] = v
		}
		params["Bucket"] = bucket
		b, err := json.Marshal(initaction.Request{
			RequestType:        initaction.RequestCreate,
			Service:            a.Service,
			Action:             a.Action,
			Parameters:         params,
			PhysicalResourceID: declare.PhysicalResourceID(bucket),
		})
		return string(b), err
	}).(pulumi.StringOutput)

	deps := []pulumi.Resource{p.Bucket, p.PublicAccessBlock, p.RolePolicy, fn}
	if p.BucketPolicy != nil {
		deps = append(deps, p.BucketPolicy)
	}
	p.Init, err = lambda.NewInvocation(ctx, a.LogicalName, &lambda.InvocationArgs{
		FunctionName: fn.Name,
		Input:        input,
		Triggers: pulumi.StringMap{
			"physicalResourceId": p.PhysicalResourceID,
		},
	}, parent, pulumi.DependsOn(deps))
	if err != nil {
		return errors.Wrapf(err, "declare %s", a.LogicalName)
	}
	return nil
}
