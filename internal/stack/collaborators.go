package stack

import (
	"github.com/pkg/errors"
	"github.com/pulumi/pulumi-aws/sdk/v5/go/aws/kms"
	"github.com/pulumi/pulumi-aws/sdk/v5/go/aws/s3"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"infrastructure-pipeline/internal/declare"
)

// Collaborators are the encryption key and the access-log destination the
// pipeline bucket consumes. Each is either declared here or referenced.
type Collaborators struct {
	pulumi.ResourceState

	// Nil when the key is referenced.
	Key *kms.Key
	// Nil when the logging bucket is referenced.
	LoggingBucket *s3.Bucket

	KeyArn            pulumi.StringOutput
	LoggingBucketName pulumi.StringOutput
}

// NewCollaborators declares or references the key and logging bucket of set.
func NewCollaborators(ctx *pulumi.Context, name string, set *declare.Set, opts ...pulumi.ResourceOption) (*Collaborators, error) {
	c := &Collaborators{}
	if err := ctx.RegisterComponentResource("pipeline:storage:Collaborators", name, c, opts...); err != nil {
		return nil, errors.Wrapf(err, "register %s", name)
	}
	parent := pulumi.Parent(c)

	var ref *pulumi.StackReference
	if stackName := set.EncryptionKey.ExternalStack; stackName != "" {
		var err error
		ref, err = pulumi.NewStackReference(ctx, stackName, nil, parent)
		if err != nil {
			return nil, errors.Wrapf(err, "reference stack %s", stackName)
		}
	}

	switch k := set.EncryptionKey; {
	case ref != nil:
		c.KeyArn = ref.GetStringOutput(pulumi.String("kmsKeyArn"))
	case k.ExternalARN != "":
		c.KeyArn = pulumi.String(k.ExternalARN).ToStringOutput()
	default:
		key, err := kms.NewKey(ctx, k.LogicalName, &kms.KeyArgs{
			Description:          pulumi.String(k.Description),
			DeletionWindowInDays: pulumi.Int(k.DeletionWindowInDays),
			EnableKeyRotation:    pulumi.Bool(k.EnableKeyRotation),
		}, parent)
		if err != nil {
			return nil, errors.Wrapf(err, "declare %s", k.LogicalName)
		}
		c.Key = key
		c.KeyArn = key.Arn
	}

	switch l := set.LoggingBucket; {
	case ref != nil:
		c.LoggingBucketName = ref.GetStringOutput(pulumi.String("loggingBucketName"))
	case l.External:
		c.LoggingBucketName = pulumi.String(l.Name).ToStringOutput()
	default:
		bucket, err := newLoggingBucket(ctx, l, parent)
		if err != nil {
			return nil, err
		}
		c.LoggingBucket = bucket
		c.LoggingBucketName = bucket.Bucket
	}

	if err := ctx.RegisterResourceOutputs(c, pulumi.Map{
		"kmsKeyArn":         c.KeyArn,
		"loggingBucketName": c.LoggingBucketName,
	}); err != nil {
		return nil, errors.Wrapf(err, "register outputs of %s", name)
	}
	return c, nil
}

func newLoggingBucket(ctx *pulumi.Context, l declare.LoggingBucket, parent pulumi.ResourceOption) (*s3.Bucket, error) {
	bucket, err := s3.NewBucket(ctx, l.LogicalName, &s3.BucketArgs{
		Bucket:                            pulumi.String(l.Name),
		ForceDestroy:                      pulumi.Bool(l.ForceDestroy),
		ServerSideEncryptionConfiguration: encryptionConfig(l.Encryption, nil, false),
		Tags: pulumi.StringMap{
			"Name": pulumi.String(l.Name),
		},
	}, parent)
	if err != nil {
		return nil, errors.Wrapf(err, "declare %s", l.LogicalName)
	}

	pab, err := s3.NewBucketPublicAccessBlock(ctx, l.LogicalName, publicAccessBlockArgs(bucket, l.BlockPublicAccess), parent)
	if err != nil {
		return nil, errors.Wrapf(err, "declare public access block of %s", l.LogicalName)
	}

	policy, err := l.Policy.JSON()
	if err != nil {
		return nil, errors.Wrapf(err, "encode policy of %s", l.LogicalName)
	}
	_, err = s3.NewBucketPolicy(ctx, l.LogicalName, &s3.BucketPolicyArgs{
		Bucket: bucket.ID(),
		Policy: pulumi.String(policy),
	}, parent, pulumi.DependsOn([]pulumi.Resource{pab}))
	if err != nil {
		return nil, errors.Wrapf(err, "declare policy of %s", l.LogicalName)
	}

	return bucket, nil
}

func encryptionConfig(mode declare.BucketEncryption, keyArn pulumi.StringPtrInput, bucketKey bool) *s3.BucketServerSideEncryptionConfigurationArgs {
	def := &s3.BucketServerSideEncryptionConfigurationRuleApplyServerSideEncryptionByDefaultArgs{
		SseAlgorithm: pulumi.String("AES256"),
	}
	if mode == declare.BucketEncryptionKMS {
		def = &s3.BucketServerSideEncryptionConfigurationRuleApplyServerSideEncryptionByDefaultArgs{
			SseAlgorithm:   pulumi.String("aws:kms"),
			KmsMasterKeyId: keyArn,
		}
	}
	return &s3.BucketServerSideEncryptionConfigurationArgs{
		Rule: &s3.BucketServerSideEncryptionConfigurationRuleArgs{
			ApplyServerSideEncryptionByDefault: def,
			BucketKeyEnabled:                   pulumi.Bool(bucketKey),
		},
	}
}

func publicAccessBlockArgs(bucket *s3.Bucket, b declare.BlockPublicAccess) *s3.BucketPublicAccessBlockArgs {
	return &s3.BucketPublicAccessBlockArgs{
		Bucket:                bucket.ID(),
		BlockPublicAcls:       pulumi.Bool(b.BlockPublicAcls),
		BlockPublicPolicy:     pulumi.Bool(b.BlockPublicPolicy),
		IgnorePublicAcls:      pulumi.Bool(b.IgnorePublicAcls),
		RestrictPublicBuckets: pulumi.Bool(b.RestrictPublicBuckets),
	}
}
