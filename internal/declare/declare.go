// Package declare describes the pipeline data-stage bucket and its
// collaborators as plain, engine-independent records.
//
// A Set is a pure function of its Options: declaring the same Options twice
// yields identical records and byte-identical renderings. Nothing here talks
// to a cloud API; the stack package hands a Set to Pulumi.
package declare

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Logical names of the declared resources.
const (
	EncryptionKeyName = "S3KmsKey"
	LoggingBucketName = "SATSPipelineLoggingBucket"
	BucketName        = "SATSPipelineBucket"
	RoleName          = "S3CustomResourceRole"
	InitName          = "CreateWIPFolder"
)

const (
	// BucketSuffix is appended to the resource name prefix to form the bucket name.
	BucketSuffix = "pipeline-data-stage"
	// LoggingBucketSuffix is appended to the prefix for a declared logging bucket.
	LoggingBucketSuffix = "pipeline-access-logs"
	// MarkerKey is the zero-byte object that makes the WIP prefix visible.
	MarkerKey = "WIP/"
	// PhysicalIDSuffix is appended to the bucket name to form the idempotency key.
	PhysicalIDSuffix = "/WIP"

	DefaultAccessLogsPrefix      = "access-logs/"
	DefaultExpirationDays        = 31
	DefaultKeyDeletionWindowDays = 7
	DefaultPartition             = "aws"

	LambdaPrincipal = "lambda.amazonaws.com"

	// FullStorageAccessPolicy is the AWS managed policy granting every S3 action.
	FullStorageAccessPolicy = "AmazonS3FullAccess"
)

// Actions the initialization function is allowed to perform.
var (
	ObjectLevelActions = []string{"s3:PutObject", "s3:PutObjectAcl"}
	KeyActions         = []string{"kms:GenerateDataKey", "kms:Decrypt"}
)

var bucketNameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// Options are the inputs of a declaration.
type Options struct {
	// Prefix of every derived resource name. Required.
	ResourceNamePrefix string
	// Key prefix under which server access logs are delivered.
	AccessLogsPrefix string
	// Days after which objects in the bucket expire.
	ExpirationDays int
	// Waiting period before a deleted KMS key is destroyed, 7 to 30 days.
	KeyDeletionWindowDays int
	// Attach the AmazonS3FullAccess managed policy to the execution role.
	// The scoped object-level statement is attached either way.
	GrantFullStorageAccess bool
	// ARN of an existing KMS key. Empty declares a new key.
	EncryptionKeyARN string
	// Name of an existing logging bucket. Empty declares a new bucket.
	LoggingBucketName string
	// Stack that already owns the key and logging bucket, e.g.
	// "organization/infrastructure-pipeline-shared/dev". Its "kmsKeyArn" and
	// "loggingBucketName" outputs are consumed instead of declaring new ones.
	CollaboratorsStack string
	// AWS partition used when building ARNs.
	Partition string
}

// DefaultOptions returns the default options for prefix.
func DefaultOptions(prefix string) Options {
	return Options{
		ResourceNamePrefix:     prefix,
		AccessLogsPrefix:       DefaultAccessLogsPrefix,
		ExpirationDays:         DefaultExpirationDays,
		KeyDeletionWindowDays:  DefaultKeyDeletionWindowDays,
		GrantFullStorageAccess: true,
		Partition:              DefaultPartition,
	}
}

// PhysicalResourceID is the idempotency key of the initialization action.
func PhysicalResourceID(bucketName string) string {
	return bucketName + PhysicalIDSuffix
}

// BucketARN builds the ARN of an S3 bucket.
func BucketARN(partition, name string) string {
	return fmt.Sprintf("arn:%s:s3:::%s", partition, name)
}

// ManagedPolicyARN builds the ARN of an AWS managed policy.
func ManagedPolicyARN(partition, name string) string {
	return fmt.Sprintf("arn:%s:iam::aws:policy/%s", partition, name)
}

// Validate reports every invalid option at once.
func (o Options) Validate() error {
	var result *multierror.Error

	if o.ResourceNamePrefix == "" {
		result = multierror.Append(result, fmt.Errorf("resource name prefix is empty"))
	}
	if err := validateBucketName(o.ResourceNamePrefix + BucketSuffix); err != nil {
		result = multierror.Append(result, err)
	}
	switch {
	case o.CollaboratorsStack != "":
		if o.LoggingBucketName != "" || o.EncryptionKeyARN != "" {
			result = multierror.Append(result, fmt.Errorf("collaborators stack cannot be combined with an encryption key ARN or logging bucket name"))
		}
	case o.LoggingBucketName != "":
		if err := validateBucketName(o.LoggingBucketName); err != nil {
			result = multierror.Append(result, err)
		}
	default:
		if err := validateBucketName(o.ResourceNamePrefix + LoggingBucketSuffix); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if o.AccessLogsPrefix == "" {
		result = multierror.Append(result, fmt.Errorf("access logs prefix is empty"))
	}
	if o.ExpirationDays <= 0 {
		result = multierror.Append(result, fmt.Errorf("expiration days must be positive, got %d", o.ExpirationDays))
	}
	if o.declaresKey() && (o.KeyDeletionWindowDays < 7 || o.KeyDeletionWindowDays > 30) {
		result = multierror.Append(result, fmt.Errorf("key deletion window must be between 7 and 30 days, got %d", o.KeyDeletionWindowDays))
	}
	if o.EncryptionKeyARN != "" && !strings.HasPrefix(o.EncryptionKeyARN, "arn:") {
		result = multierror.Append(result, fmt.Errorf("encryption key ARN %q is not an ARN", o.EncryptionKeyARN))
	}
	if o.Partition == "" {
		result = multierror.Append(result, fmt.Errorf("partition is empty"))
	}

	return result.ErrorOrNil()
}

func (o Options) declaresKey() bool {
	return o.EncryptionKeyARN == "" && o.CollaboratorsStack == ""
}

func validateBucketName(name string) error {
	if !bucketNameRE.MatchString(name) {
		return fmt.Errorf("bucket name %q must be 3-63 lowercase letters, digits, dots or hyphens and start and end with a letter or digit", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("bucket name %q must not contain consecutive dots", name)
	}
	return nil
}

// New declares the full resource set for opts.
func New(opts Options) (*Set, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid declaration options: %w", err)
	}

	key := EncryptionKey{
		LogicalName:          EncryptionKeyName,
		Description:          "Encrypts objects in " + opts.ResourceNamePrefix + BucketSuffix,
		DeletionWindowInDays: opts.KeyDeletionWindowDays,
		EnableKeyRotation:    true,
		ExternalARN:          opts.EncryptionKeyARN,
		ExternalStack:        opts.CollaboratorsStack,
	}
	if !opts.declaresKey() {
		key.DeletionWindowInDays = 0
		key.EnableKeyRotation = false
	}

	logging := LoggingBucket{
		LogicalName:       LoggingBucketName,
		Name:              opts.ResourceNamePrefix + LoggingBucketSuffix,
		Encryption:        BucketEncryptionS3Managed,
		BlockPublicAccess: BlockAll,
		ForceDestroy:      true,
	}
	switch {
	case opts.CollaboratorsStack != "":
		logging = LoggingBucket{
			LogicalName:   LoggingBucketName,
			External:      true,
			ExternalStack: opts.CollaboratorsStack,
		}
	case opts.LoggingBucketName != "":
		logging.Name = opts.LoggingBucketName
		logging.External = true
	}
	if !logging.External {
		logging.Policy = LogDelivery(BucketARN(opts.Partition, logging.Name), opts.AccessLogsPrefix)
	}

	bucketName := opts.ResourceNamePrefix + BucketSuffix
	bucketARN := BucketARN(opts.Partition, bucketName)
	bucket := Bucket{
		LogicalName:            BucketName,
		Name:                   bucketName,
		ARN:                    bucketARN,
		RemovalPolicy:          RemovalPolicyDestroy,
		AutoDeleteObjects:      true,
		EnforceSSL:             true,
		Encryption:             BucketEncryptionKMS,
		EncryptionKey:          Ref(EncryptionKeyName),
		BucketKeyEnabled:       true,
		ServerAccessLogsBucket: Ref(LoggingBucketName),
		ServerAccessLogsPrefix: opts.AccessLogsPrefix,
		BlockPublicAccess:      BlockAll,
		LifecycleRules: []LifecycleRule{{
			ID:             "expire-objects",
			Enabled:        true,
			ExpirationDays: opts.ExpirationDays,
		}},
		Policy: DenyInsecureTransport(bucketARN),
	}

	managed := []string{ManagedPolicyARN(opts.Partition, "service-role/AWSLambdaBasicExecutionRole")}
	if opts.GrantFullStorageAccess {
		// Broader than the single PutObject the action performs.
		managed = append(managed, ManagedPolicyARN(opts.Partition, FullStorageAccessPolicy))
	}
	role := Role{
		LogicalName:     RoleName,
		AssumedBy:       LambdaPrincipal,
		ManagedPolicies: managed,
		TrustPolicy:     TrustPolicy(LambdaPrincipal),
	}

	action := InitializationAction{
		LogicalName: InitName,
		Bucket:      Ref(BucketName),
		Service:     "S3",
		Action:      "putObject",
		Parameters: map[string]string{
			"Bucket": bucketName,
			"Key":    MarkerKey,
		},
		PhysicalResourceID: PhysicalResourceID(bucketName),
		Role:               Ref(RoleName),
		Policy:             Allow(ObjectLevelActions, bucket.ObjectsARN()),
		DependsOn:          []Ref{Ref(BucketName), Ref(RoleName)},
	}

	return &Set{
		EncryptionKey: key,
		LoggingBucket: logging,
		Bucket:        bucket,
		Role:          role,
		Init:          action,
	}, nil
}
