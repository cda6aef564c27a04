package declare

// Ref names another declaration in the same Set by its logical name.
type Ref string

// RemovalPolicy governs what happens to a resource when its declaration is deleted.
type RemovalPolicy string

const (
	RemovalPolicyDestroy RemovalPolicy = "destroy"
	RemovalPolicyRetain  RemovalPolicy = "retain"
)

// BucketEncryption is the server-side encryption mode of a bucket.
type BucketEncryption string

const (
	// BucketEncryptionKMS encrypts objects under a customer managed KMS key.
	BucketEncryptionKMS BucketEncryption = "kms"
	// BucketEncryptionS3Managed encrypts objects with SSE-S3 (AES256).
	BucketEncryptionS3Managed BucketEncryption = "s3-managed"
)

// BlockPublicAccess holds the four public-access block switches.
type BlockPublicAccess struct {
	BlockPublicAcls       bool `json:"blockPublicAcls" yaml:"blockPublicAcls"`
	BlockPublicPolicy     bool `json:"blockPublicPolicy" yaml:"blockPublicPolicy"`
	IgnorePublicAcls      bool `json:"ignorePublicAcls" yaml:"ignorePublicAcls"`
	RestrictPublicBuckets bool `json:"restrictPublicBuckets" yaml:"restrictPublicBuckets"`
}

// BlockAll is the fully restrictive public-access block.
var BlockAll = BlockPublicAccess{
	BlockPublicAcls:       true,
	BlockPublicPolicy:     true,
	IgnorePublicAcls:      true,
	RestrictPublicBuckets: true,
}

// FullyRestrictive reports whether every switch is on.
func (b BlockPublicAccess) FullyRestrictive() bool {
	return b == BlockAll
}

// LifecycleRule expires objects after ExpirationDays.
type LifecycleRule struct {
	ID             string `json:"id" yaml:"id"`
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ExpirationDays int    `json:"expirationDays" yaml:"expirationDays"`
}

// EncryptionKey is the KMS key the bucket is encrypted under.
// When ExternalARN or ExternalStack is set the key already exists and is
// only referenced.
type EncryptionKey struct {
	LogicalName          string `json:"logicalName" yaml:"logicalName"`
	Description          string `json:"description" yaml:"description"`
	DeletionWindowInDays int    `json:"deletionWindowInDays" yaml:"deletionWindowInDays"`
	EnableKeyRotation    bool   `json:"enableKeyRotation" yaml:"enableKeyRotation"`
	ExternalARN          string `json:"externalArn,omitempty" yaml:"externalArn,omitempty"`
	ExternalStack        string `json:"externalStack,omitempty" yaml:"externalStack,omitempty"`
}

// External reports whether the key is consumed rather than declared.
func (k EncryptionKey) External() bool {
	return k.ExternalARN != "" || k.ExternalStack != ""
}

// LoggingBucket receives the server access logs of the pipeline bucket.
// When External is set the bucket already exists and is only referenced;
// with ExternalStack its name is only known once that stack is read.
type LoggingBucket struct {
	LogicalName       string            `json:"logicalName" yaml:"logicalName"`
	Name              string            `json:"name" yaml:"name"`
	External          bool              `json:"external,omitempty" yaml:"external,omitempty"`
	ExternalStack     string            `json:"externalStack,omitempty" yaml:"externalStack,omitempty"`
	Encryption        BucketEncryption  `json:"encryption" yaml:"encryption"`
	BlockPublicAccess BlockPublicAccess `json:"blockPublicAccess" yaml:"blockPublicAccess"`
	ForceDestroy      bool              `json:"forceDestroy" yaml:"forceDestroy"`
	Policy            PolicyDocument    `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// Bucket is the pipeline data-stage bucket.
type Bucket struct {
	LogicalName            string            `json:"logicalName" yaml:"logicalName"`
	Name                   string            `json:"name" yaml:"name"`
	ARN                    string            `json:"arn" yaml:"arn"`
	RemovalPolicy          RemovalPolicy     `json:"removalPolicy" yaml:"removalPolicy"`
	AutoDeleteObjects      bool              `json:"autoDeleteObjects" yaml:"autoDeleteObjects"`
	EnforceSSL             bool              `json:"enforceSSL" yaml:"enforceSSL"`
	Encryption             BucketEncryption  `json:"encryption" yaml:"encryption"`
	EncryptionKey          Ref               `json:"encryptionKey" yaml:"encryptionKey"`
	BucketKeyEnabled       bool              `json:"bucketKeyEnabled" yaml:"bucketKeyEnabled"`
	ServerAccessLogsBucket Ref               `json:"serverAccessLogsBucket" yaml:"serverAccessLogsBucket"`
	ServerAccessLogsPrefix string            `json:"serverAccessLogsPrefix" yaml:"serverAccessLogsPrefix"`
	BlockPublicAccess      BlockPublicAccess `json:"blockPublicAccess" yaml:"blockPublicAccess"`
	LifecycleRules         []LifecycleRule   `json:"lifecycleRules" yaml:"lifecycleRules"`
	Policy                 PolicyDocument    `json:"policy" yaml:"policy"`
}

// ObjectsARN is the ARN pattern matching every object in the bucket.
func (b Bucket) ObjectsARN() string {
	return b.ARN + "/*"
}

// Role is the execution role of the initialization function.
type Role struct {
	LogicalName     string         `json:"logicalName" yaml:"logicalName"`
	AssumedBy       string         `json:"assumedBy" yaml:"assumedBy"`
	ManagedPolicies []string       `json:"managedPolicies" yaml:"managedPolicies"`
	TrustPolicy     PolicyDocument `json:"trustPolicy" yaml:"trustPolicy"`
}

// InitializationAction is a one-time SDK call issued when the declaration
// is first created.
type InitializationAction struct {
	LogicalName        string            `json:"logicalName" yaml:"logicalName"`
	Bucket             Ref               `json:"bucket" yaml:"bucket"`
	Service            string            `json:"service" yaml:"service"`
	Action             string            `json:"action" yaml:"action"`
	Parameters         map[string]string `json:"parameters" yaml:"parameters"`
	PhysicalResourceID string            `json:"physicalResourceId" yaml:"physicalResourceId"`
	Role               Ref               `json:"role" yaml:"role"`
	Policy             PolicyDocument    `json:"policy" yaml:"policy"`
	DependsOn          []Ref             `json:"dependsOn" yaml:"dependsOn"`
}

// Set is the complete resource declaration handed to the provisioning engine.
type Set struct {
	EncryptionKey EncryptionKey        `json:"encryptionKey" yaml:"encryptionKey"`
	LoggingBucket LoggingBucket        `json:"loggingBucket" yaml:"loggingBucket"`
	Bucket        Bucket               `json:"bucket" yaml:"bucket"`
	Role          Role                 `json:"role" yaml:"role"`
	Init          InitializationAction `json:"initializationAction" yaml:"initializationAction"`
}
