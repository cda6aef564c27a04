package declare

import "encoding/json"

const policyVersion = "2012-10-17"

// PolicyDocument is an IAM policy document.
type PolicyDocument struct {
	Version   string      `json:"Version" yaml:"Version"`
	Statement []Statement `json:"Statement" yaml:"Statement"`
}

// Statement is an entry in a policy document's "Statement" field.
type Statement struct {
	Sid       string                       `json:"Sid,omitempty" yaml:"Sid,omitempty"`
	Effect    string                       `json:"Effect" yaml:"Effect"`
	Principal *Principal                   `json:"Principal,omitempty" yaml:"Principal,omitempty"`
	Action    []string                     `json:"Action" yaml:"Action"`
	Resource  []string                     `json:"Resource,omitempty" yaml:"Resource,omitempty"`
	Condition map[string]map[string]string `json:"Condition,omitempty" yaml:"Condition,omitempty"`
}

// Principal is the policy document Principal.
type Principal struct {
	AWS     []string `json:"AWS,omitempty" yaml:"AWS,omitempty"`
	Service []string `json:"Service,omitempty" yaml:"Service,omitempty"`
}

// JSON returns the compact JSON form accepted by IAM and S3.
func (d PolicyDocument) JSON() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// TrustPolicy lets the given service principal assume a role.
func TrustPolicy(service string) PolicyDocument {
	return PolicyDocument{
		Version: policyVersion,
		Statement: []Statement{{
			Effect:    "Allow",
			Principal: &Principal{Service: []string{service}},
			Action:    []string{"sts:AssumeRole"},
		}},
	}
}

// DenyInsecureTransport denies every request to the bucket and its objects
// that does not use TLS.
func DenyInsecureTransport(bucketARN string) PolicyDocument {
	return PolicyDocument{
		Version: policyVersion,
		Statement: []Statement{{
			Sid:       "DenyInsecureTransport",
			Effect:    "Deny",
			Principal: &Principal{AWS: []string{"*"}},
			Action:    []string{"s3:*"},
			Resource:  []string{bucketARN, bucketARN + "/*"},
			Condition: map[string]map[string]string{
				"Bool": {"aws:SecureTransport": "false"},
			},
		}},
	}
}

// LogDelivery lets the S3 logging service write access logs under prefix.
func LogDelivery(loggingBucketARN, prefix string) PolicyDocument {
	return PolicyDocument{
		Version: policyVersion,
		Statement: []Statement{
			{
				Sid:       "S3ServerAccessLogsPolicy",
				Effect:    "Allow",
				Principal: &Principal{Service: []string{"logging.s3.amazonaws.com"}},
				Action:    []string{"s3:PutObject"},
				Resource:  []string{loggingBucketARN + "/" + prefix + "*"},
			},
			DenyInsecureTransport(loggingBucketARN).Statement[0],
		},
	}
}

// Allow grants actions on resources.
func Allow(actions []string, resources ...string) PolicyDocument {
	return PolicyDocument{
		Version: policyVersion,
		Statement: []Statement{{
			Effect:   "Allow",
			Action:   append([]string(nil), actions...),
			Resource: append([]string(nil), resources...),
		}},
	}
}
