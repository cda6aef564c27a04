// Package initaction runs the one-time SDK call behind the pipeline's
// initialization action: it creates the zero-byte "WIP/" marker object in
// the freshly declared bucket.
package initaction

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// RequestType is the lifecycle event that triggered the invocation.
type RequestType string

const (
	RequestCreate RequestType = "Create"
	RequestUpdate RequestType = "Update"
	RequestDelete RequestType = "Delete"
)

// Request is the payload the provisioning engine invokes the function with.
type Request struct {
	RequestType        RequestType       `json:"RequestType"`
	Service            string            `json:"Service"`
	Action             string            `json:"Action"`
	Parameters         map[string]string `json:"Parameters"`
	PhysicalResourceID string            `json:"PhysicalResourceId"`
}

// Response reports the idempotency key of the action back to the engine.
type Response struct {
	PhysicalResourceID string            `json:"PhysicalResourceId"`
	Data               map[string]string `json:"Data,omitempty"`
}

// ObjectPutter is the subset of the S3 client the handler needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// UnsupportedCallError means the request names a call the handler does not perform.
type UnsupportedCallError struct {
	RequestType RequestType
	Service     string
	Action      string
}

func (e UnsupportedCallError) Error() string {
	return fmt.Sprintf("unsupported call: requestType=%q service=%q action=%q", e.RequestType, e.Service, e.Action)
}

// MissingParameterError means a required call parameter is absent.
type MissingParameterError struct {
	Name string
}

func (e MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter %q", e.Name)
}

// Handler performs initialization requests against S3.
type Handler struct {
	client ObjectPutter
	logger *slog.Logger
}

// NewHandler creates a handler. A nil logger uses slog.Default().
func NewHandler(client ObjectPutter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		client: client,
		logger: logger.With("component", "initaction"),
	}
}

// Handle performs req. Create and Update write the marker object; Delete is
// a no-op because the object goes away with the bucket.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	logger := h.logger.With("requestType", string(req.RequestType), "physicalResourceId", req.PhysicalResourceID)

	switch req.RequestType {
	case RequestDelete:
		logger.Info("nothing to delete")
		return Response{PhysicalResourceID: req.PhysicalResourceID}, nil
	case RequestCreate, RequestUpdate:
	default:
		return Response{}, UnsupportedCallError{RequestType: req.RequestType, Service: req.Service, Action: req.Action}
	}

	if req.Service != "S3" || req.Action != "putObject" {
		return Response{}, UnsupportedCallError{RequestType: req.RequestType, Service: req.Service, Action: req.Action}
	}
	bucket := req.Parameters["Bucket"]
	if bucket == "" {
		return Response{}, MissingParameterError{Name: "Bucket"}
	}
	key := req.Parameters["Key"]
	if key == "" {
		return Response{}, MissingParameterError{Name: "Key"}
	}
	if req.PhysicalResourceID == "" {
		return Response{}, MissingParameterError{Name: "PhysicalResourceId"}
	}

	out, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		logger.Error("put marker object failed", "bucket", bucket, "key", key, "error", err)
		return Response{}, fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}

	logger.Info("created marker object", "bucket", bucket, "key", key)
	resp := Response{PhysicalResourceID: req.PhysicalResourceID}
	if out != nil && out.ETag != nil {
		resp.Data = map[string]string{"ETag": aws.ToString(out.ETag)}
	}
	return resp, nil
}
