package initaction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createRequest() Request {
	return Request{
		RequestType: RequestCreate,
		Service:     "S3",
		Action:      "putObject",
		Parameters: map[string]string{
			"Bucket": "sats-dev-pipeline-data-stage",
			"Key":    "WIP/",
		},
		PhysicalResourceID: "sats-dev-pipeline-data-stage/WIP",
	}
}

func isMarkerPut(in *s3.PutObjectInput) bool {
	if aws.ToString(in.Bucket) != "sats-dev-pipeline-data-stage" || aws.ToString(in.Key) != "WIP/" {
		return false
	}
	if aws.ToInt64(in.ContentLength) != 0 {
		return false
	}
	body, err := io.ReadAll(in.Body)
	return err == nil && len(body) == 0
}

func TestHandle_Create(t *testing.T) {
	client := &mockPutter{}
	client.On("PutObject", mock.Anything, mock.MatchedBy(isMarkerPut)).
		Return(&s3.PutObjectOutput{ETag: aws.String(`"d41d8cd98f00b204e9800998ecf8427e"`)}, nil).
		Once()

	resp, err := NewHandler(client, quietLogger()).Handle(context.Background(), createRequest())
	require.NoError(t, err)
	assert.Equal(t, "sats-dev-pipeline-data-stage/WIP", resp.PhysicalResourceID)
	assert.Equal(t, `"d41d8cd98f00b204e9800998ecf8427e"`, resp.Data["ETag"])
	client.AssertExpectations(t)
}

func TestHandle_UpdateRewritesMarker(t *testing.T) {
	client := &mockPutter{}
	client.On("PutObject", mock.Anything, mock.MatchedBy(isMarkerPut)).Return(&s3.PutObjectOutput{}, nil).Once()

	req := createRequest()
	req.RequestType = RequestUpdate
	resp, err := NewHandler(client, quietLogger()).Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.PhysicalResourceID, resp.PhysicalResourceID)
	assert.Empty(t, resp.Data)
	client.AssertExpectations(t)
}

func TestHandle_DeleteDoesNotWrite(t *testing.T) {
	client := &mockPutter{}

	req := createRequest()
	req.RequestType = RequestDelete
	resp, err := NewHandler(client, quietLogger()).Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.PhysicalResourceID, resp.PhysicalResourceID)
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestHandle_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		target any
	}{
		{"unknown request type", func(r *Request) { r.RequestType = "Poke" }, &UnsupportedCallError{}},
		{"other service", func(r *Request) { r.Service = "DynamoDB" }, &UnsupportedCallError{}},
		{"other action", func(r *Request) { r.Action = "deleteObject" }, &UnsupportedCallError{}},
		{"no bucket", func(r *Request) { delete(r.Parameters, "Bucket") }, &MissingParameterError{}},
		{"no key", func(r *Request) { r.Parameters["Key"] = "" }, &MissingParameterError{}},
		{"no physical id", func(r *Request) { r.PhysicalResourceID = "" }, &MissingParameterError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockPutter{}
			req := createRequest()
			tt.mutate(&req)

			_, err := NewHandler(client, quietLogger()).Handle(context.Background(), req)
			require.Error(t, err)
			switch target := tt.target.(type) {
			case *UnsupportedCallError:
				assert.True(t, errors.As(err, target))
			case *MissingParameterError:
				assert.True(t, errors.As(err, target))
			}
			client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
		})
	}
}

func TestHandle_PutFailure(t *testing.T) {
	denied := errors.New("AccessDenied")
	client := &mockPutter{}
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, denied)

	_, err := NewHandler(client, quietLogger()).Handle(context.Background(), createRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)
	assert.Contains(t, err.Error(), "s3://sats-dev-pipeline-data-stage/WIP/")
}
