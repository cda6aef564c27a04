// Command initaction is the serverless function behind the pipeline
// bucket's initialization action. `make initaction` builds it as
// bin/initaction.zip for the provided.al2 runtime.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"infrastructure-pipeline/internal/initaction"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	handler := initaction.NewHandler(s3.NewFromConfig(awsCfg), logger)
	lambda.Start(func(ctx context.Context, req initaction.Request) (initaction.Response, error) {
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			logger.Info("invoked", "awsRequestId", lc.AwsRequestID)
		}
		return handler.Handle(ctx, req)
	})
}
