package main

import (
	"fmt"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"infrastructure-pipeline/internal/config"
	"infrastructure-pipeline/internal/declare"
	"infrastructure-pipeline/internal/stack"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		cfg, err := config.Load(ctx)
		if err != nil {
			return err
		}

		set, err := declare.New(cfg.Declaration)
		if err != nil {
			return err
		}
		ctx.Log.Info(fmt.Sprintf("declaring %s", set.Bucket.Name), nil)

		collaborators, err := stack.NewCollaborators(ctx, "pipeline-collaborators", set)
		if err != nil {
			return err
		}

		pipeline, err := stack.NewPipeline(ctx, "pipeline", &stack.PipelineArgs{
			Declarations:      set,
			KeyArn:            collaborators.KeyArn,
			LoggingBucketName: collaborators.LoggingBucketName,
			HandlerCode:       pulumi.NewFileArchive(cfg.HandlerArchive),
		})
		if err != nil {
			return err
		}

		ctx.Export("bucketName", pipeline.BucketName)
		ctx.Export("bucketArn", pipeline.BucketArn)
		ctx.Export("roleArn", pipeline.RoleArn)
		ctx.Export("initPhysicalResourceId", pipeline.PhysicalResourceID)
		ctx.Export("kmsKeyArn", collaborators.KeyArn)
		ctx.Export("loggingBucketName", collaborators.LoggingBucketName)

		return nil
	})
}
