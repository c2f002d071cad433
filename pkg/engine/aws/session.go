package aws

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/DrSkyle/leastpriv/pkg/version"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Client holds the resolved SDK configuration shared by every service client.
type Client struct {
	Config aws.Config
	STS    *sts.Client
}

// SessionOptions selects credentials and diagnostics for a session.
type SessionOptions struct {
	Region  string
	Profile string
	// Verbose logs every API operation at debug level.
	Verbose bool
	Logger  *slog.Logger
}

// NewClient initializes a new authenticated AWS client.
func NewClient(ctx context.Context, opts SessionOptions) (*Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	// Local endpoint override (LocalStack).
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	cfg.APIOptions = append(cfg.APIOptions, userAgentMiddleware)

	if opts.Verbose {
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		cfg.APIOptions = append(cfg.APIOptions, operationLogger(logger))
	}

	return &Client{
		Config: cfg,
		STS:    sts.NewFromConfig(cfg),
	}, nil
}

// userAgentMiddleware tags every request so CloudTrail shows leastpriv calls.
func userAgentMiddleware(stack *middleware.Stack) error {
	return stack.Build.Add(middleware.BuildMiddlewareFunc("LeastPrivUserAgent", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
		middleware.BuildOutput, middleware.Metadata, error,
	) {
		if req, ok := input.Request.(*smithyhttp.Request); ok {
			ua := req.Header.Get("User-Agent")
			tag := fmt.Sprintf("%s/%s", version.AppName, version.Current)
			if ua == "" {
				req.Header.Set("User-Agent", tag)
			} else {
				req.Header.Set("User-Agent", ua+" "+tag)
			}
		}
		return next.HandleBuild(ctx, input)
	}), middleware.After)
}

func operationLogger(logger *slog.Logger) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Initialize.Add(middleware.InitializeMiddlewareFunc("LeastPrivOperationLogger", func(ctx context.Context, input middleware.InitializeInput, next middleware.InitializeHandler) (
			middleware.InitializeOutput, middleware.Metadata, error,
		) {
			logger.Debug("AWS API call",
				"service", awsmiddleware.GetServiceID(ctx),
				"operation", middleware.GetOperationName(ctx))
			return next.HandleInitialize(ctx, input)
		}), middleware.Before)
	}
}

// VerifyIdentity validates the session credentials and returns the caller ARN.
func (c *Client) VerifyIdentity(ctx context.Context) (string, error) {
	result, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return aws.ToString(result.Arn), nil
}
