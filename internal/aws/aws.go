package aws

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// serviceAccountTokenPath exists inside every kubernetes pod with a mounted service account
const serviceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// Options selects where KMS credentials and endpoints come from. Zero values defer to the SDK chain.
type Options struct {
	Region  string
	Profile string
	// Endpoint overrides the service endpoint, e.g. a localstack URL
	Endpoint string
}

// Identity is the principal KMS calls are made as
type Identity struct {
	Account string `json:"account"`
	Arn     string `json:"arn"`
	UserId  string `json:"userId"`
}

func LoadAWSConfig(ctx context.Context, opts *Options) (aws.Config, error) {
	if opts == nil {
		opts = &Options{}
	}
	var options []func(*config.LoadOptions) error

	// pods use IRSA or the instance role, never a shared profile
	if profile := resolveProfile(opts.Profile, inKubernetes()); profile != "" {
		options = append(options, config.WithSharedConfigProfile(profile))
	}
	if opts.Region != "" {
		options = append(options, config.WithRegion(opts.Region))
	}
	if opts.Endpoint != "" {
		options = append(options, config.WithBaseEndpoint(opts.Endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return aws.Config{}, fmt.Errorf("no AWS region configured")
	}
	return cfg, nil
}

func inKubernetes() bool {
	_, err := os.Stat(serviceAccountTokenPath)
	return err == nil
}

func resolveProfile(explicit string, inCluster bool) string {
	if explicit != "" {
		return explicit
	}
	if inCluster {
		return ""
	}
	if profile := os.Getenv("AWS_PROFILE"); profile != "" {
		return profile
	}
	return "default"
}

// GetCallerIdentity reports which principal the KMS calls will be made as
func GetCallerIdentity(ctx context.Context, cfg aws.Config) (*Identity, error) {
	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get caller identity: %w", err)
	}
	return &Identity{
		Account: aws.ToString(out.Account),
		Arn:     aws.ToString(out.Arn),
		UserId:  aws.ToString(out.UserId),
	}, nil
}
