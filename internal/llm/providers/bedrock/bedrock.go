// Package bedrock implements the AWS Bedrock Converse adapter.
package bedrock

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/orcabase/orca/internal/llm"
)

const (
	providerName  = "bedrock"
	defaultRegion = "us-east-1"
)

func init() {
	llm.RegisterProvider(llm.ProviderBedrock, New)
}

// RuntimeClient is the subset of the Bedrock runtime client the adapter
// uses. Satisfied by *bedrockruntime.Client and by mocks in tests.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

var _ llm.Provider = (*Provider)(nil)

type Provider struct {
	runtime RuntimeClient
}

// New creates a Bedrock provider authenticated from the standard AWS
// environment variables.
func New(cfg llm.Config) (llm.Provider, error) {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey == "" || secretKey == "" {
		return nil, llm.ErrNoAPIKey
	}
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = defaultRegion
	}

	client := bedrockruntime.New(bedrockruntime.Options{
		Region: region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     accessKey,
				SecretAccessKey: secretKey,
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			}, nil
		}),
	})
	return &Provider{runtime: client}, nil
}

// NewWithRuntime creates a provider over an existing runtime client.
func NewWithRuntime(runtime RuntimeClient) *Provider {
	return &Provider{runtime: runtime}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
		Messages: []brtypes.Message{{
			Role: brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberText{Value: req.Prompt},
			},
		}},
	}
	if req.System != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: req.System},
		}
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		cfg := &brtypes.InferenceConfiguration{}
		if req.Temperature != nil {
			t := float32(*req.Temperature)
			cfg.Temperature = &t
		}
		if req.MaxTokens != nil {
			n := int32(*req.MaxTokens)
			cfg.MaxTokens = &n
		}
		input.InferenceConfig = cfg
	}

	out, err := p.runtime.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("bedrock converse failed: %w", err)
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("unexpected converse output type %T", out.Output)
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
