package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// bedrockResults is how many knowledge-base chunks are retrieved per query.
const bedrockResults = 4

// RetrieveAndGenerateAPI is the part of the Bedrock Agent Runtime client used here.
type RetrieveAndGenerateAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// Bedrock answers through a Bedrock knowledge base with retrieval-augmented generation.
type Bedrock struct {
	client          RetrieveAndGenerateAPI
	knowledgeBaseID string
}

// NewBedrock creates a Bedrock generator over an existing client.
func NewBedrock(client RetrieveAndGenerateAPI, knowledgeBaseID string) *Bedrock {
	return &Bedrock{client: client, knowledgeBaseID: knowledgeBaseID}
}

// DialBedrock loads the default AWS credential chain for region.
func DialBedrock(ctx context.Context, region, knowledgeBaseID string) (*Bedrock, error) {
	if knowledgeBaseID == "" {
		return nil, errors.New("bedrock: knowledge base id is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return NewBedrock(bedrockagentruntime.NewFromConfig(awsCfg), knowledgeBaseID), nil
}

// Generate implements Generator. req.Model is the foundation model ARN.
func (b *Bedrock) Generate(ctx context.Context, req Request) (string, error) {
	input := &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{Text: aws.String(req.Query)},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(b.knowledgeBaseID),
				ModelArn:        aws.String(req.Model),
				RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
					VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
						NumberOfResults: aws.Int32(bedrockResults),
					},
				},
				GenerationConfiguration: &types.GenerationConfiguration{
					PromptTemplate: &types.PromptTemplate{
						TextPromptTemplate: aws.String(BedrockTemplate(req.Knowledge)),
					},
				},
			},
		},
	}

	out, err := b.client.RetrieveAndGenerate(ctx, input)
	if err != nil {
		return "", err
	}
	if out.Output == nil {
		return "", nil
	}
	return aws.ToString(out.Output.Text), nil
}
