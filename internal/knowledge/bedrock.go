package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"go.uber.org/zap"
)

const (
	metadataTitleKey     = "x-amz-bedrock-kb-title"
	metadataSourceURIKey = "x-amz-bedrock-kb-source-uri"
)

// RetrieveAndGenerateAPI es el subconjunto del cliente de Bedrock Agent Runtime que se usa.
type RetrieveAndGenerateAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// BedrockClient implementa Client con una única llamada RetrieveAndGenerate sobre una knowledge base.
type BedrockClient struct {
	api             RetrieveAndGenerateAPI
	knowledgeBaseID string
	modelARN        string
	promptTemplate  string
	logger          *zap.Logger
}

func NewBedrockClient(api RetrieveAndGenerateAPI, knowledgeBaseID, modelARN, promptTemplate string, logger *zap.Logger) *BedrockClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if promptTemplate == "" {
		promptTemplate = DefaultPromptTemplate
	}
	return &BedrockClient{
		api:             api,
		knowledgeBaseID: knowledgeBaseID,
		modelARN:        modelARN,
		promptTemplate:  promptTemplate,
		logger:          logger,
	}
}

func (c *BedrockClient) Query(ctx context.Context, message, sessionID string) (Answer, error) {
	input := &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{
			Text: aws.String(message),
		},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(c.knowledgeBaseID),
				ModelArn:        aws.String(c.modelARN),
				GenerationConfiguration: &types.GenerationConfiguration{
					PromptTemplate: &types.PromptTemplate{
						TextPromptTemplate: aws.String(c.promptTemplate),
					},
				},
			},
		},
	}
	if sessionID != "" {
		input.SessionId = aws.String(sessionID)
	}

	out, err := c.api.RetrieveAndGenerate(ctx, input)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: retrieve and generate: %w", ErrKnowledgeService, err)
	}
	if out == nil || out.Output == nil || out.Output.Text == nil {
		return Answer{}, fmt.Errorf("%w: response without output text", ErrKnowledgeService)
	}
	newSessionID := aws.ToString(out.SessionId)
	if newSessionID == "" {
		return Answer{}, fmt.Errorf("%w: response without session id", ErrKnowledgeService)
	}

	citations := citationsFromOutput(out.Citations)
	c.logger.Debug("knowledge base answered",
		zap.String("session_id", newSessionID),
		zap.Int("citations", len(citations)),
	)

	return Answer{
		Text:      SpliceCitations(aws.ToString(out.Output.Text), citations),
		SessionID: newSessionID,
	}, nil
}

func citationsFromOutput(raw []types.Citation) []Citation {
	citations := make([]Citation, 0, len(raw))
	for _, rc := range raw {
		var c Citation
		if part := rc.GeneratedResponsePart; part != nil && part.TextResponsePart != nil && part.TextResponsePart.Span != nil {
			c.Span = Span{
				Start: int(aws.ToInt32(part.TextResponsePart.Span.Start)),
				End:   int(aws.ToInt32(part.TextResponsePart.Span.End)),
			}
		}
		for _, ref := range rc.RetrievedReferences {
			url := metadataString(ref.Metadata, metadataSourceURIKey)
			if url == "" {
				url = locationURL(ref.Location)
			}
			c.References = append(c.References, CitationReference{
				Title: metadataString(ref.Metadata, metadataTitleKey),
				URL:   url,
			})
		}
		citations = append(citations, c)
	}
	return citations
}

func metadataString(md map[string]document.Interface, key string) string {
	v, ok := md[key]
	if !ok || v == nil {
		return ""
	}
	var s string
	if err := v.UnmarshalSmithyDocument(&s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func locationURL(loc *types.RetrievalResultLocation) string {
	if loc == nil {
		return ""
	}
	switch {
	case loc.S3Location != nil:
		return aws.ToString(loc.S3Location.Uri)
	case loc.WebLocation != nil:
		return aws.ToString(loc.WebLocation.Url)
	case loc.ConfluenceLocation != nil:
		return aws.ToString(loc.ConfluenceLocation.Url)
	case loc.SharePointLocation != nil:
		return aws.ToString(loc.SharePointLocation.Url)
	case loc.SalesforceLocation != nil:
		return aws.ToString(loc.SalesforceLocation.Url)
	}
	return ""
}
