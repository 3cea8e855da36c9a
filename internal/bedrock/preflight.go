package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Identity describes the AWS principal a run will execute as.
type Identity struct {
	Account string
	ARN     string
	UserID  string
}

// CheckCredentials verifies that the configured credentials resolve to a
// real principal before any load is generated.
func CheckCredentials(ctx context.Context, cc ClientConfig) (*Identity, error) {
	cfg, err := AWSConfig(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("credential check failed: %w", err)
	}

	return &Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}
