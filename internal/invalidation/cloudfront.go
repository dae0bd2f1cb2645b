package invalidation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudfront"
	"github.com/aws/aws-sdk-go/service/cloudfront/cloudfrontiface"
)

// CloudFront purges paths from a CloudFront distribution.
type CloudFront struct {
	client       cloudfrontiface.CloudFrontAPI
	distribution string
	now          func() time.Time
}

func NewCloudFront(distribution, region string) (*CloudFront, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewCloudFrontWithClient(cloudfront.New(sess), distribution), nil
}

func NewCloudFrontWithClient(client cloudfrontiface.CloudFrontAPI, distribution string) *CloudFront {
	return &CloudFront{client: client, distribution: distribution, now: time.Now}
}

// Invalidate creates one invalidation covering paths. Store keys are
// turned into absolute URL paths.
func (c *CloudFront) Invalidate(ctx context.Context, paths []string) error {
	items := make([]string, len(paths))
	for i, p := range paths {
		items[i] = "/" + strings.TrimPrefix(p, "/")
	}

	out, err := c.client.CreateInvalidationWithContext(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(c.distribution),
		InvalidationBatch: &cloudfront.InvalidationBatch{
			CallerReference: aws.String(fmt.Sprintf("epicmirror-%d", c.now().UnixNano())),
			Paths: &cloudfront.Paths{
				Quantity: aws.Int64(int64(len(items))),
				Items:    aws.StringSlice(items),
			},
		},
	})
	if err != nil {
		return err
	}
	if out.Invalidation != nil {
		slog.Info("Invalidation created",
			"distribution", c.distribution,
			"id", aws.StringValue(out.Invalidation.Id),
			"status", aws.StringValue(out.Invalidation.Status))
	}
	return nil
}
