package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/ignite/outbound/internal/domain"
)

const dkimTTL = 1800

// Route53API is the subset of the Route53 client used here.
type Route53API interface {
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Route53Publisher upserts DKIM records into one hosted zone.
type Route53Publisher struct {
	client       Route53API
	hostedZoneID string
}

func NewRoute53Publisher(client Route53API, hostedZoneID string) *Route53Publisher {
	return &Route53Publisher{client: client, hostedZoneID: hostedZoneID}
}

// Publish sends all records in one change batch.
func (p *Route53Publisher) Publish(ctx context.Context, records []domain.DNSRecord) error {
	changes := make([]r53types.Change, 0, len(records))
	for _, rec := range records {
		name := rec.Name
		if !strings.HasSuffix(name, ".") {
			name += "."
		}
		changes = append(changes, r53types.Change{
			Action: r53types.ChangeActionUpsert,
			ResourceRecordSet: &r53types.ResourceRecordSet{
				Name: aws.String(name),
				Type: r53types.RRType(rec.Type),
				TTL:  aws.Int64(dkimTTL),
				ResourceRecords: []r53types.ResourceRecord{
					{Value: aws.String(rec.Value)},
				},
			},
		})
	}

	_, err := p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(p.hostedZoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: changes,
			Comment: aws.String("DKIM records for sending domain"),
		},
	})
	if err != nil {
		return fmt.Errorf("upserting Route53 records: %w", err)
	}
	return nil
}
