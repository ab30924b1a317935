package reingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// ErrInvalidDestination is wrapped by ParseDestination on malformed input.
var ErrInvalidDestination = errors.New("invalid re-ingestion destination")

// Destination addresses the delivery stream evicted records are sent back to.
type Destination struct {
	Region string
	Name   string
}

func (d Destination) String() string {
	return d.Region + "/" + d.Name
}

// ParseDestination extracts region and stream name from a delivery stream
// ARN such as arn:aws:firehose:us-east-1:123456789012:deliverystream/name.
// fallbackRegion is used when the ARN carries no region.
func ParseDestination(streamARN, fallbackRegion string) (Destination, error) {
	parsed, err := arn.Parse(streamARN)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %q: %w", ErrInvalidDestination, streamARN, err)
	}
	_, name, ok := strings.Cut(parsed.Resource, "/")
	if !ok || name == "" {
		return Destination{}, fmt.Errorf("%w: %q has no stream name", ErrInvalidDestination, streamARN)
	}
	region := parsed.Region
	if region == "" {
		region = fallbackRegion
	}
	if region == "" {
		return Destination{}, fmt.Errorf("%w: %q has no region", ErrInvalidDestination, streamARN)
	}
	return Destination{Region: region, Name: name}, nil
}
