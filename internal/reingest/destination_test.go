package reingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDestination(t *testing.T) {
	cases := []struct {
		name     string
		arn      string
		fallback string
		want     Destination
		wantErr  bool
	}{
		{
			name: "delivery stream",
			arn:  "arn:aws:firehose:us-east-1:123456789012:deliverystream/cwl-to-splunk",
			want: Destination{Region: "us-east-1", Name: "cwl-to-splunk"},
		},
		{
			name:     "region in arn wins over fallback",
			arn:      "arn:aws:firehose:eu-west-2:123456789012:deliverystream/logs",
			fallback: "us-west-2",
			want:     Destination{Region: "eu-west-2", Name: "logs"},
		},
		{
			name:     "fallback region",
			arn:      "arn:aws:firehose::123456789012:deliverystream/logs",
			fallback: "us-west-2",
			want:     Destination{Region: "us-west-2", Name: "logs"},
		},
		{name: "no region anywhere", arn: "arn:aws:firehose::123456789012:deliverystream/logs", wantErr: true},
		{name: "not an arn", arn: "cwl-to-splunk", wantErr: true},
		{name: "missing stream name", arn: "arn:aws:firehose:us-east-1:123456789012:deliverystream/", wantErr: true},
		{name: "missing resource type", arn: "arn:aws:firehose:us-east-1:123456789012:logs", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDestination(tc.arn, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidDestination)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
