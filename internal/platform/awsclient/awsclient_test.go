package awsclient

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
)

func TestClientsCarryConfig(t *testing.T) {
	cfg := aws.Config{Region: "eu-west-1", BaseEndpoint: aws.String("http://localhost:4566")}

	s3c := NewS3(cfg)
	assert.Equal(t, "eu-west-1", s3c.Options().Region)
	assert.True(t, s3c.Options().UsePathStyle)
	assert.Equal(t, "http://localhost:4566", aws.ToString(s3c.Options().BaseEndpoint))

	sqsc := NewSQS(cfg)
	assert.Equal(t, "eu-west-1", sqsc.Options().Region)
}
