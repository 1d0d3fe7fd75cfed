package awsclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/blog/backend/internal/config"
)

func TestLoad_StaticCredentials(t *testing.T) {
	cfg := &config.Config{
		AWSRegion:          "eu-west-1",
		AWSAccessKeyID:     "AKIDEXAMPLE",
		AWSSecretAccessKey: "secret",
	}

	awsCfg, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}
