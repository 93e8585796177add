package setup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibl-labs/aibl-backend/pkg/server/setup"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv(setup.EnvOpenAiApiKey, "sk-test")
	t.Setenv(setup.EnvPinataJwt, "jwt-test")
	t.Setenv(setup.EnvPolygonRpcUrl, "https://polygon.example")
	t.Setenv(setup.EnvEthereumRpcUrl, "https://ethereum.example")
	t.Setenv(setup.EnvNftContractAddress, "0x31D93360FA9572F3DddeF296990740Be052B8d0a")
}

func TestNewConfigFromEnv(t *testing.T) {
	setRequiredEnv(t)

	config, err := setup.NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", config.OpenAiApiKey)
	assert.Equal(t, setup.DefaultVisionModel, config.OpenAiVisionModel)
	assert.Equal(t, setup.DefaultImageModel, config.OpenAiImageModel)
	assert.Equal(t, setup.DefaultApiIpPort, config.ApiIpPort)
}

func TestNewConfigFromEnvMissingPinataCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(setup.EnvPinataJwt, "")

	_, err := setup.NewConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PINATA_JWT")
	assert.Contains(t, err.Error(), "pinning credentials")
}

func TestNewConfigFromEnvMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{"openai key", setup.EnvOpenAiApiKey},
		{"polygon rpc", setup.EnvPolygonRpcUrl},
		{"ethereum rpc", setup.EnvEthereumRpcUrl},
		{"contract address", setup.EnvNftContractAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.env, "")

			_, err := setup.NewConfigFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestNewConfigFromEnvInvalidContractAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(setup.EnvNftContractAddress, "not-an-address")

	_, err := setup.NewConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NFT_CONTRACT_ADDRESS")
}
