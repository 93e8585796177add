package setup

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultVisionModel = "gpt-4o"
	DefaultImageModel  = "dall-e-3"
	DefaultApiIpPort   = ":5001"
)

type Config struct {
	OpenAiApiKey         string
	OpenAiVisionModel    string
	OpenAiImageModel     string
	PinataJwt            string
	PolygonRpcUrl        string
	EthereumRpcUrl       string
	NftContractAddress   string
	ApiIpPort            string
	WalletPrivateKeySeed string
	FrontendUrl          string
}

func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		OpenAiApiKey:         os.Getenv(EnvOpenAiApiKey),
		OpenAiVisionModel:    os.Getenv(EnvOpenAiVisionModel),
		OpenAiImageModel:     os.Getenv(EnvOpenAiImageModel),
		PinataJwt:            os.Getenv(EnvPinataJwt),
		PolygonRpcUrl:        os.Getenv(EnvPolygonRpcUrl),
		EthereumRpcUrl:       os.Getenv(EnvEthereumRpcUrl),
		NftContractAddress:   os.Getenv(EnvNftContractAddress),
		ApiIpPort:            os.Getenv(EnvApiIpPort),
		WalletPrivateKeySeed: os.Getenv(EnvWalletPrivateKeySeed),
		FrontendUrl:          os.Getenv(EnvFrontendUrl),
	}

	if config.OpenAiVisionModel == "" {
		config.OpenAiVisionModel = DefaultVisionModel
	}
	if config.OpenAiImageModel == "" {
		config.OpenAiImageModel = DefaultImageModel
	}
	if config.ApiIpPort == "" {
		config.ApiIpPort = DefaultApiIpPort
	}

	err := config.Validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.PinataJwt == "" {
		return errors.New("PINATA_JWT is required: pinning credentials are missing, generate an API JWT in the Pinata dashboard")
	}
	if c.OpenAiApiKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if c.PolygonRpcUrl == "" {
		return errors.New("POLYGON_RPC_URL is required")
	}
	if c.EthereumRpcUrl == "" {
		return errors.New("ETHEREUM_RPC_URL is required")
	}
	if c.NftContractAddress == "" {
		return errors.New("NFT_CONTRACT_ADDRESS is required")
	}
	if !common.IsHexAddress(c.NftContractAddress) {
		return fmt.Errorf("NFT_CONTRACT_ADDRESS is not a valid address: %s", c.NftContractAddress)
	}

	return nil
}
