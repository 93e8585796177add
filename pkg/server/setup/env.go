package setup

const (
	EnvOpenAiApiKey         = "OPENAI_API_KEY"
	EnvOpenAiVisionModel    = "OPENAI_VISION_MODEL"
	EnvOpenAiImageModel     = "OPENAI_IMAGE_MODEL"
	EnvPinataJwt            = "PINATA_JWT"
	EnvPolygonRpcUrl        = "POLYGON_RPC_URL"
	EnvEthereumRpcUrl       = "ETHEREUM_RPC_URL"
	EnvNftContractAddress   = "NFT_CONTRACT_ADDRESS"
	EnvApiIpPort            = "API_IP_PORT"
	EnvWalletPrivateKeySeed = "WALLET_PRIVATE_KEY_SEED"
	EnvFrontendUrl          = "FRONTEND_URL"
)
