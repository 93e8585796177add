package server

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/aibl-labs/aibl-backend/pkg/server/art"
	"github.com/aibl-labs/aibl-backend/pkg/server/chain"
	"github.com/aibl-labs/aibl-backend/pkg/server/filestorage"
	"github.com/aibl-labs/aibl-backend/pkg/server/metadata"
	"github.com/aibl-labs/aibl-backend/pkg/server/nft"
	"github.com/aibl-labs/aibl-backend/pkg/server/pipeline"
	"github.com/aibl-labs/aibl-backend/pkg/server/setup"
	"github.com/aibl-labs/aibl-backend/pkg/server/wallet"
)

const (
	NetworkPolygon  = "polygon"
	NetworkEthereum = "ethereum"

	PolygonChainId  = 80002
	EthereumChainId = 11155111
)

const defaultMaxConcurrentRuns = 8

type Server struct {
	generator   art.Generator
	uploader    filestorage.Uploader
	nftUploader *nft.Uploader
	resolver    *metadata.Resolver
	minter      pipeline.Minter
	registry    *chain.Registry
	pipeline    *pipeline.Pipeline
	runs        pond.ResultPool[*pipeline.Result]
	httpClient  *http.Client
	apiRouter   *gin.Engine

	apiIpPort     string
	frontendUrl   string
	maxUploadSize int64
	directMode    bool
}

type Config struct {
	Generator  art.Generator
	Uploader   filestorage.Uploader
	Minter     pipeline.Minter
	Resolver   *metadata.Resolver
	Registry   *chain.Registry
	HttpClient *http.Client

	ApiIpPort         string
	FrontendUrl       string
	MaxUploadSize     int64
	MaxConcurrentRuns int
	DirectMintEnabled bool
}

func NewServer(config *Config) (*Server, error) {
	if config == nil {
		return nil, errors.New("config is nil")
	}
	if config.Generator == nil {
		return nil, errors.New("generator is nil")
	}
	if config.Uploader == nil {
		return nil, errors.New("uploader is nil")
	}
	if config.Minter == nil {
		return nil, errors.New("minter is nil")
	}
	if config.Registry == nil {
		return nil, errors.New("registry is nil")
	}

	httpClient := config.HttpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resolver := config.Resolver
	if resolver == nil {
		resolver = metadata.NewResolver(metadata.ResolverOptions{HttpClient: httpClient})
	}

	maxUploadSize := config.MaxUploadSize
	if maxUploadSize == 0 {
		maxUploadSize = filestorage.DefaultMaxPinSize
	}

	maxConcurrentRuns := config.MaxConcurrentRuns
	if maxConcurrentRuns == 0 {
		maxConcurrentRuns = defaultMaxConcurrentRuns
	}

	server := &Server{
		generator:   config.Generator,
		uploader:    config.Uploader,
		nftUploader: nft.NewUploader(config.Uploader),
		resolver:    resolver,
		minter:      config.Minter,
		registry:    config.Registry,
		runs:        pond.NewResultPool[*pipeline.Result](maxConcurrentRuns),
		httpClient:  httpClient,

		apiIpPort:     config.ApiIpPort,
		frontendUrl:   config.FrontendUrl,
		maxUploadSize: maxUploadSize,
		directMode:    config.DirectMintEnabled,
	}

	uploadPipeline, err := pipeline.New(pipeline.Options{
		Generator:   server.generator,
		NftUploader: server.nftUploader,
		Minter:      server.minter,
		Checker:     server.resolver,
		FetchImage:  server.fetchImageBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	server.pipeline = uploadPipeline

	server.apiRouter = server.generateRouter()

	return server, nil
}

func NewConfigFromSetup(setupConfig *setup.Config) (*Config, error) {
	if setupConfig == nil {
		return nil, errors.New("setup config is nil")
	}

	contractAddress := common.HexToAddress(setupConfig.NftContractAddress)

	registry := chain.NewRegistry(
		chain.Network{
			Name:            NetworkPolygon,
			ChainID:         big.NewInt(PolygonChainId),
			RpcUrl:          setupConfig.PolygonRpcUrl,
			ContractAddress: contractAddress,
		},
		chain.Network{
			Name:            NetworkEthereum,
			ChainID:         big.NewInt(EthereumChainId),
			RpcUrl:          setupConfig.EthereumRpcUrl,
			ContractAddress: contractAddress,
		},
	)

	var signingWallet *wallet.Wallet
	if setupConfig.WalletPrivateKeySeed != "" {
		seed, err := hex.DecodeString(strings.TrimPrefix(setupConfig.WalletPrivateKeySeed, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", setup.EnvWalletPrivateKeySeed, err)
		}

		signingWallet, err = wallet.NewWallet(seed)
		if err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
	}

	minter, err := chain.NewMinter(chain.MinterOptions{
		Registry: registry,
		Wallet:   signingWallet,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minter: %w", err)
	}

	return &Config{
		Generator:  art.NewOpenAiGenerator(setupConfig.OpenAiApiKey, setupConfig.OpenAiVisionModel, setupConfig.OpenAiImageModel),
		Uploader:   filestorage.NewPinataUploader(setupConfig.PinataJwt),
		Minter:     minter,
		Registry:   registry,
		HttpClient: http.DefaultClient,

		ApiIpPort:         setupConfig.ApiIpPort,
		FrontendUrl:       setupConfig.FrontendUrl,
		DirectMintEnabled: signingWallet != nil,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.StartServer(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	s.runs.StopAndWait()
	return ctx.Err()
}

func (s *Server) StartServer(ctx context.Context) error {
	slog.Info("starting server", "port", s.apiIpPort, "networks", s.registry.Names())

	if s.apiIpPort == "" {
		slog.Info("api ip port is empty, skipping server")
		return nil
	}

	server := &http.Server{
		Addr:    s.apiIpPort,
		Handler: s.apiRouter,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.apiRouter
}

// fetchImageBytes downloads an image, bounded by the configured upload size.
// Data URIs are decoded in place.
func (s *Server) fetchImageBytes(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "data:") {
		data, err := decodeDataUri(url)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > s.maxUploadSize {
			return nil, fmt.Errorf("image exceeds the %d byte limit", s.maxUploadSize)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.maxUploadSize {
		return nil, fmt.Errorf("image exceeds the %d byte limit", s.maxUploadSize)
	}

	return data, nil
}

func decodeDataUri(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}

	if strings.HasSuffix(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data uri: %w", err)
		}
		return data, nil
	}

	return []byte(payload), nil
}
