package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibl-labs/aibl-backend/pkg/server"
	"github.com/aibl-labs/aibl-backend/pkg/server/chain"
	"github.com/aibl-labs/aibl-backend/pkg/server/cid"
	"github.com/aibl-labs/aibl-backend/pkg/server/filestorage"
	"github.com/aibl-labs/aibl-backend/pkg/server/metadata"
)

var (
	testImageCid    = "Qm" + strings.Repeat("a", 44)
	testMetadataCid = "Qm" + strings.Repeat("b", 44)
)

type mockArtGenerator struct {
	transform func(ctx context.Context, imageURL string, instruction string) (string, error)
}

func (m *mockArtGenerator) Transform(ctx context.Context, imageURL string, instruction string) (string, error) {
	if m.transform != nil {
		return m.transform(ctx, imageURL, instruction)
	}
	return "https://example.com/transformed.png", nil
}

type mockUploader struct {
	pinFile func(ctx context.Context, data []byte, filename string, meta filestorage.PinMeta) (filestorage.PinnedAsset, error)
	pinJson func(ctx context.Context, v interface{}, meta filestorage.PinMeta) (filestorage.PinnedAsset, error)
}

func (m *mockUploader) PinFile(ctx context.Context, data []byte, filename string, meta filestorage.PinMeta) (filestorage.PinnedAsset, error) {
	if m.pinFile != nil {
		return m.pinFile(ctx, data, filename, meta)
	}
	return filestorage.PinnedAsset{
		Cid:        testImageCid,
		GatewayURL: filestorage.GatewayBaseURL + testImageCid,
	}, nil
}

func (m *mockUploader) PinJSON(ctx context.Context, v interface{}, meta filestorage.PinMeta) (filestorage.PinnedAsset, error) {
	if m.pinJson != nil {
		return m.pinJson(ctx, v, meta)
	}
	return filestorage.PinnedAsset{
		Cid:        testMetadataCid,
		GatewayURL: filestorage.GatewayBaseURL + testMetadataCid,
	}, nil
}

type mockMinter struct {
	buildTransaction func(ctx context.Context, req chain.MintRequest) (*chain.MintTransaction, error)
	mintDirect       func(ctx context.Context, req chain.MintRequest) (*chain.MintReceipt, error)
}

func (m *mockMinter) BuildTransaction(ctx context.Context, req chain.MintRequest) (*chain.MintTransaction, error) {
	if m.buildTransaction != nil {
		return m.buildTransaction(ctx, req)
	}
	if err := cid.Validate(req.Cid); err != nil {
		return nil, err
	}
	if req.Network != server.NetworkPolygon && req.Network != server.NetworkEthereum {
		return nil, fmt.Errorf("network %s: %w", req.Network, chain.ErrUnsupportedNetwork)
	}
	return &chain.MintTransaction{
		To:       "0x1234567890123456789012345678901234567890",
		Data:     "0xabcdef",
		GasLimit: "120000",
		GasPrice: "1000000000",
		ChainID:  server.PolygonChainId,
	}, nil
}

func (m *mockMinter) MintDirect(ctx context.Context, req chain.MintRequest) (*chain.MintReceipt, error) {
	if m.mintDirect != nil {
		return m.mintDirect(ctx, req)
	}
	return &chain.MintReceipt{
		Hash:        "0x" + strings.Repeat("1", 64),
		Cid:         req.Cid,
		BlockNumber: 42,
	}, nil
}

func newTestRegistry() *chain.Registry {
	return chain.NewRegistry(
		chain.Network{
			Name:    server.NetworkPolygon,
			ChainID: big.NewInt(server.PolygonChainId),
			RpcUrl:  "http://localhost:8545",
		},
		chain.Network{
			Name:    server.NetworkEthereum,
			ChainID: big.NewInt(server.EthereumChainId),
			RpcUrl:  "http://localhost:8546",
		},
	)
}

// newTestGateway serves a valid metadata document for any cid.
func newTestGateway(t *testing.T) *httptest.Server {
	t.Helper()
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"name":        "Test NFT",
			"description": "test",
			"image":       "ipfs://" + testImageCid,
		})
	}))
	t.Cleanup(gateway.Close)
	return gateway
}

func setupTestServer(t *testing.T, opts ...func(*server.Config)) *server.Server {
	t.Helper()

	gateway := newTestGateway(t)
	resolver := metadata.NewResolver(metadata.ResolverOptions{
		HttpClient: gateway.Client(),
		GatewayURL: gateway.URL + "/",
	})

	config := &server.Config{
		Generator: &mockArtGenerator{},
		Uploader:  &mockUploader{},
		Minter:    &mockMinter{},
		Resolver:  resolver,
		Registry:  newTestRegistry(),
		ApiIpPort: "",
	}

	for _, opt := range opts {
		opt(config)
	}

	srv, err := server.NewServer(config)
	require.NoError(t, err)
	return srv
}

func TestNewServer(t *testing.T) {
	tests := []struct {
		name      string
		config    *server.Config
		wantError string
	}{
		{
			name:      "nil config",
			config:    nil,
			wantError: "config is nil",
		},
		{
			name: "missing generator",
			config: &server.Config{
				Uploader: &mockUploader{},
				Minter:   &mockMinter{},
				Registry: newTestRegistry(),
			},
			wantError: "generator is nil",
		},
		{
			name: "missing uploader",
			config: &server.Config{
				Generator: &mockArtGenerator{},
				Minter:    &mockMinter{},
				Registry:  newTestRegistry(),
			},
			wantError: "uploader is nil",
		},
		{
			name: "missing minter",
			config: &server.Config{
				Generator: &mockArtGenerator{},
				Uploader:  &mockUploader{},
				Registry:  newTestRegistry(),
			},
			wantError: "minter is nil",
		},
		{
			name: "missing registry",
			config: &server.Config{
				Generator: &mockArtGenerator{},
				Uploader:  &mockUploader{},
				Minter:    &mockMinter{},
			},
			wantError: "registry is nil",
		},
		{
			name: "valid config",
			config: &server.Config{
				Generator: &mockArtGenerator{},
				Uploader:  &mockUploader{},
				Minter:    &mockMinter{},
				Registry:  newTestRegistry(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := server.NewServer(tt.config)
			if tt.wantError != "" {
				assert.ErrorContains(t, err, tt.wantError)
				assert.Nil(t, srv)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, srv)
			assert.NotNil(t, srv.GetRouter())
		})
	}
}

func TestNewConfigFromSetup_NilSetup(t *testing.T) {
	config, err := server.NewConfigFromSetup(nil)
	assert.ErrorContains(t, err, "setup config is nil")
	assert.Nil(t, config)
}
