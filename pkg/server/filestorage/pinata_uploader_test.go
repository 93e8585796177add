package filestorage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zde37/pinata-go-sdk/pinata"
)

type mockPinClient struct {
	pinFile func(filePath string, options *pinata.PinOptions) (string, error)
}

func (m *mockPinClient) PinFile(filePath string, options *pinata.PinOptions) (string, error) {
	return m.pinFile(filePath, options)
}

func newTestUploader(t *testing.T, client pinClient) *PinataUploader {
	return &PinataUploader{
		client:     client,
		stagingDir: t.TempDir(),
		maxPinSize: DefaultMaxPinSize,
	}
}

func assertNoStagedFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory should be empty after the call")
}

func TestPinataUploader_PinFile(t *testing.T) {
	uploader := newTestUploader(t, &mockPinClient{
		pinFile: func(filePath string, options *pinata.PinOptions) (string, error) {
			data, err := os.ReadFile(filePath)
			require.NoError(t, err)
			assert.Equal(t, []byte("image-bytes"), data)
			assert.Equal(t, "test image", options.PinataMetadata.Name)
			assert.Equal(t, map[string]interface{}{"uploadedBy": "AIBL"}, options.PinataMetadata.KeyValues)
			assert.Equal(t, 0, options.PinataOptions.CidVersion)
			return "QmTestHash", nil
		},
	})

	asset, err := uploader.PinFile(context.Background(), []byte("image-bytes"), "art.png", PinMeta{
		Name:      "test image",
		KeyValues: map[string]string{"uploadedBy": "AIBL"},
	})
	require.NoError(t, err)
	assert.Equal(t, "QmTestHash", asset.Cid)
	assert.Equal(t, GatewayBaseURL+"QmTestHash", asset.GatewayURL)
	assertNoStagedFiles(t, uploader.stagingDir)
}

func TestPinataUploader_PinFileReleasesStagingOnFailure(t *testing.T) {
	uploader := newTestUploader(t, &mockPinClient{
		pinFile: func(filePath string, options *pinata.PinOptions) (string, error) {
			return "", errors.New("server responded with 500")
		},
	})

	_, err := uploader.PinFile(context.Background(), []byte("data"), "art.png", PinMeta{})
	assert.ErrorIs(t, err, ErrUpload)
	assertNoStagedFiles(t, uploader.stagingDir)
}

func TestPinataUploader_PinFileAuthFailure(t *testing.T) {
	tests := []struct {
		name   string
		errMsg string
	}{
		{"revoked key", "status 403: API_KEY_REVOKED"},
		{"unauthorized", "server responded with 401 Unauthorized"},
		{"forbidden", "server responded with status code: 403"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploader := newTestUploader(t, &mockPinClient{
				pinFile: func(filePath string, options *pinata.PinOptions) (string, error) {
					return "", errors.New(tt.errMsg)
				},
			})

			_, err := uploader.PinFile(context.Background(), []byte("data"), "art.png", PinMeta{})
			assert.ErrorIs(t, err, ErrAuth)
			assertNoStagedFiles(t, uploader.stagingDir)
		})
	}
}

func TestPinataUploader_PinFileRejectsOversizedPayload(t *testing.T) {
	called := false
	uploader := newTestUploader(t, &mockPinClient{
		pinFile: func(filePath string, options *pinata.PinOptions) (string, error) {
			called = true
			return "QmTestHash", nil
		},
	})
	uploader.maxPinSize = 16

	_, err := uploader.PinFile(context.Background(), make([]byte, 17), "art.png", PinMeta{})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.False(t, called, "oversized payloads must be rejected before upload")
	assertNoStagedFiles(t, uploader.stagingDir)
}

func TestPinataUploader_PinJSON(t *testing.T) {
	uploader := newTestUploader(t, &mockPinClient{
		pinFile: func(filePath string, options *pinata.PinOptions) (string, error) {
			data, err := os.ReadFile(filePath)
			require.NoError(t, err)
			assert.JSONEq(t, `{"name":"x","description":"y","image":"z"}`, string(data))
			return "QmJsonHash", nil
		},
	})

	asset, err := uploader.PinJSON(context.Background(), map[string]string{
		"name":        "x",
		"description": "y",
		"image":       "z",
	}, PinMeta{Name: "NFT Metadata"})
	require.NoError(t, err)
	assert.Equal(t, "QmJsonHash", asset.Cid)
	assertNoStagedFiles(t, uploader.stagingDir)
}
