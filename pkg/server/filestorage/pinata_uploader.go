package filestorage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zde37/pinata-go-sdk/pinata"
)

const GatewayBaseURL = "https://gateway.pinata.cloud/ipfs/"

const DefaultMaxPinSize = 50 << 20 // 50 MB

type pinClient interface {
	PinFile(filePath string, options *pinata.PinOptions) (string, error)
}

// pinataClient adapts *pinata.Client to the pinClient seam, unwrapping the
// response down to the hash.
type pinataClient struct {
	client *pinata.Client
}

func (c *pinataClient) PinFile(filePath string, options *pinata.PinOptions) (string, error) {
	response, err := c.client.PinFile(filePath, options)
	if err != nil {
		return "", err
	}
	return response.IpfsHash, nil
}

type PinataUploader struct {
	client     pinClient
	stagingDir string
	maxPinSize int64
}

var _ Uploader = (*PinataUploader)(nil)

func NewPinataUploader(jwtKey string) *PinataUploader {
	return &PinataUploader{
		client:     &pinataClient{client: pinata.New(pinata.NewAuthWithJWT(jwtKey))},
		stagingDir: os.TempDir(),
		maxPinSize: DefaultMaxPinSize,
	}
}

func (u *PinataUploader) PinFile(ctx context.Context, data []byte, filename string, meta PinMeta) (PinnedAsset, error) {
	if int64(len(data)) > u.maxPinSize {
		return PinnedAsset{}, fmt.Errorf("%d bytes: %w", len(data), ErrTooLarge)
	}

	staged, err := u.stage(data, filepath.Ext(filename))
	if err != nil {
		return PinnedAsset{}, fmt.Errorf("failed to stage file: %v: %w", err, ErrUpload)
	}
	defer os.Remove(staged)

	hash, err := u.client.PinFile(staged, pinOptions(meta))
	if err != nil {
		return PinnedAsset{}, wrapPinError(err)
	}

	return newPinnedAsset(hash), nil
}

// PinJSON serializes v and pins it through the same staged-file path as
// PinFile.
func (u *PinataUploader) PinJSON(ctx context.Context, v interface{}, meta PinMeta) (PinnedAsset, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return PinnedAsset{}, fmt.Errorf("failed to marshal json: %v: %w", err, ErrUpload)
	}

	return u.PinFile(ctx, data, "metadata.json", meta)
}

// stage writes data to a temporary file in the staging directory. The caller
// removes the file on every exit path.
func (u *PinataUploader) stage(data []byte, ext string) (string, error) {
	f, err := os.CreateTemp(u.stagingDir, "pinata_*"+ext)
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}

func pinOptions(meta PinMeta) *pinata.PinOptions {
	keyValues := make(map[string]interface{}, len(meta.KeyValues))
	for key, value := range meta.KeyValues {
		keyValues[key] = value
	}

	return &pinata.PinOptions{
		PinataMetadata: pinata.PinataMetadata{
			Name:      meta.Name,
			KeyValues: keyValues,
		},
		PinataOptions: pinata.Options{
			CidVersion: 0,
		},
	}
}

func newPinnedAsset(ipfsHash string) PinnedAsset {
	return PinnedAsset{
		Cid:        ipfsHash,
		GatewayURL: GatewayBaseURL + ipfsHash,
	}
}

// wrapPinError distinguishes revoked or invalid credentials from generic
// provider failures so callers can produce an actionable message.
func wrapPinError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API_KEY_REVOKED"):
		return fmt.Errorf("pinata api key has been revoked, generate new credentials: %w", ErrAuth)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(strings.ToLower(msg), "unauthorized"):
		return fmt.Errorf("invalid pinata credentials: %v: %w", err, ErrAuth)
	default:
		return fmt.Errorf("%v: %w", err, ErrUpload)
	}
}
