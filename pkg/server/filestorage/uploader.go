package filestorage

import (
	"context"
	"errors"
)

var (
	ErrUpload   = errors.New("failed to upload to ipfs")
	ErrAuth     = errors.New("pinning credentials rejected")
	ErrTooLarge = errors.New("payload exceeds maximum pin size")
)

// PinnedAsset is the immutable result of a successful pin.
type PinnedAsset struct {
	Cid        string `json:"cid"`
	GatewayURL string `json:"url"`
}

// PinMeta is the sidecar metadata attached to a pin.
type PinMeta struct {
	Name      string
	KeyValues map[string]string
}

type Uploader interface {
	PinFile(ctx context.Context, data []byte, filename string, meta PinMeta) (PinnedAsset, error)
	PinJSON(ctx context.Context, v interface{}, meta PinMeta) (PinnedAsset, error)
}
