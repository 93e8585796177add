package nft

import (
	"context"
	"fmt"

	"github.com/aibl-labs/aibl-backend/pkg/server/filestorage"
)

const uploadedByTag = "AIBL"

type Uploader struct {
	uploader filestorage.Uploader
}

func NewUploader(uploader filestorage.Uploader) *Uploader {
	return &Uploader{
		uploader: uploader,
	}
}

func (u *Uploader) PinImage(ctx context.Context, image []byte, filename string, title string) (filestorage.PinnedAsset, error) {
	name := title
	if name == "" {
		name = defaultName
	}

	return u.uploader.PinFile(ctx, image, filename, filestorage.PinMeta{
		Name:      name,
		KeyValues: map[string]string{"uploadedBy": uploadedByTag},
	})
}

func (u *Uploader) PinMetadata(ctx context.Context, document Metadata) (filestorage.PinnedAsset, error) {
	return u.uploader.PinJSON(ctx, document, filestorage.PinMeta{
		Name:      "NFT Metadata",
		KeyValues: map[string]string{"uploadedBy": uploadedByTag},
	})
}

type UploadResult struct {
	Image    filestorage.PinnedAsset
	Metadata filestorage.PinnedAsset
	Document Metadata
}

// Upload pins the image, then the metadata document referencing it.
func (u *Uploader) Upload(ctx context.Context, image []byte, filename string, title string, prompt string) (*UploadResult, error) {
	imageAsset, err := u.PinImage(ctx, image, filename, title)
	if err != nil {
		return nil, fmt.Errorf("failed to pin image: %w", err)
	}

	document := NewMetadata(title, prompt, imageAsset.GatewayURL)

	metadataAsset, err := u.PinMetadata(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("failed to pin metadata: %w", err)
	}

	return &UploadResult{
		Image:    imageAsset,
		Metadata: metadataAsset,
		Document: document,
	}, nil
}
