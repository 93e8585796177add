package nft

const (
	defaultName        = "AI Transformed Image"
	defaultDescription = "AI transformed image"
)

// Metadata is the NFT metadata document pinned alongside the image. Image
// holds the gateway URL of the pinned image asset.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func NewMetadata(title string, prompt string, imageURL string) Metadata {
	name := title
	if name == "" {
		name = defaultName
	}

	description := prompt
	if description == "" {
		description = defaultDescription
	}

	return Metadata{
		Name:        name,
		Description: description,
		Image:       imageURL,
	}
}
