package art

import (
	"context"
	"errors"
)

var ErrGeneration = errors.New("image generation failed")

// Generator transforms a source image according to an instruction and returns
// a URL of the generated image.
type Generator interface {
	Transform(ctx context.Context, imageURL string, instruction string) (string, error)
}
