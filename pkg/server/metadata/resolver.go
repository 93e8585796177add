package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/aibl-labs/aibl-backend/pkg/server/cid"
	"github.com/aibl-labs/aibl-backend/pkg/server/filestorage"
	"github.com/aibl-labs/aibl-backend/pkg/server/nft"
)

var (
	ErrInvalidFormat = errors.New("invalid metadata format")
	ErrUnavailable   = errors.New("metadata unavailable")
)

const (
	cacheSize       = 1000
	cacheTTL        = 5 * time.Minute
	checkTimeout    = 2 * time.Second
	resolveTimeout  = 30 * time.Second
	maxDocumentSize = 1 << 20
)

// Resolver fetches pinned metadata documents from the gateway. Documents are
// immutable per CID, so successful resolutions are cached; concurrent
// resolutions of the same CID collapse into one fetch.
type Resolver struct {
	httpClient *http.Client
	gatewayURL string
	cache      *expirable.LRU[string, nft.Metadata]
	group      singleflight.Group
}

type ResolverOptions struct {
	HttpClient *http.Client
	GatewayURL string
}

func NewResolver(opts ResolverOptions) *Resolver {
	if opts.HttpClient == nil {
		opts.HttpClient = http.DefaultClient
	}
	if opts.GatewayURL == "" {
		opts.GatewayURL = filestorage.GatewayBaseURL
	}

	return &Resolver{
		httpClient: opts.HttpClient,
		gatewayURL: opts.GatewayURL,
		cache:      expirable.NewLRU[string, nft.Metadata](cacheSize, nil, cacheTTL),
	}
}

func (r *Resolver) Resolve(ctx context.Context, contentId string) (nft.Metadata, error) {
	if err := cid.Validate(contentId); err != nil {
		return nft.Metadata{}, err
	}

	if document, ok := r.cache.Get(contentId); ok {
		return document, nil
	}

	ch := r.group.DoChan(contentId, func() (interface{}, error) {
		// The flight may be joined by callers with different deadlines, so
		// the fetch runs on its own clock, detached from the initiator.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()

		document, err := r.fetch(fetchCtx, contentId)
		if err != nil {
			return nil, err
		}
		r.cache.Add(contentId, document)
		return document, nil
	})

	select {
	case <-ctx.Done():
		return nft.Metadata{}, fmt.Errorf("%v: %w", ctx.Err(), ErrUnavailable)
	case res := <-ch:
		if res.Err != nil {
			return nft.Metadata{}, res.Err
		}
		return res.Val.(nft.Metadata), nil
	}
}

// Check is the advisory pre-mint guard: a malformed CID blocks minting, but
// gateway trouble within the short timeout window does not.
func (r *Resolver) Check(ctx context.Context, contentId string) error {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	_, err := r.Resolve(checkCtx, contentId)
	if err == nil {
		return nil
	}
	if errors.Is(err, cid.ErrInvalid) {
		return err
	}

	slog.Warn("metadata validation skipped", "cid", contentId, "error", err)
	return nil
}

func (r *Resolver) fetch(ctx context.Context, contentId string) (nft.Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.gatewayURL+contentId, nil)
	if err != nil {
		return nft.Metadata{}, fmt.Errorf("failed to create request: %v: %w", err, ErrUnavailable)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nft.Metadata{}, fmt.Errorf("%v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nft.Metadata{}, fmt.Errorf("gateway returned status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nft.Metadata{}, fmt.Errorf("%v: %w", err, ErrUnavailable)
	}

	var document nft.Metadata
	if err := json.Unmarshal(body, &document); err != nil {
		return nft.Metadata{}, fmt.Errorf("%v: %w", err, ErrInvalidFormat)
	}

	if document.Name == "" || document.Image == "" {
		return nft.Metadata{}, fmt.Errorf("missing name or image field: %w", ErrInvalidFormat)
	}

	return document, nil
}
