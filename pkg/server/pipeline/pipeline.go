package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aibl-labs/aibl-backend/pkg/server/art"
	"github.com/aibl-labs/aibl-backend/pkg/server/chain"
	"github.com/aibl-labs/aibl-backend/pkg/server/filestorage"
	"github.com/aibl-labs/aibl-backend/pkg/server/nft"
)

var ErrValidation = errors.New("invalid upload request")

type Stage string

const (
	StageTransform   Stage = "transform"
	StagePinImage    Stage = "pinImage"
	StagePinMetadata Stage = "pinMetadata"
	StageMint        Stage = "mint"
)

type State int

const (
	StateIdle State = iota
	StateTransforming
	StatePinningImage
	StatePinningMetadata
	StateMinting
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTransforming:
		return "Transforming"
	case StatePinningImage:
		return "PinningImage"
	case StatePinningMetadata:
		return "PinningMetadata"
	case StateMinting:
		return "Minting"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StageError tags a failure with the stage it happened in. Stages are never
// retried automatically; the caller decides whether to start a new run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type Mode int

const (
	// ModeRelay builds an unsigned transaction for an external wallet.
	ModeRelay Mode = iota
	// ModeDirect signs and submits with the configured wallet.
	ModeDirect
)

type Request struct {
	ImageURL      string
	Prompt        string
	Title         string
	Network       string
	WalletAddress string
	Mode          Mode
}

type Result struct {
	TransformedURL string
	Image          filestorage.PinnedAsset
	Metadata       filestorage.PinnedAsset
	Document       nft.Metadata
	Tx             *chain.MintTransaction
	Receipt        *chain.MintReceipt
}

type Minter interface {
	BuildTransaction(ctx context.Context, req chain.MintRequest) (*chain.MintTransaction, error)
	MintDirect(ctx context.Context, req chain.MintRequest) (*chain.MintReceipt, error)
}

type MetadataChecker interface {
	Check(ctx context.Context, contentId string) error
}

type Pipeline struct {
	generator   art.Generator
	nftUploader *nft.Uploader
	minter      Minter
	checker     MetadataChecker
	fetchImage  func(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	Generator   art.Generator
	NftUploader *nft.Uploader
	Minter      Minter
	Checker     MetadataChecker
	FetchImage  func(ctx context.Context, url string) ([]byte, error)
}

func New(opts Options) (*Pipeline, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is nil")
	}
	if opts.NftUploader == nil {
		return nil, errors.New("nft uploader is nil")
	}
	if opts.Minter == nil {
		return nil, errors.New("minter is nil")
	}
	if opts.FetchImage == nil {
		return nil, errors.New("image fetcher is nil")
	}

	return &Pipeline{
		generator:   opts.Generator,
		nftUploader: opts.NftUploader,
		minter:      opts.Minter,
		checker:     opts.Checker,
		fetchImage:  opts.FetchImage,
	}, nil
}

// Run executes one upload-and-mint run from Idle to Complete.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	return p.NewRun().Execute(ctx, req)
}

// Run is a single pass through the pipeline. Runs share no mutable state;
// abandoning one after any stage needs no cleanup (pins are not undone).
type Run struct {
	pipeline *Pipeline
	state    State
}

func (p *Pipeline) NewRun() *Run {
	return &Run{
		pipeline: p,
		state:    StateIdle,
	}
}

func (r *Run) State() State {
	return r.state
}

func (r *Run) Execute(ctx context.Context, req Request) (*Result, error) {
	if r.state != StateIdle {
		return nil, fmt.Errorf("run already started: %w", ErrValidation)
	}
	if req.ImageURL == "" || strings.TrimSpace(req.Prompt) == "" {
		// invalid input does not leave Idle
		return nil, fmt.Errorf("image url and prompt are required: %w", ErrValidation)
	}

	r.state = StateTransforming
	transformedURL, err := r.pipeline.generator.Transform(ctx, req.ImageURL, req.Prompt)
	if err != nil {
		return nil, r.fail(StageTransform, err)
	}

	r.state = StatePinningImage
	image, err := r.pipeline.fetchImage(ctx, transformedURL)
	if err != nil {
		return nil, r.fail(StagePinImage, err)
	}

	imageAsset, err := r.pipeline.nftUploader.PinImage(ctx, image, "transformed.png", req.Title)
	if err != nil {
		return nil, r.fail(StagePinImage, err)
	}

	r.state = StatePinningMetadata
	document := nft.NewMetadata(req.Title, req.Prompt, imageAsset.GatewayURL)
	metadataAsset, err := r.pipeline.nftUploader.PinMetadata(ctx, document)
	if err != nil {
		return nil, r.fail(StagePinMetadata, err)
	}

	r.state = StateMinting
	if r.pipeline.checker != nil {
		if err := r.pipeline.checker.Check(ctx, metadataAsset.Cid); err != nil {
			return nil, r.fail(StageMint, err)
		}
	}

	result := &Result{
		TransformedURL: transformedURL,
		Image:          imageAsset,
		Metadata:       metadataAsset,
		Document:       document,
	}

	mintReq := chain.MintRequest{
		Cid:           metadataAsset.Cid,
		Network:       req.Network,
		WalletAddress: req.WalletAddress,
	}

	switch req.Mode {
	case ModeDirect:
		receipt, err := r.pipeline.minter.MintDirect(ctx, mintReq)
		if err != nil {
			return nil, r.fail(StageMint, err)
		}
		result.Receipt = receipt
	default:
		tx, err := r.pipeline.minter.BuildTransaction(ctx, mintReq)
		if err != nil {
			return nil, r.fail(StageMint, err)
		}
		result.Tx = tx
	}

	r.state = StateComplete
	return result, nil
}

func (r *Run) fail(stage Stage, err error) error {
	r.state = StateFailed
	return &StageError{Stage: stage, Err: err}
}
