package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/aibl-labs/aibl-backend/pkg/server/cid"
	"github.com/aibl-labs/aibl-backend/pkg/server/wallet"
)

var ErrMint = errors.New("mint failed")

const nftAbiJson = `[
	{"type":"function","name":"safeMintTo","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

const (
	// Gas estimates drift between estimation and inclusion; the buffered
	// limit is floor(estimate * 1.2).
	gasBufferNumerator   = 12
	gasBufferDenominator = 10

	defaultDirectGasLimit = 1_000_000
)

// 50 gwei, the explicit price the client-signed path pins.
var defaultDirectGasPrice = new(big.Int).Mul(big.NewInt(50), big.NewInt(1_000_000_000))

type EthClient interface {
	bind.ContractBackend
	bind.DeployBackend
}

type MintRequest struct {
	Cid           string
	Network       string
	WalletAddress string
}

// MintTransaction is an unsigned contract call handed to an external wallet
// for signing and broadcast. It is never persisted.
type MintTransaction struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	GasLimit string `json:"gasLimit"`
	GasPrice string `json:"gasPrice"`
	ChainID  int64  `json:"chainId"`
}

// MintReceipt records a confirmed client-signed mint.
type MintReceipt struct {
	Hash        string    `json:"hash"`
	Cid         string    `json:"cid"`
	BlockNumber uint64    `json:"blockNumber"`
	Timestamp   time.Time `json:"timestamp"`
}

type Minter struct {
	registry *Registry
	wallet   *wallet.Wallet
	abi      abi.ABI

	clientFor func(ctx context.Context, rpcUrl string) (EthClient, error)

	directGasLimit uint64
	directGasPrice *big.Int
}

type MinterOptions struct {
	Registry *Registry
	Wallet   *wallet.Wallet

	// ClientFor returns an RPC client for a network endpoint. Defaults to
	// dialing with ethclient.
	ClientFor func(ctx context.Context, rpcUrl string) (EthClient, error)
}

func NewMinter(opts MinterOptions) (*Minter, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry is nil")
	}
	if opts.ClientFor == nil {
		opts.ClientFor = dialEthClient
	}

	parsedAbi, err := abi.JSON(strings.NewReader(nftAbiJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse nft abi: %v", err)
	}

	return &Minter{
		registry:       opts.Registry,
		wallet:         opts.Wallet,
		abi:            parsedAbi,
		clientFor:      opts.ClientFor,
		directGasLimit: defaultDirectGasLimit,
		directGasPrice: defaultDirectGasPrice,
	}, nil
}

func dialEthClient(ctx context.Context, rpcUrl string) (EthClient, error) {
	return ethclient.DialContext(ctx, rpcUrl)
}

func TokenUri(contentId string) string {
	return "ipfs://" + contentId
}

// BuildTransaction validates the request, then builds an unsigned safeMintTo
// call against the network's RPC endpoint. Validation failures happen before
// any RPC client is created.
func (m *Minter) BuildTransaction(ctx context.Context, req MintRequest) (*MintTransaction, error) {
	network, recipient, err := m.validate(req)
	if err != nil {
		return nil, err
	}

	client, err := m.clientFor(ctx, network.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s rpc endpoint: %v: %w", network.Name, err, ErrMint)
	}

	data, err := m.abi.Pack("safeMintTo", recipient, TokenUri(req.Cid))
	if err != nil {
		return nil, fmt.Errorf("failed to encode mint call: %v: %w", err, ErrMint)
	}

	contract := network.ContractAddress
	estimate, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: recipient,
		To:   &contract,
		Data: data,
	})
	if err != nil {
		return nil, classifyMintError(err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classifyMintError(err)
	}

	return &MintTransaction{
		To:       contract.Hex(),
		Data:     hexutil.Encode(data),
		GasLimit: strconv.FormatUint(bufferedGasLimit(estimate), 10),
		GasPrice: gasPrice.String(),
		ChainID:  network.ChainID.Int64(),
	}, nil
}

// MintDirect signs and submits the mint with the configured wallet, then
// waits for one confirmation.
func (m *Minter) MintDirect(ctx context.Context, req MintRequest) (*MintReceipt, error) {
	if m.wallet == nil {
		return nil, fmt.Errorf("no signing wallet configured: %w", ErrMint)
	}

	network, recipient, err := m.validate(req)
	if err != nil {
		return nil, err
	}

	client, err := m.clientFor(ctx, network.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s rpc endpoint: %v: %w", network.Name, err, ErrMint)
	}

	auth, err := m.wallet.Auth(network.ChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %v: %w", err, ErrMint)
	}
	auth.Context = ctx
	auth.GasLimit = m.directGasLimit
	auth.GasPrice = m.directGasPrice

	contract := bind.NewBoundContract(network.ContractAddress, m.abi, client, client, client)
	tx, err := contract.Transact(auth, "safeMintTo", recipient, TokenUri(req.Cid))
	if err != nil {
		return nil, classifyMintError(err)
	}

	receipt, err := bind.WaitMined(ctx, client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for confirmation of %s: %v: %w", tx.Hash(), err, ErrMint)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted: %w", tx.Hash(), ErrMint)
	}

	return &MintReceipt{
		Hash:        tx.Hash().Hex(),
		Cid:         req.Cid,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Timestamp:   time.Now().UTC(),
	}, nil
}

func (m *Minter) validate(req MintRequest) (Network, common.Address, error) {
	if err := cid.Validate(req.Cid); err != nil {
		return Network{}, common.Address{}, err
	}

	network, err := m.registry.Lookup(req.Network)
	if err != nil {
		return Network{}, common.Address{}, err
	}

	if !common.IsHexAddress(req.WalletAddress) {
		return Network{}, common.Address{}, fmt.Errorf("invalid wallet address %q: %w", req.WalletAddress, ErrMint)
	}

	return network, common.HexToAddress(req.WalletAddress), nil
}

func bufferedGasLimit(estimate uint64) uint64 {
	// Split before multiplying so large estimates do not overflow.
	quotient := estimate / gasBufferDenominator
	remainder := estimate % gasBufferDenominator
	return quotient*gasBufferNumerator + remainder*gasBufferNumerator/gasBufferDenominator
}

// classifyMintError maps provider errors to the distinct user-facing cases
// the frontend surfaces.
func classifyMintError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("wallet has insufficient funds for this transaction: %w", ErrMint)
	case strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied"):
		return fmt.Errorf("transaction was rejected in the wallet: %w", ErrMint)
	case strings.Contains(msg, "execution reverted"):
		return fmt.Errorf("transaction reverted by the blockchain: %v: %w", err, ErrMint)
	default:
		return fmt.Errorf("%v: %w", err, ErrMint)
	}
}
