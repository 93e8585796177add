package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

var ErrUnsupportedNetwork = errors.New("unsupported blockchain network")

type Network struct {
	Name            string
	ChainID         *big.Int
	RpcUrl          string
	ContractAddress common.Address
}

// Registry maps network names to their chain parameters. It is built once at
// startup and read-only afterwards.
type Registry struct {
	networks map[string]Network
}

func NewRegistry(networks ...Network) *Registry {
	m := make(map[string]Network, len(networks))
	for _, n := range networks {
		m[n.Name] = n
	}
	return &Registry{networks: m}
}

func (r *Registry) Lookup(name string) (Network, error) {
	network, ok := r.networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%s: %w", name, ErrUnsupportedNetwork)
	}
	return network, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
