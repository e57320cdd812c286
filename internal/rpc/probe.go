package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// probeTimeout bounds a single endpoint probe.
const probeTimeout = 5 * time.Second

// Probe dials url and asks for the latest block number.
func Probe(ctx context.Context, url string) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	ep := Endpoint{URL: url}
	start := time.Now()

	c, err := chain.Dial(ctx, url)
	if err != nil {
		ep.Err = err
		return ep
	}
	defer c.Close()

	var block hexutil.Uint64
	if err := c.CallContext(ctx, &block, "eth_blockNumber"); err != nil {
		ep.Err = chain.ProviderError("eth_blockNumber", err)
	}
	ep.Latency = time.Since(start)
	ep.BlockNumber = uint64(block)
	return ep
}

// ProbeAll probes every url in parallel. Results keep the input order.
func ProbeAll(ctx context.Context, urls []string) []Endpoint {
	results := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			results[idx] = Probe(ctx, u)
		}(i, url)
	}
	wg.Wait()
	return results
}

// Select returns the URL to use among urls. A single URL is returned without
// probing.
func Select(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	if algo == "" {
		algo = AlgorithmFastest
	}
	winner, err := Pick(algo, ProbeAll(ctx, urls))
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}
