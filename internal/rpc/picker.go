package rpc

import (
	"errors"
	"sort"
	"time"
)

// ErrNoHealthyRPC is returned when no endpoint can be used.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an endpoint is chosen among several.
type Algorithm string

const (
	AlgorithmFastest  Algorithm = "fastest"
	AlgorithmFailover Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
)

// Endpoint is one node URL with its probe result.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// Healthy reports whether the probe succeeded.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Pick chooses an endpoint from probed results.
//
// Fastest takes the lowest-latency healthy node that is not stale relative to
// the best block seen. Failover takes the first healthy node in list order.
func Pick(algo Algorithm, endpoints []Endpoint) (Endpoint, error) {
	var healthy []Endpoint
	var bestBlock uint64
	for _, e := range endpoints {
		if !e.Healthy() {
			continue
		}
		healthy = append(healthy, e)
		if e.BlockNumber > bestBlock {
			bestBlock = e.BlockNumber
		}
	}
	if len(healthy) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}

	if algo == AlgorithmFailover {
		return healthy[0], nil
	}

	fresh := healthy[:0:0]
	for _, e := range healthy {
		if bestBlock-e.BlockNumber <= staleBlockThreshold {
			fresh = append(fresh, e)
		}
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Latency < fresh[j].Latency })
	return fresh[0], nil
}
