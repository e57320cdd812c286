// check-rpcs: probes every built-in RPC of every known network in parallel and
// prints latency, head block and whether the endpoint reports the expected
// chain ID.
//
// Run from the module root:
//
//	go run ./scripts/check-rpcs
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/Mohsinsiddi/w3transfer/internal/rpc"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const chainIDTimeout = 8 * time.Second

// ── types ─────────────────────────────────────────────────────────────────────

type result struct {
	network string
	ep      rpc.Endpoint
	chainID int64
	want    int64
}

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	reg := chain.NewRegistry()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)

	for _, n := range reg.All() {
		for _, url := range n.RPCs {
			wg.Add(1)
			go func(n chain.Network, url string) {
				defer wg.Done()

				r := result{network: n.Name, want: n.ChainID}
				r.ep = rpc.Probe(context.Background(), url)
				if r.ep.Healthy() {
					r.chainID = chainID(url)
				}

				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}(n, url)
		}
	}

	wg.Wait()

	printTable(results)
}

func chainID(url string) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), chainIDTimeout)
	defer cancel()

	c, err := chain.Dial(ctx, url)
	if err != nil {
		return 0
	}
	defer c.Close()

	var id hexutil.Uint64
	if err := c.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0
	}
	return int64(id)
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.network != b.network {
			return a.network < b.network
		}
		return a.ep.URL < b.ep.URL
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "NETWORK\tRPC\tLATENCY\tBLOCK\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 12)+"\t"+
		strings.Repeat("-", 40)+"\t"+
		strings.Repeat("-", 8)+"\t"+
		strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 16))

	healthy := 0
	for _, r := range results {
		latency, block, note := "—", "—", ""
		switch {
		case !r.ep.Healthy():
			note = shortErr(r.ep.Err)
		case r.chainID != r.want:
			note = fmt.Sprintf("chain id %d, want %d", r.chainID, r.want)
		default:
			healthy++
		}
		if r.ep.Healthy() {
			latency = r.ep.Latency.Round(time.Millisecond).String()
			block = fmt.Sprint(r.ep.BlockNumber)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.network, r.ep.URL, latency, block, note)
	}
	w.Flush()

	fmt.Printf("\n%d/%d endpoints healthy\n", healthy, len(results))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}
