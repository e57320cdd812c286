package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/w3transfer/test/fixtures/txnode"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

var (
	contractAddr = common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	alice        = common.HexToAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	bob          = common.HexToAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
)

func TestMain(m *testing.M) {
	// Build the binary before all E2E tests.
	tmp, err := os.MkdirTemp("", "w3transfer-e2e-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "w3transfer")
	// Build from the module root (two levels up from test/e2e/).
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

func runCLI(t *testing.T, configDir string, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "W3TRANSFER_CONFIG_DIR="+configDir, "W3TRANSFER_RPC_URL=", "W3TRANSFER_CONTRACT=", "W3TRANSFER_KEY=")
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// nodeEnv points the CLI at a simulated node with the contract deployed.
func nodeEnv(t *testing.T, accounts ...common.Address) (*txnode.Node, []string) {
	t.Helper()
	node := txnode.New(t, contractAddr, accounts...)
	return node, []string{
		"W3TRANSFER_RPC_URL=" + node.URL,
		"W3TRANSFER_CONTRACT=" + contractAddr.Hex(),
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "w3transfer")
	assert.Contains(t, out, "0.3.0")
}

func TestHelpCommand(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"status", "connect", "send", "txs", "events", "dashboard", "convert", "wallet", "config"} {
		assert.Contains(t, out, sub)
	}
	assert.Contains(t, out, "--network")
	assert.Contains(t, out, "--metrics-addr")
}

func TestConfigShowAndSet(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, nil, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "contract_address")
	assert.Contains(t, out, "localhost")

	_, err = runCLI(t, dir, nil, "config", "set", "cache_backend", "leveldb")
	require.NoError(t, err)
	out, err = runCLI(t, dir, nil, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "leveldb")
}

func TestConfigSetInvalid(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, nil, "config", "set", "provider", "metamask")
	assert.Error(t, err)
	_, err = runCLI(t, dir, nil, "config", "set", "contract_address", "0xnope")
	assert.Error(t, err)
}

func TestNetworkFlagIsNotPersisted(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, nil, "--network", "sepolia", "config", "set", "rpc_algorithm", "failover")
	require.NoError(t, err)

	out, err := runCLI(t, dir, nil, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "failover")
	assert.NotContains(t, out, "sepolia")
}

func TestConvert(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "convert", "1.5")
	require.NoError(t, err)
	assert.Contains(t, out, "1500000000000000000")

	_, err = runCLI(t, t.TempDir(), nil, "convert", "0.0000000000000000001")
	assert.Error(t, err)
}

func TestRPCAdd(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, nil, "rpc", "add", "sepolia", "https://custom.rpc.url")
	require.NoError(t, err)

	_, err = runCLI(t, dir, nil, "rpc", "add", "nowhere", "https://custom.rpc.url")
	assert.Error(t, err)
}

func TestStatusWithoutContract(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "status")
	assert.Error(t, err)
	assert.Contains(t, out, "no contract address configured")
}

func TestStatusAgainstNode(t *testing.T) {
	_, env := nodeEnv(t, alice)
	out, err := runCLI(t, t.TempDir(), env, "status")
	require.NoError(t, err)
	assert.Contains(t, out, strings.ToLower(alice.Hex()))
	assert.Contains(t, out, "connected")
}

func TestSendAndList(t *testing.T) {
	node, env := nodeEnv(t, alice)
	dir := t.TempDir()

	out, err := runCLI(t, dir, env, "send", "--yes",
		"--to", bob.Hex(), "--amount", "0.5", "--keyword", "coffee", "--message", "thanks")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Transfer recorded")
	require.Len(t, node.Records(), 1)

	out, err = runCLI(t, dir, env, "txs")
	require.NoError(t, err, out)
	assert.Contains(t, out, "coffee")
	assert.Contains(t, out, "thanks")
	assert.Contains(t, out, "0.5")

	out, err = runCLI(t, dir, env, "events")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 event(s)")
}

func TestSendInvalidAmount(t *testing.T) {
	node, env := nodeEnv(t, alice)
	out, err := runCLI(t, t.TempDir(), env, "send", "--yes", "--to", bob.Hex(), "--amount", "lots")
	assert.Error(t, err)
	assert.Contains(t, out, "invalid amount")
	assert.Empty(t, node.Records())
	assert.Empty(t, node.Calls("eth_sendTransaction"))
}

func TestSendRevertedRecord(t *testing.T) {
	node, env := nodeEnv(t, alice)
	node.RevertRecords()
	out, err := runCLI(t, t.TempDir(), env, "send", "--yes", "--to", bob.Hex(), "--amount", "0.1")
	assert.Error(t, err)
	assert.Contains(t, out, "transaction reverted")
}

func TestSendRequiresFlags(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "send")
	assert.Error(t, err)
	assert.Contains(t, out, "required flag")
}

func TestUnknownCommandShowsError(t *testing.T) {
	out, _ := runCLI(t, t.TempDir(), nil, "unknowncommand")
	assert.Contains(t, strings.ToLower(out), "unknown command")
}

func TestConfigSyncFromManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(manifest, []byte(`{"contracts": {"Transactions": {
		"localhost": {"address": "0x5fbdb2315678afecb367f032d93f642f64180aa3", "block": 42}}}}`), 0o600))

	out, err := runCLI(t, dir, nil, "config", "sync", manifest)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	assert.Contains(t, out, "deploy_block set to 42")

	out, err = runCLI(t, dir, nil, "config", "show")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	assert.Contains(t, out, manifest)

	out, err = runCLI(t, dir, nil, "config", "sync", "--network", "sepolia")
	require.Error(t, err)
	assert.Contains(t, out, "no Transactions deployment on sepolia")
}
