// Command walletcheck discovers a provider, verifies wallet ownership against it and
// optionally exchanges the proof for a walletd session.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/spf13/pflag"

	"github.com/layer-3/embedwallet"
	"github.com/layer-3/embedwallet/adapters/announce"
	"github.com/layer-3/embedwallet/adapters/env"
	"github.com/layer-3/embedwallet/adapters/keyprovider"
	"github.com/layer-3/embedwallet/adapters/rpcprovider"
	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/internal/eth"
	"github.com/layer-3/embedwallet/verify"
)

type flags struct {
	rpcURL   string
	devKey   string
	chainID  uint64
	server   string
	timeout  time.Duration
	window   time.Duration
	debug    bool
	embedded bool
}

func main() {
	var f flags
	fs := pflag.NewFlagSet("walletcheck", pflag.ExitOnError)
	fs.StringVar(&f.rpcURL, "rpc", "", "JSON-RPC endpoint of a signing provider")
	fs.StringVar(&f.devKey, "key", "", "hex private key for a local development provider")
	fs.Uint64Var(&f.chainID, "chain-id", 1, "chain id reported by the local development provider")
	fs.StringVar(&f.server, "server", "", "walletd base URL; when set the proof is exchanged for a session")
	fs.DurationVar(&f.timeout, "timeout", 30*time.Second, "deadline for each provider request")
	fs.DurationVar(&f.window, "announce-window", 50*time.Millisecond, "how long to collect provider announcements")
	fs.BoolVar(&f.debug, "debug", false, "verbose logging")
	fs.BoolVar(&f.embedded, "embedded", true, "mark the provider as the host's embedded wallet")
	_ = fs.Parse(os.Args[1:])

	if err := run(context.Background(), f); err != nil {
		fmt.Fprintln(os.Stderr, "walletcheck:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	logger := watermill.NewStdLogger(f.debug, f.debug)

	candidate, closeFn, err := candidateFor(ctx, f)
	if err != nil {
		return err
	}
	defer closeFn()

	bus := announce.NewBus(logger)
	defer bus.Close()
	unregister, err := bus.Register(ctx, candidate)
	if err != nil {
		return err
	}
	defer unregister()

	kit := embedwallet.New(&env.Static{},
		embedwallet.WithLogger(logger),
		embedwallet.WithAnnouncer(bus),
		embedwallet.WithAnnounceWindow(f.window),
		embedwallet.WithRequestTimeout(f.timeout),
	)

	if f.server == "" {
		res, err := kit.VerifyWallet(ctx, nil)
		if err != nil {
			return err
		}
		return printJSON(res)
	}

	// The challenge names the account, which is known only after a first proof.
	probe, err := kit.VerifyWallet(ctx, nil)
	if err != nil {
		return err
	}
	client := embedwallet.NewHTTPClient(f.server)
	ch, err := client.Challenge(ctx, probe.Address, probe.ChainID)
	if err != nil {
		return fmt.Errorf("challenge: %w", err)
	}
	proof, err := kit.VerifyWallet(ctx, nil, verify.WithNonce(ch.Nonce))
	if err != nil {
		return err
	}
	tokens, err := client.Login(ctx, ch, *proof)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	address, chainID, err := client.Me(ctx, tokens.Access)
	if err != nil {
		return fmt.Errorf("me: %w", err)
	}
	return printJSON(map[string]any{
		"address":       address,
		"chain_id":      chainID,
		"method":        proof.Method,
		"access_token":  tokens.Access,
		"refresh_token": tokens.Refresh,
	})
}

func candidateFor(ctx context.Context, f flags) (core.Candidate, func(), error) {
	info := core.ProviderInfo{Name: "walletcheck", RDNS: "dev.walletcheck", Flags: map[string]bool{}}
	if f.embedded {
		info.Flags["isFarcasterEmbedded"] = true
	}

	switch {
	case f.rpcURL != "" && f.devKey != "":
		return nil, nil, fmt.Errorf("--rpc and --key are mutually exclusive")
	case f.rpcURL != "":
		p, err := rpcprovider.Dial(ctx, f.rpcURL, info)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case f.devKey != "":
		signer, err := eth.NewSignerFromHex(f.devKey)
		if err != nil {
			return nil, nil, err
		}
		return keyprovider.New(signer, keyprovider.WithChainID(f.chainID), keyprovider.WithInfo(info)), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("one of --rpc or --key is required")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
