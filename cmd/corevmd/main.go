// Command corevmd wires the TokenLedger, StakePool and LendingMarket engines
// over a single persistent trie and serves the read-only rpc package in
// front of them, following the flag/env/telemetry wiring
// services/lending/main.go uses for its own standalone binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"nhbchain/config"
	"nhbchain/core/state"
	"nhbchain/native/lending"
	"nhbchain/native/stakepool"
	"nhbchain/native/token"
	"nhbchain/observability/logging"
	telemetry "nhbchain/observability/otel"
	"nhbchain/rpc"
	"nhbchain/rpc/auth"
	"nhbchain/storage"
	"nhbchain/storage/trie"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.toml", "path to the node configuration file")

	var rpcAddr string
	flag.StringVar(&rpcAddr, "rpc-addr", "", "override the read-only rpc listen address (defaults to config RPCAddress)")

	var requireUnlock bool
	flag.BoolVar(&requireUnlock, "prompt-passphrase", false, "prompt for a keystore passphrase on stdin before starting")

	var authSecret string
	flag.StringVar(&authSecret, "auth-shared-secret", stringFromEnv("COREVMD_AUTH_SHARED_SECRET", ""), "HMAC secret required to authenticate rpc read requests; empty disables auth")

	flag.Parse()

	env := strings.TrimSpace(os.Getenv("NHB_ENV"))
	logging.Setup("corevmd", env)

	if requireUnlock {
		if _, err := promptPassphrase("keystore passphrase: "); err != nil {
			log.Fatalf("read passphrase: %v", err)
		}
	}

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	insecure := true
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "corevmd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		log.Fatalf("open data dir %s: %v", cfg.DataDir, err)
	}
	defer db.Close()

	mgr, err := newStateManager(db)
	if err != nil {
		log.Fatalf("open state trie: %v", err)
	}

	tokenEngine := token.NewEngine()
	tokenEngine.SetState(mgr)

	stakePoolEngine := stakepool.NewEngine()
	stakePoolEngine.SetState(mgr)
	stakePoolEngine.SetTokenLedger(tokenEngine)

	lendingEngine := lending.NewEngine()
	lendingEngine.SetState(mgr)
	lendingEngine.SetTokenLedger(tokenEngine)

	listenAddr := rpcAddr
	if listenAddr == "" {
		listenAddr = cfg.RPCAddress
	}

	var authenticator *auth.Authenticator
	if authSecret != "" {
		authenticator = auth.New(auth.Config{
			Enabled:       true,
			HMACSecret:    authSecret,
			OptionalPaths: []string{"/healthz"},
		}, nil)
	}

	handler := rpc.New(rpc.Config{
		State:         mgr,
		TokenLedger:   tokenEngine,
		Authenticator: authenticator,
	})

	log.Printf("corevmd: engines ready: token=%p stakepool=%p lending=%p", tokenEngine, stakePoolEngine, lendingEngine)
	log.Printf("corevmd: serving read-only rpc on %s", listenAddr)
	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Fatalf("rpc server: %v", err)
	}
}

func newStateManager(db storage.Database) (*state.Manager, error) {
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		return nil, err
	}
	return state.NewManager(tr), nil
}

func promptPassphrase(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("passphrase required and no terminal available")
	}
	fmt.Fprint(os.Stderr, prompt)
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(bytes), nil
}

func stringFromEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
