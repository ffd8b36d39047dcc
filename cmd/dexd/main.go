package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"dexcore/config"
	"dexcore/native/amm"
	"dexcore/native/oracle"
	"dexcore/native/token"
	"dexcore/observability/logging"
	"dexcore/rpc"
	"dexcore/state"
	"dexcore/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./config.toml", "path to the configuration file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "dexd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup("dexd", cfg.Environment)
	logger.Info("configuration loaded", "path", configPath, "network", cfg.NetworkName)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	manager := state.NewManager(db)
	tokens := token.NewLedger(manager)

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}
	if registry == (common.Address{}) {
		registry = defaultRegistryAddress(cfg.NetworkName)
	}

	pairs := amm.NewEngine()
	pairs.SetState(manager)
	pairs.SetTokens(tokens)
	pairs.SetRegistry(registry)

	factory := amm.NewFactory(registry)
	factory.SetState(manager)
	factory.SetEngine(pairs)

	feeController, err := cfg.FeeControllerAddress()
	if err != nil {
		return err
	}
	if err := factory.Initialize(feeController); err != nil && !errors.Is(err, amm.ErrAlreadyInitialized) {
		return fmt.Errorf("initialize registry: %w", err)
	}

	oracleEngine := oracle.NewEngine()
	oracleEngine.SetState(manager)
	oracleEngine.SetResolver(factory)
	oracleEngine.SetPoolReader(pairs)
	oracleEngine.SetRegistry(registry)
	oracleEngine.SetPeriod(cfg.OracleUpdatePeriod())
	factory.SetOracle(oracleEngine)

	manager.Finalise()

	logger.Info("engines wired",
		"registry", registry.Hex(),
		"feeController", feeController.Hex(),
		"oraclePeriod", cfg.OracleUpdatePeriod().String(),
	)

	server := rpc.NewServer(factory, pairs, oracleEngine, logger)
	limit := rpc.RateLimit{
		RequestsPerMinute: cfg.RPCRequestsPerMinute,
		Burst:             cfg.RPCBurst,
	}
	return server.Start(cfg.RPCAddress, limit)
}

// defaultRegistryAddress derives a stable registry identity from the network
// name so that nodes sharing a network agree on pool addressing.
func defaultRegistryAddress(network string) common.Address {
	hash := crypto.Keccak256([]byte("dexcore/registry/" + network))
	return common.BytesToAddress(hash[12:])
}
