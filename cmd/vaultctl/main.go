package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"plasmavault/config"
	"plasmavault/core"
	nativecommon "plasmavault/native/common"
	"plasmavault/native/oracle"
	"plasmavault/observability/logging"
	"plasmavault/services/chainfeed"
	"plasmavault/storage"
)

const defaultConfig = "./vault.toml"

var errUsage = errors.New("usage")

func main() {
	if err := execute(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `Usage: vaultctl <command> [flags]

Commands:
  init               bootstrap the vault state from the config file
  status             print fee totals and the committed head
  harvest            harvest management, performance or all fees
  add-recipient      add a fee recipient
  update-recipient   change the allocations of a fee recipient
  remove-recipient   remove a fee recipient
  set-dao            replace the DAO fee recipient
  price              resolve the price of an asset
  validate-price     run the price change circuit breaker for an asset
  pause              pause or resume a module`)
}

func execute(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return runInit(rest, out)
	case "status":
		return runStatus(rest, out)
	case "harvest":
		return runHarvest(rest, out)
	case "add-recipient", "update-recipient":
		return runRecipient(cmd, rest, out)
	case "remove-recipient":
		return runRemoveRecipient(rest, out)
	case "set-dao":
		return runSetDAO(rest, out)
	case "price":
		return runPrice(rest, out)
	case "validate-price":
		return runValidatePrice(rest, out)
	case "pause":
		return runPause(rest, out)
	default:
		return errUsage
	}
}

type session struct {
	cfg    *config.Config
	node   *core.Node
	caller common.Address
	close  func()
}

// commonFlags registers the flags every subcommand understands.
func commonFlags(fs *flag.FlagSet) (configPath, caller *string) {
	configPath = fs.String("config", defaultConfig, "Path to the vault config file")
	caller = fs.String("caller", "", "Address acting on the engines (defaults to node.Operator)")
	return configPath, caller
}

func open(configPath, callerFlag string, withChain bool) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.SetupWriter(io.Discard, "vaultctl", cfg.Node.Environment, slog.LevelError)

	callerRaw := callerFlag
	if callerRaw == "" {
		callerRaw = cfg.Node.Operator
	}
	caller, err := config.ParseAddress(callerRaw)
	if err != nil {
		return nil, fmt.Errorf("caller: %w", err)
	}

	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	var directory oracle.Directory
	if withChain && cfg.Chain.RPCURL != "" {
		client, err := chainfeed.Dial(context.Background(), cfg.Chain.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial chain rpc %s: %w", logging.MaskURL(cfg.Chain.RPCURL), err)
		}
		closers = append(closers, client.Close)
		directory = chainfeed.NewDirectory(client, time.Duration(cfg.Chain.CallTimeout)*time.Second)
	}

	opts := core.Options{
		VaultDecimals: cfg.Fees.VaultDecimals,
		Directory:     directory,
		Logger:        logger,
		Now:           func() int64 { return time.Now().Unix() },
	}
	// Load already validated these addresses.
	opts.FeeManager, _ = config.ParseAddress(cfg.Fees.Manager)
	opts.Vault, _ = config.ParseAddress(cfg.Fees.Vault)
	opts.OracleManager, _ = config.ParseAddress(cfg.Oracle.Manager)

	db, err := storage.NewLevelDB(filepath.Join(cfg.Node.DataDir, "state"))
	if err != nil {
		release()
		return nil, fmt.Errorf("open state: %w", err)
	}
	node, err := core.NewNode(db, opts)
	if err != nil {
		db.Close()
		release()
		return nil, err
	}
	closers = append(closers, node.Close)
	return &session{cfg: cfg, node: node, caller: caller, close: release}, nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseRequiredAddress(name, raw string) (common.Address, error) {
	addr, err := config.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s is required", name)
	}
	return addr, nil
}

func runInit(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	configPath, caller := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := open(*configPath, *caller, false)
	if err != nil {
		return err
	}
	defer s.close()
	if !s.node.Fresh() {
		return fmt.Errorf("state in %s is already initialized", s.cfg.Node.DataDir)
	}
	if s.caller == (common.Address{}) {
		return fmt.Errorf("an operator address is required to bootstrap")
	}
	if err := s.node.Bootstrap(s.cfg, s.caller); err != nil {
		return err
	}
	head := s.node.Head()
	fmt.Fprintf(out, "initialized vault state at height %d root %s\n", head.Height, head.Root.Hex())
	return nil
}

type recipientStatus struct {
	Recipient   string `json:"recipient"`
	Management  uint64 `json:"management"`
	Performance uint64 `json:"performance"`
}

type status struct {
	Height              uint64            `json:"height"`
	Root                string            `json:"root"`
	DAORecipient        string            `json:"daoRecipient"`
	TotalManagementFee  uint64            `json:"totalManagementFee"`
	TotalPerformanceFee uint64            `json:"totalPerformanceFee"`
	Recipients          []recipientStatus `json:"recipients"`
	HighWaterMark       string            `json:"highWaterMark"`
	Paused              map[string]bool   `json:"paused"`
}

func runStatus(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath, caller := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := open(*configPath, *caller, false)
	if err != nil {
		return err
	}
	defer s.close()

	head := s.node.Head()
	view := status{Height: head.Height, Root: head.Root.Hex(), HighWaterMark: "0"}
	err = s.node.View(func(n *core.Node) error {
		manager := n.Fees()
		dao, err := manager.DAOFeeRecipient()
		if err != nil {
			return err
		}
		view.DAORecipient = dao.Recipient.Hex()
		total, err := manager.TotalManagementFee()
		if err != nil {
			return err
		}
		view.TotalManagementFee = total.Uint64()
		if total, err = manager.TotalPerformanceFee(); err != nil {
			return err
		}
		view.TotalPerformanceFee = total.Uint64()

		byRecipient := map[common.Address]*recipientStatus{}
		management, err := manager.ManagementFeeRecipients()
		if err != nil {
			return err
		}
		for _, entry := range management {
			view.Recipients = append(view.Recipients, recipientStatus{Recipient: entry.Recipient.Hex(), Management: entry.Fee.Uint64()})
			byRecipient[entry.Recipient] = &view.Recipients[len(view.Recipients)-1]
		}
		performance, err := manager.PerformanceFeeRecipients()
		if err != nil {
			return err
		}
		for _, entry := range performance {
			if existing, ok := byRecipient[entry.Recipient]; ok {
				existing.Performance = entry.Fee.Uint64()
				continue
			}
			view.Recipients = append(view.Recipients, recipientStatus{Recipient: entry.Recipient.Hex(), Performance: entry.Fee.Uint64()})
		}
		hwm, err := manager.HighWaterMark()
		if err != nil {
			return err
		}
		if hwm.Value != nil {
			view.HighWaterMark = hwm.Value.Dec()
		}
		view.Paused = map[string]bool{
			"fees":   n.Params().IsPaused("fees"),
			"oracle": n.Params().IsPaused("oracle"),
		}
		return nil
	})
	if err != nil {
		return err
	}
	return printJSON(out, view)
}

func runHarvest(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("harvest", flag.ContinueOnError)
	configPath, caller := commonFlags(fs)
	kind := fs.String("kind", "all", "Fee kind to harvest: management, performance or all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := open(*configPath, *caller, false)
	if err != nil {
		return err
	}
	defer s.close()

	err = s.node.Mutate(func(n *core.Node) error {
		switch *kind {
		case "management":
			return n.Fees().HarvestManagementFee()
		case "performance":
			return n.Fees().HarvestPerformanceFee()
		case "all":
			return n.Fees().HarvestAllFees()
		default:
			return fmt.Errorf("unknown fee kind %q", *kind)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "harvested %s fees at height %d\n", *kind, s.node.Head().Height)
	return nil
}

func runRecipient(name string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath, caller := commonFlags(fs)
	recipientRaw := fs.String("recipient", "", "Recipient address")
	management := fs.Uint64("management", 0, "Management fee in basis points")
	performance := fs.Uint64("performance", 0, "Performance fee in basis points")
	if err := fs.Parse(args); err != nil {
		return err
	}
	recipient, err := parseRequiredAddress("recipient", *recipientRaw)
	if err != nil {
		return err
	}
	s, err := open(*configPath, *caller, false)
	if err != nil {
		return err
	}
	defer s.close()

	err = s.node.Mutate(func(n *core.Node) error {
		m, p := nativecommon.Percentage(*management), nativecommon.Percentage(*performance)
		if name == "add-recipient" {
			return n.Fees().AddFeeRecipient(s.caller, recipient, m, p)
		}
		return n.Fees().UpdateRecipientFees(s.caller, recipient, m, p)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s management=%d performance=%d\n", name, recipient.Hex(), *management, *performance)
	return nil
}

func runRemoveRecipient(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("remove-recipient", flag.ContinueOnError)
	configPath, caller := commonFlags(fs)
	recipientRaw := fs.String("recipient", "", "Recipient address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	recipient, err := parseRequiredAddress("recipient", *recipientRaw)
	if err != nil {
		return err
	}
	s, err := open(*configPath, *caller, false)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.node.Mutate(func(n *core.Node) error {
		return n.Fees().RemoveFeeRecipient(s.caller, recipient)
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %s\n", recipient.Hex())
	return nil
}

func runSetDAO(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("set-dao", flag.ContinueOnError)
	configPath, caller := commonFlags(fs)
	recipientRaw := fs.String("recipient", "", "New DAO fee recipient")
	if err := fs.Parse(args); err != nil {
		return err
	}
	recipient, err := parseRequiredAddress("recipient", *recipientRaw)
	if err != nil {
		return err
	}
	s, err := open(*configPath, *caller, false)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.node.Mutate(func(n *core.Node) error {
		return n.Fees().SetDAOFeeRecipientAddress(s.caller, recipient)
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "dao recipient set to %s\n", recipient.Hex())
	return nil
}

func runPrice(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	configPath, caller := commonFlags(fs)
	assetRaw := fs.String("asset", "", "Asset address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	asset, err := parseRequiredAddress("asset", *assetRaw)
	if err != nil {
		return err
	}
	s, err := open(*configPath, *caller, true)
	if err != nil {
		return err
	}
	defer s.close()

	return s.node.View(func(n *core.Node) error {
		price, decimals, err := n.Oracle().GetAssetPrice(asset)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]interface{}{
			"asset":    asset.Hex(),
			"price":    price.Dec(),
			"decimals": decimals,
		})
	})
}

func runValidatePrice(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate-price", flag.ContinueOnError)
	configPath, caller := commonFlags(fs)
	assetRaw := fs.String("asset", "", "Asset address")
	priceRaw := fs.String("price", "", "Observed price with 18 decimals; resolved through the oracle when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	asset, err := parseRequiredAddress("asset", *assetRaw)
	if err != nil {
		return err
	}
	var observed *uint256.Int
	if *priceRaw != "" {
		if observed, err = config.ParseAmount(*priceRaw); err != nil {
			return fmt.Errorf("price: %w", err)
		}
	}
	s, err := open(*configPath, *caller, observed == nil)
	if err != nil {
		return err
	}
	defer s.close()

	var baselineUpdated bool
	err = s.node.Mutate(func(n *core.Node) error {
		price := observed
		if price == nil {
			resolved, _, err := n.Oracle().GetAssetPrice(asset)
			if err != nil {
				return err
			}
			price = resolved
		}
		baselineUpdated, err = n.Oracle().ValidatePriceChange(asset, price)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "price of %s accepted (baseline updated: %s)\n", asset.Hex(), strconv.FormatBool(baselineUpdated))
	return nil
}

func runPause(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pause", flag.ContinueOnError)
	configPath, caller := commonFlags(fs)
	module := fs.String("module", "", "Module to toggle: fees or oracle")
	resume := fs.Bool("resume", false, "Resume the module instead of pausing it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := open(*configPath, *caller, false)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.node.Mutate(func(n *core.Node) error {
		return n.Params().SetModulePaused(*module, !*resume)
	}); err != nil {
		return err
	}
	state := "paused"
	if *resume {
		state = "resumed"
	}
	fmt.Fprintf(out, "%s %s\n", *module, state)
	return nil
}
