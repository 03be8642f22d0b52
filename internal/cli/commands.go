package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/config"
	"github.com/jamesgiroux/daily-operating-system-sub001/internal/engine"
	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

// --- emit command ---

var (
	emitSource     string
	emitValue      string
	emitConfidence float64
	emitPropagate  bool
)

var emitCmd = &cobra.Command{
	Use:   "emit <entity-type> <entity-id> <signal-type>",
	Short: "Record a signal",
	Long:  "Record a signal against an entity. Defaults to source user_correction; use --propagate to run the derivation pipeline.",
	Args:  cobra.ExactArgs(3),
	RunE:  runEmit,
}

func init() {
	emitCmd.Flags().StringVar(&emitSource, "source", "user_correction", "Signal source")
	emitCmd.Flags().StringVar(&emitValue, "value", "", "Optional JSON payload")
	emitCmd.Flags().Float64Var(&emitConfidence, "confidence", 1.0, "Confidence in [0,1]")
	emitCmd.Flags().BoolVar(&emitPropagate, "propagate", false, "Run derivation rules and meeting flagging")

	signalsCmd.Flags().StringVarP(&signalsType, "type", "t", "", "Filter by signal type")
	calloutsCmd.Flags().StringSliceVar(&calloutTitles, "meeting", nil, "Today's meeting titles for relevance reranking")
	calloutsCmd.Flags().StringVarP(&calloutsConfigPath, "config", "c", "", "Path to YAML config file")
}

func runEmit(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng := engine.New(db)

	if emitPropagate {
		id, derived, err := eng.EmitAndPropagate(args[0], args[1], args[2],
			emitSource, emitValue, emitConfidence, "")
		if err != nil {
			return fmt.Errorf("emit: %w", err)
		}
		fmt.Printf("emitted %s (%d derived)\n", id, len(derived))
		for _, d := range derived {
			fmt.Printf("  derived %s\n", d)
		}
		return nil
	}

	id, err := eng.EmitSignal(args[0], args[1], args[2], emitSource, emitValue, emitConfidence)
	if err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	fmt.Printf("emitted %s\n", id)
	return nil
}

// --- signals command ---

var signalsType string

var signalsCmd = &cobra.Command{
	Use:   "signals <entity-type> <entity-id>",
	Short: "Show active signals for an entity",
	Args:  cobra.ExactArgs(2),
	RunE:  runSignals,
}

func runSignals(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	var signals []store.SignalEvent
	if signalsType != "" {
		signals, err = db.ActiveSignalsByType(args[0], args[1], signalsType)
	} else {
		signals, err = db.ActiveSignals(args[0], args[1])
	}
	if err != nil {
		return fmt.Errorf("signals: %w", err)
	}

	if len(signals) == 0 {
		fmt.Println("No active signals.")
		return nil
	}

	now := time.Now()
	for _, sig := range signals {
		age := now.Sub(time.UnixMilli(sig.CreatedAt))
		fmt.Printf("%s  %s  conf %.2f (now %.2f)  %s\n",
			sig.ID[:8], sig.SignalType, sig.Confidence, engine.SignalWeight(sig, now), sig.Source)
		if sig.Value != "" {
			fmt.Printf("         %s\n", sig.Value)
		}
		fmt.Printf("         %s ago, half-life %dd\n", age.Round(time.Minute), sig.HalfLifeDays)
	}
	return nil
}

// --- callouts command ---

var (
	calloutTitles      []string
	calloutsConfigPath string
)

var calloutsCmd = &cobra.Command{
	Use:   "callouts",
	Short: "Generate today's briefing callouts",
	RunE:  runCallouts,
}

func runCallouts(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(calloutsConfigPath)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng := engine.New(db)
	if emb, err := engine.NewTFIDFEmbedder(db, 512); err == nil {
		eng.SetEmbedder(emb)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	callouts, err := eng.GenerateCallouts(ctx, engine.CalloutOpts{
		Window:        time.Duration(cfg.Callouts.WindowHours) * time.Hour,
		MinConfidence: cfg.Callouts.MinConfidence,
		MeetingTitles: calloutTitles,
	})
	if err != nil {
		return fmt.Errorf("callouts: %w", err)
	}

	if len(callouts) == 0 {
		fmt.Println("Nothing briefing-worthy in the last 24 hours.")
		return nil
	}

	for _, c := range callouts {
		fmt.Printf("[%s] %s\n", c.Severity, c.Headline)
		if c.Detail != "" {
			fmt.Printf("  %s\n", c.Detail)
		}
	}
	return nil
}

// --- bridge command ---

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the email-meeting bridge and enriched-email fanout",
	RunE:  runBridge,
}

func runBridge(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng := engine.New(db)

	correlated, err := eng.RunEmailMeetingBridge()
	if err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	fanout, err := eng.EmitEnrichedEmailSignals()
	if err != nil {
		return fmt.Errorf("email fanout: %w", err)
	}

	fmt.Printf("bridge: %d correlation signals, %d entity signals\n", correlated, fanout)
	return nil
}
