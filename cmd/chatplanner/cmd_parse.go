package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

var (
	parseNow string
	parseAs  string
)

// parseCmd runs the understanding pipeline once, without dispatching.
var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Parse one message and print the resulting request as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseNow, "now", "", "Reference time (RFC 3339); defaults to the current time")
	parseCmd.Flags().StringVar(&parseAs, "as", "", "Skip classification: event or goal")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	d, err := buildOracleOnly(ctx, cfg)
	if err != nil {
		return err
	}

	now, err := referenceTime(parseNow, d.norm.Location())
	if err != nil {
		return err
	}
	q := domain.Query{ClientID: "cli", CurrentTime: now, Content: strings.Join(args, " ")}

	var req *domain.Request
	switch strings.ToLower(parseAs) {
	case "":
		req, err = d.parser().Parse(ctx, q)
	case "event":
		req, err = d.parser().ParseAs(ctx, q, domain.RequestEvent)
	case "goal", "task":
		req, err = d.parser().ParseAs(ctx, q, domain.RequestGoal)
	default:
		return fmt.Errorf("--as must be event or goal, got %q", parseAs)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(req)
}

func referenceTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return t.In(loc), nil
}
