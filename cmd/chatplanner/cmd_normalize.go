package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/chatplanner/internal/app/timenorm"
	"github.com/PabloGalante/chatplanner/internal/config"
)

var normalizeNow string

var normalizeCmd = &cobra.Command{
	Use:   "normalize [raw answer]",
	Short: "Normalize a raw \"[date; time]\" oracle answer",
	Example: `  chatplanner normalize "[2024-12-22; 19:00]"
  chatplanner normalize --now 2024-12-21T12:00:00+03:00 "[завтра]"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeNow, "now", "", "Reference time (RFC 3339); defaults to the current time")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := config.ParseOffset(cfg.Time.UTCOffset)
	if err != nil {
		return err
	}
	now, err := referenceTime(normalizeNow, loc)
	if err != nil {
		return err
	}

	d := timenorm.New(loc).Normalize(strings.Join(args, " "), now)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	return enc.Encode(d)
}
