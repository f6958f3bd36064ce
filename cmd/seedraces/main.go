package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagDatabaseURL    = "database-url"
	envPrefix          = "LOPPET"
	defaultDatabaseURL = "sqlite:///tmp/loppet.db"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seedraces: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seedraces",
		Short:         "Seed the race reference data",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetEnvPrefix(envPrefix)
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if err := v.BindPFlag(flagDatabaseURL, cmd.Flags().Lookup(flagDatabaseURL)); err != nil {
				return err
			}
			dsn := strings.TrimSpace(v.GetString(flagDatabaseURL))
			if dsn == "" {
				return fmt.Errorf("%s is required", flagDatabaseURL)
			}
			return seed(cmd.Context(), dsn)
		},
	}
	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "database connection string (postgres:// or sqlite://)")
	return cmd
}

// seed upserts the fixture set keyed on (name, date), so rerunning the
// command never duplicates rows.
func seed(ctx context.Context, dsn string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, err := gormstore.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	store := gormstore.New(gormDB)
	for _, race := range fixtureRaces() {
		if err := store.UpsertRace(ctx, race); err != nil {
			return fmt.Errorf("seed race %q: %w", race.Name, err)
		}
		logger.Info("race seeded", zap.String("name", race.Name), zap.Time("date", race.Date))
	}
	return nil
}

func fixtureRaces() []loppet.Race {
	return []loppet.Race{
		{
			Name:        "Vasaloppet",
			Date:        time.Date(2027, time.March, 7, 8, 0, 0, 0, time.UTC),
			Location:    "Sälen–Mora",
			Description: "90 km klassisk längdskidåkning",
			Active:      true,
		},
		{
			Name:        "Vätternrundan",
			Date:        time.Date(2027, time.June, 18, 19, 30, 0, 0, time.UTC),
			Location:    "Motala",
			Description: "315 km landsvägscykling runt Vättern",
			Active:      true,
		},
		{
			Name:        "Lidingöloppet",
			Date:        time.Date(2027, time.September, 25, 9, 0, 0, 0, time.UTC),
			Location:    "Lidingö",
			Description: "30 km terränglöpning",
			Active:      true,
		},
		{
			Name:        "Vansbrosimningen",
			Date:        time.Date(2027, time.July, 10, 10, 0, 0, 0, time.UTC),
			Location:    "Vansbro",
			Description: "3 km öppet vatten i Vanån och Västerdalälven",
			Active:      true,
		},
		{
			Name:        "Stockholm Marathon",
			Date:        time.Date(2027, time.May, 29, 12, 0, 0, 0, time.UTC),
			Location:    "Stockholm",
			Description: "42,2 km stadslopp",
			Active:      true,
		},
		{
			Name:        "Ironman Kalmar",
			Date:        time.Date(2027, time.August, 14, 7, 0, 0, 0, time.UTC),
			Location:    "Kalmar",
			Description: "Triathlon över hel ironman-distans",
			Active:      true,
		},
	}
}
