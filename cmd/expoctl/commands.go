package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sakif/cultural-expo/internal/auth"
	"github.com/sakif/cultural-expo/internal/config"
	"github.com/sakif/cultural-expo/internal/journal"
	"github.com/sakif/cultural-expo/internal/model"
	"github.com/sakif/cultural-expo/internal/repository"
	"github.com/sakif/cultural-expo/internal/service"
)

// app carries what every command needs. open is a field so tests can hand
// in an in-memory backend.
type app struct {
	cfg  *config.Config
	log  zerolog.Logger
	open func(ctx context.Context) (repository.KeyValueStore, error)
}

// withService opens the backend, runs fn against a service over it, and
// closes the backend.
func (a *app) withService(ctx context.Context, fn func(*service.ExperienceService) error) error {
	kv, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing storage backend")
		}
	}()

	svc := service.NewExperienceService(journal.New(kv, a.log), a.log)
	return fn(svc)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "expoctl",
		Short:         "Manage a Cultural Expo journal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newListCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newClearCmd(a),
		newTokenCmd(a),
	)
	return root
}

func newListCmd(a *app) *cobra.Command {
	var (
		date, month, country string
		asJSON               bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List experiences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := service.ListFilter{Date: date, CountryID: country}
			if month != "" {
				year, m, err := parseMonth(month)
				if err != nil {
					return err
				}
				filter.Year, filter.Month, filter.HasMonth = year, m, true
			}

			return a.withService(cmd.Context(), func(svc *service.ExperienceService) error {
				records, err := svc.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), records)
				}
				return printTable(cmd.OutOrStdout(), records)
			})
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Only experiences on this date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&month, "month", "m", "", "Only experiences in this month (YYYY-MM)")
	cmd.Flags().StringVarP(&country, "country", "c", "", "Only experiences for this country id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// parseMonth turns "YYYY-MM" into a year and a 0-based month.
func parseMonth(s string) (int, int, error) {
	yearStr, monthStr, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("--month must be YYYY-MM, got %q", s)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, fmt.Errorf("--month must be YYYY-MM, got %q", s)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("--month must be YYYY-MM, got %q", s)
	}
	return year, month - 1, nil
}

func newStatsCmd(a *app) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the statistics snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd.Context(), func(svc *service.ExperienceService) error {
				st := svc.Statistics(cmd.Context())
				if summary {
					return printSummary(cmd.OutOrStdout(), st)
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "Print a short human-readable summary")
	return cmd
}

// summaryCuisines is how many cuisines the summary ranks.
const summaryCuisines = 3

func printSummary(w io.Writer, st model.Statistics) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Experiences:\t%d\n", st.TotalExperiences)
	fmt.Fprintf(tw, "Countries:\t%d\n", st.CountriesExplored)
	fmt.Fprintf(tw, "Dishes / drinks / movies:\t%d / %d / %d\n",
		st.TotalDishesAttempted, st.TotalDrinksAttempted, st.TotalMoviesWatched)

	for i, c := range st.TopCuisines(summaryCuisines) {
		fmt.Fprintf(tw, "Cuisine #%d:\t%s (%.1f over %d dishes)\n", i+1, c.Country, c.AvgRating, c.Count)
	}
	for _, ach := range st.Earned() {
		fmt.Fprintf(tw, "Achievement:\t%s\n", ach.Name)
	}
	return tw.Flush()
}

func newExportCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an export document to stdout or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd.Context(), func(svc *service.ExperienceService) error {
				raw, err := svc.Export(cmd.Context())
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
					return err
				}
				if err := os.WriteFile(out, raw, 0o600); err != nil {
					return fmt.Errorf("writing %s: %w", out, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", out)
				return nil
			})
		},
	}

	defaultName := fmt.Sprintf("cultural-expo-backup-%s.json", time.Now().Format(model.DateLayout))
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (e.g. "+defaultName+"); stdout when empty")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the journal with an export document (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				blob []byte
				err  error
			)
			if args[0] == "-" {
				blob, err = io.ReadAll(cmd.InOrStdin())
			} else {
				blob, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			return a.withService(cmd.Context(), func(svc *service.ExperienceService) error {
				if err := svc.Import(cmd.Context(), blob); err != nil {
					return err
				}
				records, err := svc.List(cmd.Context(), service.ListFilter{})
				if err != nil {
					a.log.Warn().Err(err).Msg("could not count imported experiences")
					fmt.Fprintln(cmd.OutOrStdout(), "journal imported")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d experiences\n", len(records))
				return nil
			})
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Erase all experiences, preferences, and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the journal without --yes")
			}
			return a.withService(cmd.Context(), func(svc *service.ExperienceService) error {
				svc.Clear(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), "journal cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the erase")
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint an API bearer token signed with EXPO_JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JWTSecret == "" {
				return fmt.Errorf("EXPO_JWT_SECRET is not set")
			}
			tokens, err := auth.NewTokenService(a.cfg.JWTSecret)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateWithDuration(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "Token lifetime")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, records []model.ExperienceRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCOUNTRY\tDISHES\tDRINKS\tMOVIES")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.Date, r.Country.Name, len(r.Dishes), len(r.Drinks), len(r.Movies))
	}
	return tw.Flush()
}
