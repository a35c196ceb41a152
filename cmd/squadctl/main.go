// Command squadctl drafts squads and scores predictions offline, from
// local roster and data files.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/smfc/matchday/internal/adapters/roster"
	app "github.com/smfc/matchday/internal/app"
	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/internal/domain/scoring"
	"github.com/smfc/matchday/internal/domain/squad"
	"github.com/smfc/matchday/internal/domain/types"
	"github.com/smfc/matchday/pkg/logger"
)

func main() {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("squadctl: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString("warn")

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		os.Stderr.WriteString("squadctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "squadctl",
		Usage:  "balance five-a-side squads and score predictions",
		Writer: out,
		Commands: []*cli.Command{
			draftCommand(),
			transferCommand(),
			scoreCommand(),
			rosterCommand(),
		},
	}
}

func draftCommand() *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "draft red and blue from roster players and guests",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "roster", Aliases: []string{"r"}, Usage: "roster file (.yaml, .yml or .xlsx)", Required: true},
			&cli.StringSliceFlag{Name: "player", Aliases: []string{"p"}, Usage: "roster player taking part (repeatable)"},
			&cli.StringSliceFlag{Name: "guest", Aliases: []string{"g"}, Usage: "guest without a rating (repeatable)"},
			&cli.Float64Flag{Name: "jitter", Value: 3, Usage: "maximum random offset added to each rating"},
			&cli.Float64Flag{Name: "guest-rating", Value: model.DefaultAttribute, Usage: "rating given to guests"},
			&cli.Uint64Flag{Name: "seed", Usage: "seed for a reproducible draft (0 picks a random one)"},
			&cli.BoolFlag{Name: "json", Usage: "print the squad as JSON, suitable for transfer"},
		},
		Action: func(c *cli.Context) error {
			players, err := roster.Load(c.String("roster"))
			if err != nil {
				return err
			}

			opts := []squad.Option{squad.WithJitter(c.Float64("jitter")), squad.WithGuestRating(c.Float64("guest-rating"))}
			if seed := c.Uint64("seed"); seed != 0 {
				opts = append(opts, squad.WithJitterSource(rand.New(rand.NewPCG(seed, seed)))) //nolint:gosec // draft jitter, not security
			}
			svc := app.New(app.WithBalancerOptions(opts...))
			defer func() { _ = svc.Stop(c.Context) }()
			if err := svc.ReplaceRoster(c.Context, players); err != nil {
				return err
			}

			names := c.StringSlice("player")
			if len(names) == 0 {
				for _, p := range players {
					names = append(names, p.Name)
				}
			}
			s, err := svc.Draft(c.Context, names, c.StringSlice("guest"))
			if err != nil {
				return err
			}
			return printSquad(c.App.Writer, s, c.Bool("json"))
		},
	}
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "swap one red player with one blue player in a drafted squad",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "squad", Aliases: []string{"s"}, Usage: "squad JSON from draft --json", Required: true},
			&cli.StringFlag{Name: "from-red", Usage: "red player moving to blue", Required: true},
			&cli.StringFlag{Name: "from-blue", Usage: "blue player moving to red", Required: true},
			&cli.BoolFlag{Name: "json", Usage: "print the squad as JSON"},
		},
		Action: func(c *cli.Context) error {
			var s model.Squad
			if err := readJSON(c.String("squad"), &s); err != nil {
				return err
			}
			next, err := squad.Transfer(s, c.String("from-red"), c.String("from-blue"))
			if err != nil {
				return err
			}
			return printSquad(c.App.Writer, next, c.Bool("json"))
		},
	}
}

// scoreData is the input of the score command.
type scoreData struct {
	Matches     []model.MatchResult `json:"matches"`
	Predictions []model.Prediction  `json:"predictions"`
}

type scoreReport struct {
	Leaderboard []types.Entry     `json:"leaderboard"`
	LastMatch   *model.TopScorers `json:"last_match"`
}

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "build the leaderboard from a JSON file of matches and predictions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: `JSON file with "matches" and "predictions"`, Required: true},
			&cli.IntFlag{Name: "limit", Usage: "show only the top N rows (0 for all)"},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON"},
		},
		Action: func(c *cli.Context) error {
			var data scoreData
			if err := readJSON(c.String("data"), &data); err != nil {
				return err
			}
			report := scoreReport{
				Leaderboard: types.Rank(scoring.BuildLeaderboard(data.Matches, data.Predictions)),
				LastMatch:   scoring.TopScorersOfLastMatch(data.Matches, data.Predictions),
			}
			if n := c.Int("limit"); n > 0 && n < len(report.Leaderboard) {
				report.Leaderboard = report.Leaderboard[:n]
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, report)
			}
			return printReport(c.App.Writer, report)
		},
	}
}

func rosterCommand() *cli.Command {
	return &cli.Command{
		Name:  "roster",
		Usage: "inspect and convert roster files",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "print the roster with overall ratings",
				ArgsUsage: "FILE",
				Action: func(c *cli.Context) error {
					players, err := roster.Load(c.Args().First())
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "NAME\tPOS\tOVR\tPAC\tSHO\tPAS\tDRI\tDEF\tPHY\tSTARS")
					for _, p := range players {
						fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.1f\n",
							p.Name, p.Position, p.Overall(), p.Pace, p.Shooting, p.Passing, p.Dribbling, p.Defending, p.Physicality, p.StarRating)
					}
					return tw.Flush()
				},
			},
			{
				Name:      "convert",
				Usage:     "convert a roster between YAML and XLSX",
				ArgsUsage: "IN OUT",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("convert needs IN and OUT, got %d arguments", c.NArg())
					}
					return convertRoster(c.Args().Get(0), c.Args().Get(1))
				},
			},
		},
	}
}

func convertRoster(in, out string) error {
	players, err := roster.Load(in)
	if err != nil {
		return err
	}
	var data []byte
	switch strings.ToLower(filepath.Ext(out)) {
	case ".yaml", ".yml":
		data, err = roster.EncodeYAML(players)
	case ".xlsx":
		data, err = roster.EncodeXLSX(players)
	default:
		return fmt.Errorf("%w: %s", roster.ErrUnsupportedFormat, out)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o644) //nolint:gosec // roster files are not secret
}

func printSquad(w io.Writer, s model.Squad, asJSON bool) error {
	if asJSON {
		return writeJSON(w, s)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, side := range []struct {
		team    model.Team
		entries []model.DraftEntry
	}{{model.TeamRed, s.Red}, {model.TeamBlue, s.Blue}} {
		fmt.Fprintf(tw, "%s\t(%d players, strength %.1f)\n", strings.ToUpper(string(side.team)), len(side.entries), s.Strength(side.team))
		for _, e := range side.entries {
			fmt.Fprintf(tw, "  %s\t%s\t%.1f\n", e.Name, e.Position, e.Overall)
		}
	}
	return tw.Flush()
}

func printReport(w io.Writer, r scoreReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tPTS\tWIN\tRED\tBLUE\tNO")
	for _, e := range r.Leaderboard {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\n", e.Rank, e.Name, e.Total, e.ResultPoints, e.RedScorePoints, e.BlueScorePoints, e.Played)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if r.LastMatch == nil {
		_, err := fmt.Fprintln(w, "\nno completed match yet")
		return err
	}
	players := strings.Join(r.LastMatch.Players, ", ")
	if players == "" {
		players = "nobody predicted"
	}
	_, err := fmt.Fprintf(w, "\nlast match %s (%s): %s with %d points\n", r.LastMatch.MatchID, r.LastMatch.MatchScore, players, r.LastMatch.TopScore)
	return err
}

func readJSON(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
