package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/ecoswap/internal/advisor"
	"github.com/kalambet/ecoswap/internal/config"
	"github.com/kalambet/ecoswap/internal/items"
	"github.com/kalambet/ecoswap/internal/pipeline"
)

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the listed items closest to a name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		aiRank, _ := cmd.Flags().GetBool("ai-rank")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runSearch(cmd.Context(), client, strings.Join(args, " "), aiRank, asJSON, os.Stdout)
	},
}

func init() {
	searchCmd.Flags().Bool("json", false, "print raw JSON")
	searchCmd.Flags().Bool("ai-rank", false, "let the language model reorder the matches")
}

func runSearch(ctx context.Context, client *apiClient, query string, aiRank, asJSON bool, w io.Writer) error {
	q := url.Values{"q": {query}}
	if aiRank {
		q.Set("rank", "ai")
	}
	resp, err := client.get(ctx, "/v1/items", q)
	if err != nil {
		return err
	}
	var recs []items.Record
	if err := decodeJSON(resp, &recs); err != nil {
		return err
	}
	if asJSON {
		return writeIndented(w, recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(w, "No items found.")
		return nil
	}
	for i, r := range recs {
		printRecord(w, i+1, r, "")
	}
	return nil
}

// --- submit ---

var submitCmd = &cobra.Command{
	Use:   "submit <productname>",
	Short: "List an item others can borrow",
	Long: `List an item others can borrow.

Example:
  ecoswap submit "Cordless drill" --description "18V, two batteries, barely used" \
    --contact-name "Kim" --email kim@example.com --phone "555 010 0199"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := items.Record{ProductName: strings.Join(args, " ")}
		rec.Description, _ = cmd.Flags().GetString("description")
		rec.ContactName, _ = cmd.Flags().GetString("contact-name")
		rec.ContactEmail, _ = cmd.Flags().GetString("email")
		rec.ContactPhone, _ = cmd.Flags().GetString("phone")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := runSubmit(cmd.Context(), client, rec); err != nil {
			return err
		}
		printSuccess("Saved %q", items.SanitizeField(rec.ProductName))
		return nil
	},
}

func init() {
	submitCmd.Flags().String("description", "", "what the item is and its condition (at least 10 characters)")
	submitCmd.Flags().String("contact-name", "", "who to contact")
	submitCmd.Flags().String("email", "", "contact email")
	submitCmd.Flags().String("phone", "", "contact phone number")
	for _, f := range []string{"description", "contact-name", "email", "phone"} {
		submitCmd.MarkFlagRequired(f)
	}
}

func runSubmit(ctx context.Context, client *apiClient, rec items.Record) error {
	resp, err := client.post(ctx, "/v1/items", rec)
	if err != nil {
		return err
	}
	var ack pipeline.Ack
	if err := decodeJSON(resp, &ack); err != nil {
		return err
	}
	if ack.Status != pipeline.SavedAck.Status {
		return fmt.Errorf("unexpected response: %s", ack.Message)
	}
	return nil
}

// --- discover ---

var discoverCmd = &cobra.Command{
	Use:   "discover <query>",
	Short: "Search items to borrow with AI relevance filtering and tips",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runDiscover(cmd.Context(), client, strings.Join(args, " "), asJSON, os.Stdout)
	},
}

func init() {
	discoverCmd.Flags().Bool("json", false, "print raw JSON")
}

func runDiscover(ctx context.Context, client *apiClient, query string, asJSON bool, w io.Writer) error {
	resp, err := client.get(ctx, "/v1/items/discover", url.Values{"q": {query}})
	if err != nil {
		return err
	}
	var d pipeline.Discovery
	if err := decodeJSON(resp, &d); err != nil {
		return err
	}
	if asJSON {
		return writeIndented(w, d)
	}

	for i, c := range d.Results {
		printRecord(w, i+1, c.Record, tierBadge(c.Annotation))
		if c.Annotation != nil && c.Reason != "" {
			fmt.Fprintf(w, "   %s\n", colorize(colorCyan, c.Reason))
		}
	}
	if len(d.Results) == 0 {
		fmt.Fprintln(w, "No relevant items found.")
	}
	if d.Suggestion != "" {
		fmt.Fprintf(w, "\n%s\n", d.Suggestion)
	}
	if d.Category != "" {
		fmt.Fprintf(w, "\n%s %s\n", colorize(colorBold, "Category:"), d.Category)
	}
	if d.Action != nil {
		fmt.Fprintf(w, "%s %s (%s)\n", colorize(colorBold, "Best action:"), d.Action.Action, d.Action.Reason)
	}
	if d.Tip != "" {
		fmt.Fprintf(w, "\n%s\n", d.Tip)
	}
	return nil
}

// --- nearby ---

var nearbyCmd = &cobra.Command{
	Use:   "nearby <recycle|repair> [item]",
	Short: "List places nearby that recycle or repair an item",
	Long: `List places nearby that recycle or repair an item.

Without --lat/--lon the server detects the location from its IP address.

Examples:
  ecoswap nearby recycle "old laptop"
  ecoswap nearby repair jeans --lat 52.37 --lon 4.89 --max-distance 2000`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{"kind": {args[0]}}
		if len(args) > 1 {
			q.Set("item", strings.Join(args[1:], " "))
		}
		if c, _ := cmd.Flags().GetString("category"); c != "" {
			q.Set("category", c)
		}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
			lat, _ := cmd.Flags().GetFloat64("lat")
			lon, _ := cmd.Flags().GetFloat64("lon")
			q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
			q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
		}
		if d, _ := cmd.Flags().GetFloat64("max-distance"); d > 0 {
			q.Set("max_distance", strconv.FormatFloat(d, 'f', -1, 64))
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runNearby(cmd.Context(), client, q, asJSON, os.Stdout)
	},
}

func init() {
	nearbyCmd.Flags().String("category", "", "E-waste, Fashion or Tools (classified from the item when omitted)")
	nearbyCmd.Flags().Float64("lat", 0, "latitude")
	nearbyCmd.Flags().Float64("lon", 0, "longitude")
	nearbyCmd.Flags().Float64("max-distance", 0, "maximum distance in meters")
	nearbyCmd.Flags().Bool("json", false, "print raw JSON")
}

func runNearby(ctx context.Context, client *apiClient, q url.Values, asJSON bool, w io.Writer) error {
	resp, err := client.get(ctx, "/v1/nearby", q)
	if err != nil {
		return err
	}
	var res pipeline.NearbyResult
	if err := decodeJSON(resp, &res); err != nil {
		return err
	}
	if asJSON {
		return writeIndented(w, res)
	}

	where := res.Location.City
	if where == "" {
		where = fmt.Sprintf("%.4f, %.4f", res.Location.Lat, res.Location.Lon)
	}
	fmt.Fprintf(w, "Places that %s %s items near %s\n\n", res.Kind, res.Category, where)

	if len(res.Places) == 0 {
		fmt.Fprintln(w, "No places found.")
	}
	for i, p := range res.Places {
		title := colorize(colorBold, fmt.Sprintf("%d. %s", i+1, p.Name))
		if b := tierBadge(p.Annotation); b != "" {
			title += " " + b
		}
		fmt.Fprintln(w, title)
		fmt.Fprintf(w, "   %s, %s\n", p.Address, p.DistanceText)
		if p.Phone != "" {
			fmt.Fprintf(w, "   %s\n", p.Phone)
		}
		if p.Website != "" {
			fmt.Fprintf(w, "   %s\n", p.Website)
		}
		fmt.Fprintf(w, "   %s\n", colorize(colorCyan, p.Directions))
	}
	if res.Suggestion != "" {
		fmt.Fprintf(w, "\n%s\n", res.Suggestion)
	}
	if res.Tip != "" {
		fmt.Fprintf(w, "\n%s\n", res.Tip)
	}
	return nil
}

// --- assist ---

var assistCmd = &cobra.Command{
	Use:   "assist",
	Short: "AI helpers: autocomplete, classify, best action, listing description",
}

var assistAutocompleteCmd = &cobra.Command{
	Use:   "autocomplete <partial>",
	Short: "Suggest item names completing a partial input",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssist(cmd.Context(), "autocomplete", url.Values{"q": {strings.Join(args, " ")}}, os.Stdout,
			func(w io.Writer, body map[string]json.RawMessage) error {
				var s []string
				if err := json.Unmarshal(body["suggestions"], &s); err != nil {
					return err
				}
				for _, v := range s {
					fmt.Fprintln(w, v)
				}
				return nil
			})
	},
}

var assistClassifyCmd = &cobra.Command{
	Use:   "classify <item>",
	Short: "Classify an item as E-waste, Fashion or Tools",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssist(cmd.Context(), "classify", url.Values{"item": {strings.Join(args, " ")}}, os.Stdout,
			func(w io.Writer, body map[string]json.RawMessage) error {
				var c advisor.Category
				json.Unmarshal(body["category"], &c)
				if c == "" {
					fmt.Fprintln(w, "unknown")
					return nil
				}
				fmt.Fprintln(w, c)
				return nil
			})
	},
}

var assistActionCmd = &cobra.Command{
	Use:   "action <item>",
	Short: "Ask whether to reuse, reduce or recycle an item",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{"item": {strings.Join(args, " ")}}
		if c, _ := cmd.Flags().GetString("category"); c != "" {
			q.Set("category", c)
		}
		return runAssist(cmd.Context(), "action", q, os.Stdout,
			func(w io.Writer, body map[string]json.RawMessage) error {
				var s *advisor.ActionSuggestion
				json.Unmarshal(body["action"], &s)
				if s == nil {
					fmt.Fprintln(w, "No suggestion available.")
					return nil
				}
				fmt.Fprintf(w, "%s: %s\n", colorize(colorBold, string(s.Action)), s.Reason)
				return nil
			})
	},
}

var assistDescribeCmd = &cobra.Command{
	Use:   "describe <item>",
	Short: "Draft a listing description for an item",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssist(cmd.Context(), "description", url.Values{"item": {strings.Join(args, " ")}}, os.Stdout,
			func(w io.Writer, body map[string]json.RawMessage) error {
				var d string
				if err := json.Unmarshal(body["description"], &d); err != nil {
					return err
				}
				fmt.Fprintln(w, d)
				return nil
			})
	},
}

func init() {
	assistActionCmd.Flags().String("category", "", "E-waste, Fashion or Tools (classified when omitted)")
	assistCmd.AddCommand(assistAutocompleteCmd, assistClassifyCmd, assistActionCmd, assistDescribeCmd)
}

func runAssist(ctx context.Context, op string, q url.Values, w io.Writer, render func(io.Writer, map[string]json.RawMessage) error) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.get(ctx, "/v1/assist/"+op, q)
	if err != nil {
		return err
	}
	var body map[string]json.RawMessage
	if err := decodeJSON(resp, &body); err != nil {
		return err
	}
	return render(w, body)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value.\n\nValid keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(configPath, key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(configPath, args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		p := configPath
		if p == "" {
			p = config.DefaultPath()
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd, configPathCmd)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
