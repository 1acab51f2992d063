package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kalambet/ecoswap/internal/items"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// printRecord writes one numbered listing. badge is appended to the title
// when non-empty.
func printRecord(w io.Writer, n int, r items.Record, badge string) {
	title := colorize(colorBold, fmt.Sprintf("%d. %s", n, r.ProductName))
	if badge != "" {
		title += " " + badge
	}
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "   %s\n", r.Description)
	fmt.Fprintf(w, "   %s <%s> %s\n", r.ContactName, r.ContactEmail, r.ContactPhone)
}

// tierBadge renders an AI annotation as "[high 9/10]", or "" for none.
func tierBadge(a *items.Annotation) string {
	if a == nil {
		return ""
	}
	return colorize(tierColor(a.Tier), fmt.Sprintf("[%s %d/10]", a.Tier, a.Score))
}

func tierColor(t items.Tier) string {
	switch t {
	case items.TierHigh:
		return colorGreen
	case items.TierMedium:
		return colorYellow
	default:
		return colorRed
	}
}
