package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/atotto/clipboard"
	"github.com/mattn/go-runewidth"

	"lexio/model"
	"lexio/quickaction"
	"lexio/storage"
)

const defaultTermWidth = 100

func termWidth() int {
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 20 {
		return cols
	}
	return defaultTermWidth
}

func renderMarkdown(content string) string {
	return string(markdown.Render(content, termWidth(), 0))
}

// copyToClipboard is best-effort: a headless environment without a clipboard
// only gets a warning.
func copyToClipboard(text string) {
	if err := clipboard.WriteAll(text); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not copy to clipboard: %v\n", err)
	}
}

// pad right-pads s to width using display width, so CJK and wide runes line
// up.
func pad(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

func printSources(sources []model.SourceCitation) {
	if len(sources) == 0 {
		return
	}

	fmt.Println("\nSources:")
	idWidth := 0
	for _, src := range sources {
		if w := runewidth.StringWidth(src.ID); w > idWidth {
			idWidth = w
		}
	}
	excerptWidth := termWidth() - idWidth - 5
	for _, src := range sources {
		excerpt := strings.ReplaceAll(src.Content, "\n", " ")
		if runewidth.StringWidth(excerpt) > excerptWidth {
			excerpt = runewidth.Truncate(excerpt, excerptWidth, "...")
		}
		fmt.Printf("  %s  %s\n", pad(src.ID, idWidth), excerpt)
	}
}

func printUsage(usage *model.TokenUsage) {
	if usage == nil {
		return
	}
	fmt.Printf("\nTokens: %d prompt + %d completion = %d total\n",
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

func printActions(actions []quickaction.Action) {
	nameWidth := 0
	for _, a := range actions {
		if w := runewidth.StringWidth(a.Name); w > nameWidth {
			nameWidth = w
		}
	}
	for _, a := range actions {
		note := ""
		if a.RequiresExactlyOne {
			note = " (one document)"
		}
		fmt.Printf("  %s  %s%s\n", pad(a.Name, nameWidth), a.Description, note)
	}
}

func printConversations(list []storage.ConversationMetadata) {
	idWidth, titleWidth := 0, 0
	for _, c := range list {
		if w := runewidth.StringWidth(c.ID); w > idWidth {
			idWidth = w
		}
		if w := runewidth.StringWidth(c.Title); w > titleWidth {
			titleWidth = w
		}
	}
	for _, c := range list {
		fmt.Printf("  %s  %s  %2d messages  %s\n",
			pad(c.ID, idWidth), pad(c.Title, titleWidth),
			c.MessageCount, c.UpdatedAt.Format("2006-01-02 15:04"))
	}
}
