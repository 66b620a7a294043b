package ui

import (
	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# aopgraph dashboard

Explore an Adverse Outcome Pathway network next to its relationship
table. Table and graph selections stay mirrored in both directions.

## Selection

| Key | Action |
|-----|--------|
| enter | select exactly this row |
| space | toggle this row, keep the rest |
| v | extend a contiguous range from the anchor row |

## Filtering

| Key | Action |
|-----|--------|
| f | filter by the current row's first AOP (press again to clear) |
| g | add/remove the current row's first AOP from the grouped set |
| G | group by every known AOP (press again to clear) |
| c | clear any active filter or grouping |

Filtering and grouping are mutually exclusive. Clearing restores the
exact styles elements had before the filter was applied.

## Visibility

| Key | Action |
|-----|--------|
| 1 | show/hide chemicals |
| 2 | show/hide genes and proteins |
| 3 | show/hide GO processes |
| 4 | show/hide organs |
| ! | toggle between all-network and selection scope |

The first time a type is shown its annotations are fetched from the
network service and merged in.

## Network

| Key | Action |
|-----|--------|
| d | delete the selected elements |
| y | copy the selected element ids to the clipboard |
| s | save the network document |
| S | export a snapshot image |
| q | quit |
`

// renderHelp renders the help screen markdown for the current terminal.
func renderHelp(width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}
