package utils

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Gruvbox-inspired palette used across all terminal output
var (
	gruvboxFgDark  = text.Colors{text.FgHiBlack}
	gruvboxFgLight = text.Colors{text.FgWhite}
	gruvboxRed     = text.Colors{text.FgRed}
	gruvboxGreen   = text.Colors{text.FgGreen}
	gruvboxYellow  = text.Colors{text.FgYellow}
	gruvboxBlue    = text.Colors{text.FgBlue}
	gruvboxAqua    = text.Colors{text.FgCyan}

	gruvboxBlueBright = text.Colors{text.FgHiBlue}
	gruvboxAquaBright = text.Colors{text.FgHiCyan}

	gruvboxBold = text.Colors{text.Bold}
)

// Theme - exported theme colors for consistent UI
var Theme = struct {
	Success text.Colors
	Info    text.Colors
	Warning text.Colors
	Error   text.Colors
	Heading text.Colors
	Subtle  text.Colors
	Accent  text.Colors

	TableHeader text.Colors
	TableBorder text.Colors
	TableRow    text.Colors
	Divider     text.Colors
}{
	Success: gruvboxGreen,
	Info:    gruvboxBlue,
	Warning: gruvboxYellow,
	Error:   gruvboxRed,
	Heading: append(gruvboxAquaBright, text.Bold),
	Subtle:  gruvboxFgDark,
	Accent:  gruvboxAqua,

	TableHeader: append(gruvboxBlueBright, text.Bold),
	TableBorder: gruvboxBlue,
	TableRow:    gruvboxFgLight,
	Divider:     gruvboxFgDark,
}

// PrintHeading prints a formatted heading
func PrintHeading(title string) {
	fmt.Println(Theme.Heading.Sprint(title))
}

// PrintSubHeading prints a formatted sub-heading
func PrintSubHeading(title string) {
	fmt.Println(Theme.Info.Sprint(title))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Println(Theme.Success.Sprint("✓ ") + message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Println(Theme.Info.Sprint("ℹ ") + message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println(Theme.Warning.Sprint("⚠ ") + message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Println(Theme.Error.Sprint("✗ ") + message)
}

// PrintKeyValue prints a key-value pair
func PrintKeyValue(key, value string) {
	fmt.Printf("%s: %s\n", gruvboxBold.Sprint(key), value)
}

// PrintKeyValueWithColor prints a key-value pair with colored value
func PrintKeyValueWithColor(key string, value string, colors text.Colors) {
	fmt.Printf("%s: %s\n", gruvboxBold.Sprint(key), colors.Sprint(value))
}

// PrintDivider prints a horizontal divider
func PrintDivider() {
	fmt.Println(Theme.Divider.Sprint("---------------------------------------------------"))
}

// PrintTable prints a table with headers and rows
func PrintTable(headers []string, rows [][]string) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Header = Theme.TableHeader
	t.Style().Color.Border = Theme.TableBorder
	t.Style().Color.Row = Theme.TableRow
	t.Style().Options.SeparateRows = false

	headerRow := table.Row{}
	for _, header := range headers {
		headerRow = append(headerRow, header)
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tableRow := table.Row{}
		for _, cell := range row {
			tableRow = append(tableRow, cell)
		}
		t.AppendRow(tableRow)
	}

	configs := []table.ColumnConfig{}
	for i := range headers {
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignCenter,
		})
	}
	t.SetColumnConfigs(configs)

	fmt.Println(t.Render())
}
