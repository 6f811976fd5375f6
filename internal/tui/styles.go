package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha subset.
var (
	colorSurface = lipgloss.Color("#45475A")
	colorText    = lipgloss.Color("#CDD6F4")
	colorSubtext = lipgloss.Color("#A6ADC8")
	colorDim     = lipgloss.Color("#585B70")

	colorAccent   = lipgloss.Color("#CBA6F7") // mauve
	colorBlue     = lipgloss.Color("#89B4FA")
	colorSapphire = lipgloss.Color("#74C7EC")
	colorGreen    = lipgloss.Color("#A6E3A1")
	colorYellow   = lipgloss.Color("#F9E2AF")
	colorRed      = lipgloss.Color("#F38BA8")
	colorPeach    = lipgloss.Color("#FAB387")
	colorTeal     = lipgloss.Color("#94E2D5")
	colorLavender = lipgloss.Color("#B4BEFE")
	colorSky      = lipgloss.Color("#89DCEB")
	colorFlamingo = lipgloss.Color("#F2CDCD")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSapphire)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	okStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender)

	windowBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorTeal)

	formLabelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	formFocusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender)
)

var providerColorMap = map[string]lipgloss.Color{
	"openai":    colorGreen,
	"anthropic": colorPeach,
}

var chartPalette = []lipgloss.Color{
	colorPeach, colorTeal, colorSapphire, colorGreen,
	colorYellow, colorLavender, colorSky, colorFlamingo,
}

func providerColor(provider string) lipgloss.Color {
	if c, ok := providerColorMap[provider]; ok {
		return c
	}
	h := 0
	for _, ch := range provider {
		h = h*31 + int(ch)
	}
	if h < 0 {
		h = -h
	}
	return chartPalette[h%len(chartPalette)]
}
