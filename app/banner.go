// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"rivaas.dev/mvc/routing"
)

var methodStyles = map[string]lipgloss.Style{
	http.MethodGet:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	http.MethodPost:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
	http.MethodPut:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	http.MethodPatch:  lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
	http.MethodDelete: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

// colorWriter downsamples ANSI colors to what w supports. Production
// output is stripped of them entirely.
func (a *App) colorWriter(w io.Writer) *colorprofile.Writer {
	cpw := colorprofile.NewWriter(w, os.Environ())
	if a.settings.IsProduction() {
		cpw.Profile = colorprofile.NoTTY
	}

	return cpw
}

func (a *App) useColors() bool {
	return a.settings.Environment == "development"
}

func (a *App) printStartupBanner(addr, protocol string) {
	w := a.colorWriter(a.out)

	gradient := []string{"10", "11"}
	if a.useColors() {
		gradient = []string{"12", "14", "10", "11"}
	}

	var art strings.Builder
	for _, line := range figure.NewFigure(a.settings.Service.Name, "", false).Slicify() {
		if strings.TrimSpace(line) == "" {
			art.WriteString("\n")
			continue
		}
		for i, char := range line {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[i%len(gradient)])).Bold(true)
			art.WriteString(style.Render(string(char)))
		}
		art.WriteString("\n")
	}

	category := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(14).PaddingLeft(2)
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	disabled := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	displayAddr := addr
	if strings.HasPrefix(addr, ":") || strings.HasPrefix(addr, "[::]:") {
		displayAddr = "0.0.0.0:" + addr[strings.LastIndex(addr, ":")+1:]
	}
	displayAddr = "http://" + displayAddr

	line := func(b *strings.Builder, name, text string) {
		b.WriteString(label.Render(name+":") + "  " + text + "\n")
	}

	var out strings.Builder
	out.WriteString(category.Render("Service") + "\n")
	line(&out, "Version", value.Foreground(lipgloss.Color("14")).Render(a.settings.Service.Version))
	line(&out, "Environment", value.Foreground(lipgloss.Color("11")).Render(a.settings.Environment))
	line(&out, "Address", value.Foreground(lipgloss.Color("10")).Render(displayAddr)+"  "+dim.Render("["+protocol+"]"))
	line(&out, "Hot reload", onOff(a.settings.HotReload, value, disabled))

	out.WriteString("\n" + category.Render("Observability") + "\n")
	if a.metrics != nil {
		text := value.Foreground(lipgloss.Color("13")).Render("Enabled")
		if a.metrics.Provider() == "prometheus" {
			text = value.Foreground(lipgloss.Color("13")).Render(displayAddr + a.settings.Metrics.Path)
		}
		line(&out, "Metrics", text+"  "+dim.Render(fmt.Sprintf("[%s]", a.metrics.Provider())))
	} else {
		line(&out, "Metrics", disabled.Render("Disabled"))
	}
	if p := a.tracing.Provider(); p != "noop" {
		line(&out, "Tracing", value.Foreground(lipgloss.Color("12")).Render("Enabled")+"  "+dim.Render(fmt.Sprintf("[%s]", p)))
	} else {
		line(&out, "Tracing", disabled.Render("Disabled"))
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, art.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, out.String())

	if a.useColors() && len(a.router.Routes()) > 0 {
		_, _ = fmt.Fprintln(w)
		a.renderRoutesTable(w, a.router.Routes(), 80, terminalWidth(a.out))
	}
	_, _ = fmt.Fprintln(w)
}

func onOff(on bool, enabled, disabled lipgloss.Style) string {
	if on {
		return enabled.Render("On")
	}

	return disabled.Render("Off")
}

// PrintRoutes writes the route table to w. With a non-empty filter only
// routes whose path, target or helper name contains it are listed.
//
//	╭────────┬──────────────────┬──────────────┬───────────╮
//	│ Method │ Path             │ Target       │ Helper    │
//	├────────┼──────────────────┼──────────────┼───────────┤
//	│ GET    │ /posts.:format?  │ posts#index  │ posts     │
//	│ GET    │ /posts/:id       │ posts#show   │ post      │
//	╰────────┴──────────────────┴──────────────┴───────────╯
func (a *App) PrintRoutes(w io.Writer, filter string) int {
	var routes []*routing.Entry
	for _, e := range a.router.Routes() {
		if filter == "" ||
			strings.Contains(e.Template, filter) ||
			strings.Contains(e.Target(), filter) ||
			strings.Contains(e.HelperName, filter) {
			routes = append(routes, e)
		}
	}
	if len(routes) == 0 {
		_, _ = fmt.Fprintln(w, "No routes match")
		return 0
	}

	a.renderRoutesTable(a.colorWriter(w), routes, 120, terminalWidth(w))

	return len(routes)
}

// terminalWidth returns the width of the terminal w writes to, or 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}

	return width
}

func (a *App) renderRoutesTable(w io.Writer, routes []*routing.Entry, width, termWidth int) {
	colors := a.useColors()

	headers := []string{"Method", "Path", "Target", "Helper"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	rows := make([][]string, 0, len(routes))
	for _, e := range routes {
		method := e.Method
		if style, ok := methodStyles[method]; ok && colors {
			method = style.Render(method)
		}
		helper := e.HelperName
		if helper == "" {
			helper = "-"
		}
		cells := []string{e.Method, e.Template, e.Target(), helper}
		for i, c := range cells {
			widths[i] = max(widths[i], len(c))
		}
		cells[0] = method
		rows = append(rows, cells)
	}

	// borders, separators and one cell of padding each side
	minWidth := 2 + len(headers) - 1 + 2*len(headers)
	for _, n := range widths {
		minWidth += n
	}
	tableWidth := max(minWidth, width)
	if termWidth > 0 {
		tableWidth = min(tableWidth, termWidth)
	}
	tableWidth = max(60, tableWidth)

	border := lipgloss.NewStyle()
	if colors {
		border = border.Foreground(lipgloss.Color("240"))
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow && colors {
				style = style.Bold(true).Foreground(lipgloss.Color("230"))
			}
			return style
		}).
		Headers(headers...).
		Rows(rows...).
		Width(tableWidth)

	_, _ = fmt.Fprintln(w, t.Render())
}
