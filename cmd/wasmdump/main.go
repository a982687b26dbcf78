package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/birdhello/wasm3"
	"github.com/birdhello/wasm3/crosscheck"
	"github.com/birdhello/wasm3/wasm"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to module wasm file")
		names       = flag.Bool("names", false, "List every function with its names and signature")
		verify      = flag.Bool("verify", false, "Cross-check the decoded module against wazero")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: wasmdump -wasm <file.wasm> [-names] [-verify] [-v]")
		fmt.Fprintln(os.Stderr, "       wasmdump -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	log := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log = l
	}
	defer func() { _ = log.Sync() }()

	env := wasm.NewEnvironmentWithConfig(&wasm.Config{Logger: log})
	m, err := wasm3.DecodeFileWithEnv(env, *wasmFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, m); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	st := plainStyles()
	if term.IsTerminal(int(os.Stdout.Fd())) {
		st = colorStyles()
	}

	summarize(os.Stdout, st, *wasmFile, m)
	if *names {
		listFunctions(os.Stdout, st, m)
	}
	if *verify {
		ok, err := verifyModule(context.Background(), os.Stdout, st, m, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			os.Exit(2)
		}
	}
}

type styles struct {
	title lipgloss.Style
	fn    lipgloss.Style
	typ   lipgloss.Style
	good  lipgloss.Style
	bad   lipgloss.Style
}

func plainStyles() styles {
	plain := lipgloss.NewStyle()
	return styles{title: plain, fn: plain, typ: plain, good: plain, bad: plain}
}

func colorStyles() styles {
	return styles{
		title: titleStyle,
		fn:    funcStyle,
		typ:   typeStyle,
		good:  resultStyle,
		bad:   errorStyle,
	}
}

func summarize(w io.Writer, st styles, filename string, m *wasm.Module) {
	fmt.Fprintf(w, "%s %s\n", st.title.Render("Module"), filename)
	fmt.Fprintf(w, "Size: %d bytes\n", len(m.Bytes()))
	fmt.Fprintf(w, "Types: %d\n", m.NumTypes())
	fmt.Fprintf(w, "Functions: %d (%d imported)\n", m.NumFunctions(), m.NumFuncImports)
	fmt.Fprintf(w, "Tables: %d\n", len(m.Tables))
	if mem := m.Memory; mem != nil {
		fmt.Fprintf(w, "Memory: %s", formatLimits(mem.Limits))
		if mem.Imported {
			fmt.Fprintf(w, " imported from %s", mem.Import)
		}
		if mem.ExportName != "" {
			fmt.Fprintf(w, " exported as %q", mem.ExportName)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "Memory: none")
	}
	fmt.Fprintf(w, "Globals: %d\n", len(m.Globals))
	fmt.Fprintf(w, "Element segments: %d\n", m.Elements.Count)
	fmt.Fprintf(w, "Data segments: %d\n", len(m.DataSegments))
	if m.Start != nil {
		fmt.Fprintf(w, "Start: %s\n", st.fn.Render(functionLabel(m, *m.Start)))
	}
}

func listFunctions(w io.Writer, st styles, m *wasm.Module) {
	fmt.Fprintf(w, "\nFunctions:\n")
	for i := range m.Functions {
		idx := uint32(i)
		f := m.Function(idx)
		line := fmt.Sprintf("  %4d %s %s", idx, st.fn.Render(functionLabel(m, idx)), st.typ.Render(m.Signature(idx).String()))
		if f.IsImport() {
			line += " import " + f.Import.String()
		} else {
			line += fmt.Sprintf(" %d bytes", f.Code.Len())
		}
		if len(f.Names) > 1 {
			line += " aka " + strings.Join(f.Names[1:], ", ")
		}
		fmt.Fprintln(w, line)
	}
}

func verifyModule(ctx context.Context, w io.Writer, st styles, m *wasm.Module, log *zap.Logger) (bool, error) {
	report, err := crosscheck.RunWithConfig(ctx, m, m.Bytes(), &crosscheck.Config{Logger: log})
	if err != nil {
		return false, err
	}
	fmt.Fprintf(w, "\nCross-check: %d imported, %d exported functions\n", report.ImportedFuncs, report.ExportedFuncs)
	if report.OK() {
		fmt.Fprintln(w, st.good.Render("decoder and wazero agree"))
		return true, nil
	}
	for _, mm := range report.Mismatches {
		fmt.Fprintln(w, st.bad.Render("  "+mm.String()))
	}
	return false, nil
}

func functionLabel(m *wasm.Module, idx uint32) string {
	if f := m.Function(idx); f != nil && f.Name() != "" {
		return f.Name()
	}
	return fmt.Sprintf("$f%d", idx)
}

func formatLimits(l wasm.Limits) string {
	if l.Max == nil {
		return fmt.Sprintf("min %d", l.Min)
	}
	return fmt.Sprintf("min %d max %d", l.Min, *l.Max)
}
