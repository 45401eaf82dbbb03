// Command sample writes the built-in sample catalog in the import layout,
// ready to be edited and imported again.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/tabular"
)

var (
	formatFlag = flag.String("format", "csv", "Output format: csv or xlsx")
	outFlag    = flag.String("o", "", "Output file (default stdout; required for xlsx)")
)

func main() {
	flag.Parse()
	if err := run(*formatFlag, *outFlag, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "sample: %v\n", err)
		os.Exit(1)
	}
}

func run(format, out string, stdout io.Writer) error {
	var write func(io.Writer, []project.Project) error
	switch tabular.Format(format) {
	case tabular.FormatCSV:
		write = tabular.WriteCSV
	case tabular.FormatXLSX:
		if out == "" {
			return fmt.Errorf("-o is required for xlsx output")
		}
		write = tabular.WriteXLSX
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if out == "" {
		return write(stdout, project.Samples())
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := write(f, project.Samples()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
