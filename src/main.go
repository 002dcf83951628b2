package main

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
	"github.com/spf13/cobra"

	"minicc/src/codegen"
	"minicc/src/diag"
	"minicc/src/frontend"
	"minicc/src/sema"
	"minicc/src/util"
)

const version = "0.1.0"

var log = logrus.New()

type options struct {
	output  string
	tokens  bool
	verbose bool
	showVer bool
}

func init() {
	log.SetFormatter(&easy.Formatter{
		LogFormat: "%lvl%: %msg%\n",
	})
	log.SetOutput(os.Stderr)
}

// run executes the full pipeline: read source, lex, parse, type-check and,
// if no diagnostics were raised, generate LLVM IR and write it to disk.
func run(src string, opt options) error {
	if opt.showVer {
		fmt.Printf("mccomp version %s\n", version)
		return nil
	}

	text, err := util.ReadSource(src)
	if err != nil {
		return err
	}

	if opt.tokens {
		toks, lexErr := frontend.Lex(text)
		if lexErr != nil {
			return lexErr
		}
		for _, t := range toks {
			fmt.Println(t.String())
		}
		return nil
	}

	sink := diag.NewSink()
	log.WithField("stage", "parse").Trace("parsing source")
	prog := frontend.Parse(text, sink)

	if !sink.HasErrors() {
		log.WithField("stage", "check").Trace("type-checking")
		sema.Check(prog, sink)
	}

	if sink.HasErrors() {
		for _, d := range sink.Diagnostics() {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		return fmt.Errorf("compilation failed with %d error(s)", len(sink.Diagnostics()))
	}

	if opt.verbose {
		prog.Print(0)
	}

	log.WithField("stage", "codegen").Trace("generating LLVM IR")
	ir := codegen.Gen(prog, moduleNameFromPath(src))

	outPath := opt.output
	if outPath == "" {
		outPath = "output.ll"
	}
	return util.WriteOutput(outPath, ir)
}

func moduleNameFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			base = path[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

func newRootCmd() *cobra.Command {
	var opt options

	cmd := &cobra.Command{
		Use:   "mccomp <source.c>",
		Short: "Compile a MiniC source file to LLVM IR",
		Long: heredoc.Doc(`
			mccomp compiles a single MiniC source file into textual LLVM IR.

			A MiniC program is a small statically-typed subset of C: function
			definitions, global and local variables, arrays of up to three
			dimensions, and the usual arithmetic, relational and logical
			operators over bool, int and float.

			On success, IR is written to output.ll (or the path given with
			-o). On failure, diagnostics are printed to stderr and mccomp
			exits with a non-zero status.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opt.showVer {
				return run("", opt)
			}
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one source file")
			}
			if opt.verbose {
				log.SetLevel(logrus.TraceLevel)
			}
			return run(args[0], opt)
		},
	}

	cmd.Flags().StringVarP(&opt.output, "output", "o", "", "output path for generated IR (default output.ll)")
	cmd.Flags().BoolVarP(&opt.tokens, "tokens", "t", false, "print the token stream and exit")
	cmd.Flags().BoolVarP(&opt.verbose, "verbose", "", false, "print the decorated syntax tree and trace pipeline stages")
	cmd.Flags().BoolVarP(&opt.showVer, "version", "v", false, "print mccomp's version and exit")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
