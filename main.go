package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ngc6302h/neomips/asm"
	"github.com/ngc6302h/neomips/builder"
	"github.com/ngc6302h/neomips/config"
	"github.com/ngc6302h/neomips/encoder"
	"github.com/ngc6302h/neomips/parser"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)

var (
	flagConfig     string
	flagKeepPseudo bool
	flagListing    bool
	flagSymbols    bool
	flagOutput     string
)

var rootCmd = &cobra.Command{
	Use:   "neomips-asm",
	Short: "MIPS32 two-pass assembler",
	Long:  "neomips-asm translates MIPS32 assembly source into per-segment machine code images.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("neomips-asm %s (%s)\n", Version, Commit)
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble <file.s>",
	Short: "Assemble a source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssemble(cmd, args[0])
	},
}

func init() {
	assembleCmd.Flags().StringVar(&flagConfig, "config", "", "Path to a TOML config file")
	assembleCmd.Flags().BoolVar(&flagKeepPseudo, "keep-pseudo", false, "Disable pseudo-instruction expansion")
	assembleCmd.Flags().BoolVar(&flagListing, "listing", false, "Print an address/encoding listing")
	assembleCmd.Flags().BoolVar(&flagSymbols, "symbols", false, "Print the symbol table")
	assembleCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write flat segment images to <prefix>.<segment>")

	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runAssemble is the external driver: it performs the file I/O and
// diagnostic rendering around the in-memory assembler core.
func runAssemble(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagKeepPseudo {
		cfg.Assembler.KeepPseudoinstructions = true
	}

	source, err := os.ReadFile(path) // #nosec G304 -- path comes from the CLI user
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	b := builder.New()
	b.KeepPseudoinstructions = cfg.Assembler.KeepPseudoinstructions

	tokens, errs := asm.Tokenize(string(source), b)
	if errs.HasErrors() {
		reportErrors(cmd, path, errs, cfg.Assembler.BatchErrors)
		return fmt.Errorf("%d error(s)", len(errs.Errors))
	}

	text, data, ktext, kdata := cfg.SegmentBases()
	assembler := asm.NewAssembler(asm.Options{
		TextBase:  text,
		DataBase:  data,
		KTextBase: ktext,
		KDataBase: kdata,
	})

	program, err := assembler.Assemble(tokens)
	if err != nil {
		cmd.PrintErrf("%s: %v\n", path, err)
		return fmt.Errorf("assembly failed")
	}

	if flagListing {
		printListing(cmd, program, cfg)
	}
	if flagSymbols {
		printSymbols(cmd, program)
	}
	if flagOutput != "" {
		if err := writeImages(program, flagOutput); err != nil {
			return err
		}
	}

	return nil
}

func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

func reportErrors(cmd *cobra.Command, path string, errs *parser.ErrorList, batch bool) {
	for i, e := range errs.Errors {
		if !batch && i > 0 {
			break
		}
		cmd.PrintErrf("%s:%s\n", path, e.Error())
	}
}

func printListing(cmd *cobra.Command, program *asm.Program, cfg *config.Config) {
	enc := encoder.New(program.Symbols)
	numFmt := "0x%08X  "
	if cfg.Listing.NumberFormat == "dec" {
		numFmt = "%10d  "
	}
	for i := range program.Tokens {
		tok := &program.Tokens[i]
		if tok.Kind != parser.TokenInstruction && tok.Kind != parser.TokenPseudo {
			continue
		}
		line := ""
		if cfg.Listing.ShowAddresses {
			line += fmt.Sprintf(numFmt, tok.Address)
		}
		if cfg.Listing.ShowEncoding {
			if word, err := enc.Encode(tok); err == nil {
				line += fmt.Sprintf(numFmt, word)
			} else {
				line += strings.Repeat(" ", 12)
			}
		}
		cmd.Printf("%s%s\n", line, tok.Mnemonic)
	}
}

func printSymbols(cmd *cobra.Command, program *asm.Program) {
	for _, sym := range program.Symbols.All() {
		marker := " "
		if sym.Global {
			marker = "g"
		}
		cmd.Printf("0x%08X %s %s\n", sym.Value, marker, sym.Name)
	}
}

// writeImages dumps each non-empty segment image as a flat binary file.
func writeImages(program *asm.Program, prefix string) error {
	for _, id := range []asm.SegmentID{asm.SegText, asm.SegData, asm.SegKText, asm.SegKData} {
		image := program.Image(id)
		if len(image) == 0 {
			continue
		}
		name := fmt.Sprintf("%s.%s", prefix, id)
		if err := os.WriteFile(filepath.Clean(name), image, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
