// Package qiime builds the command lines the generated scripts invoke.
// A command is a structured value (program words plus ordered flag and
// positional tokens) with a single serializer, so stages compose
// commands without string concatenation.
package qiime

import (
	"fmt"
	"strings"
)

// Command is one external command line under construction.
type Command struct {
	program []string
	tokens  []token
}

type token struct {
	flag  string
	value string
}

// New starts a command from its program words, e.g.
// New("qiime", "diversity", "alpha").
func New(program ...string) *Command {
	return &Command{program: program}
}

// Flag appends a flag/value pair. An empty value emits the flag alone.
func (c *Command) Flag(name, value string) *Command {
	c.tokens = append(c.tokens, token{flag: name, value: value})
	return c
}

// Arg appends positional arguments.
func (c *Command) Arg(values ...string) *Command {
	for _, v := range values {
		c.tokens = append(c.tokens, token{value: v})
	}
	return c
}

// String serializes the command as a single shell line.
func (c *Command) String() string {
	parts := append([]string(nil), c.program...)
	for _, t := range c.tokens {
		if t.flag != "" {
			parts = append(parts, t.flag)
		}
		if t.value != "" {
			parts = append(parts, t.value)
		}
	}
	return strings.Join(parts, " ")
}

// Quote wraps a value in double quotes for flags whose values may
// contain spaces (metadata column names).
func Quote(value string) string {
	return fmt.Sprintf("%q", value)
}

// Import returns the command sequence importing a feature table or
// other input into a QIIME2 artefact. Non-biom feature tables are
// first converted with biom.
func Import(inputPath, outputPath, typ string) []*Command {
	if strings.HasPrefix(typ, "FeatureTable") {
		if !strings.HasSuffix(inputPath, ".biom") {
			biom := stripExt(inputPath) + ".biom"
			return []*Command{
				New("biom", "convert").
					Flag("-i", inputPath).
					Flag("-o", biom).
					Flag("--table-type", Quote("OTU table")).
					Flag("--to-hdf5", ""),
				New("qiime", "tools", "import").
					Flag("--input-path", biom).
					Flag("--output-path", outputPath).
					Flag("--type", Quote("FeatureTable[Frequency]")),
			}
		}
		return []*Command{
			New("qiime", "tools", "import").
				Flag("--input-path", inputPath).
				Flag("--output-path", outputPath).
				Flag("--type", Quote("FeatureTable[Frequency]")),
		}
	}
	return []*Command{
		New("qiime", "tools", "import").
			Flag("--input-path", inputPath).
			Flag("--output-path", outputPath).
			Flag("--type", Quote(typ)),
	}
}

// Export returns the command sequence exporting a QIIME2 artefact back
// to a flat file, moving the unpacked payload over the requested
// output and removing the unpack directory.
func Export(inputPath, outputPath, typ string) []*Command {
	unpack := stripExt(outputPath)
	cmds := []*Command{
		New("qiime", "tools", "export").
			Flag("--input-path", inputPath).
			Flag("--output-path", unpack),
	}
	if strings.HasPrefix(typ, "FeatureTable") && !strings.HasSuffix(outputPath, ".biom") {
		biom := unpack + ".biom"
		return append(cmds,
			New("mv").Arg(unpack+"/*.biom", biom),
			New("biom", "convert").
				Flag("-i", biom).
				Flag("-o", outputPath+".tmp").
				Flag("--to-tsv", ""),
			New("tail", "-n", "+2").Arg(outputPath+".tmp", ">", outputPath),
			New("rm", "-rf").Arg(unpack, outputPath+".tmp"),
		)
	}
	payload := "*.tsv"
	switch {
	case strings.Contains(typ, "Phylogeny"):
		payload = "*.nwk"
	case strings.HasPrefix(typ, "FeatureTable"):
		payload = "*.biom"
	}
	cmds = append(cmds,
		New("mv").Arg(unpack+"/"+payload, outputPath),
		New("rm", "-rf").Arg(unpack),
	)
	return cmds
}

func stripExt(path string) string {
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		return path[:i]
	}
	return path
}
