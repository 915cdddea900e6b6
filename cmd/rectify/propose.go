package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rectify/internal/astctx"
	"rectify/internal/diag"
)

var proposeCmd = &cobra.Command{
	Use:   "propose FILE --line L --col C --code CODE --message MSG",
	Short: "List the ranked proposals for one diagnostic without applying any",
	Args:  exactArgs(1),
	RunE:  runPropose,
}

var contextCmd = &cobra.Command{
	Use:   "context FILE --line L --col C",
	Short: "Show the syntax context rectify sees at a location",
	Args:  exactArgs(1),
	RunE:  runContext,
}

func init() {
	for _, c := range []*cobra.Command{proposeCmd, contextCmd} {
		c.Flags().Int("line", 0, "1-based line of the diagnostic")
		c.Flags().Int("col", 0, "1-based column of the diagnostic")
		c.Flags().Int("end-line", 0, "end line of the diagnostic span")
		c.Flags().Int("end-col", 0, "end column of the diagnostic span")
		c.Flags().String("code", "", "diagnostic code (E0599, unused_imports, method-missing, ...)")
		c.Flags().String("message", "", "diagnostic message")
		_ = c.MarkFlagRequired("line")
		_ = c.MarkFlagRequired("col")
	}
	proposeCmd.Flags().Bool("json", false, "print the proposals as JSON")
}

// diagnosticFromFlags builds the diagnostic described on the command line.
func diagnosticFromFlags(cmd *cobra.Command, path string) (diag.Diagnostic, error) {
	flags := cmd.Flags()
	line, _ := flags.GetInt("line")
	col, _ := flags.GetInt("col")
	endLine, _ := flags.GetInt("end-line")
	endCol, _ := flags.GetInt("end-col")
	code, _ := flags.GetString("code")
	msg, _ := flags.GetString("message")
	if line <= 0 || col <= 0 {
		return diag.Diagnostic{}, usageErrorf("--line and --col must be positive")
	}
	if endCol > 0 && endLine == 0 {
		endLine = line
	}
	loc := diag.Location{File: path, Line: line, Column: col, EndLine: endLine, EndColumn: endCol}
	return diag.New(code, diag.SevError, msg, loc), nil
}

func buildContext(cmd *cobra.Command, args []string) (*astctx.Context, error) {
	path, err := resolvePath(args[0])
	if err != nil {
		return nil, err
	}
	d, err := diagnosticFromFlags(cmd, path)
	if err != nil {
		return nil, err
	}
	return astctx.NewBuilder().Build(cmd.Context(), path, d)
}

type proposalPayload struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Strategy   string            `json:"strategy"`
	Original   string            `json:"original"`
	Corrected  string            `json:"corrected"`
	Confidence float64           `json:"confidence"`
	Safety     string            `json:"safety"`
	DocSource  string            `json:"doc_source,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func runPropose(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)
	c, err := buildContext(cmd, args)
	if err != nil {
		return err
	}
	dp, err := newDocs(ctx, cfg)
	if err != nil {
		return err
	}
	ps, err := newGenerator(cfg, dp, cmd.ErrOrStderr()).Generate(ctx, c, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		payload := make([]proposalPayload, 0, len(ps))
		for _, p := range ps {
			pp := proposalPayload{
				ID:         p.ID,
				Title:      p.Title(),
				Original:   p.Original,
				Corrected:  p.Corrected,
				Confidence: p.Confidence,
				Safety:     p.Safety.String(),
				DocSource:  p.DocSource,
				Metadata:   p.Metadata,
			}
			if p.Strategy != nil {
				pp.Strategy = p.Strategy.Kind().String()
			}
			payload = append(payload, pp)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	fmt.Fprintf(out, "%s %s\n", c.Diagnostic.Location, c.Diagnostic.Family())
	printProposals(out, ps)
	return nil
}

func runContext(cmd *cobra.Command, args []string) error {
	c, err := buildContext(cmd, args)
	if err != nil {
		return err
	}
	printContext(cmd.OutOrStdout(), c)
	return nil
}

func printContext(out io.Writer, c *astctx.Context) {
	fmt.Fprintf(out, "node:     %s %q\n", astctx.KindName(c.Node), c.Content.Text)
	fmt.Fprintf(out, "family:   %s\n", c.Diagnostic.Family())
	if fn := c.Scope.Function; fn != nil {
		sig := fn.Name
		if fn.IsMethod && fn.SelfType != "" {
			sig = fn.SelfType + "::" + sig
		}
		if fn.ReturnType != "" {
			sig += " -> " + fn.ReturnType
		}
		fmt.Fprintf(out, "function: %s\n", sig)
	}
	if len(c.Scope.Locals) > 0 {
		var locals []string
		for _, v := range c.Scope.Locals {
			s := v.Name
			if v.Mutable {
				s = "mut " + s
			}
			if v.Type != "" {
				s += ": " + v.Type
			}
			locals = append(locals, s)
		}
		fmt.Fprintf(out, "locals:   %s\n", strings.Join(locals, ", "))
	}
	if len(c.Scope.Types) > 0 {
		var types []string
		for _, t := range c.Scope.Types {
			types = append(types, t.Kind.String()+" "+t.Name)
		}
		fmt.Fprintf(out, "types:    %s\n", strings.Join(types, ", "))
	}
	if len(c.Scope.Imports) > 0 {
		fmt.Fprintf(out, "imports:  %d\n", len(c.Scope.Imports))
	}
}
