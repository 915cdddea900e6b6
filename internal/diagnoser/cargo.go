package diagnoser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"rectify/internal/diag"
	"rectify/internal/failure"
	"rectify/internal/trace"
)

// maxLine bounds one JSON message; rendered diagnostics of macro-heavy code
// get long.
const maxLine = 8 << 20

const waitDelay = 2 * time.Second

// Cargo runs `cargo check` in a project root and decodes its JSON messages.
type Cargo struct {
	Root    string
	Command string   // default "cargo"
	Args    []string // default check --message-format=json --all-targets
	Timeout time.Duration
	Env     []string
}

// NewCargo returns a Cargo for the project at root.
func NewCargo(root string) *Cargo {
	return &Cargo{Root: root}
}

func (c *Cargo) args() []string {
	if len(c.Args) > 0 {
		return c.Args
	}
	return []string{"check", "--message-format=json", "--all-targets"}
}

// Diagnostics implements Diagnoser.
func (c *Cargo) Diagnostics(ctx context.Context) ([]diag.Diagnostic, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	ctx, span := trace.Start(ctx, trace.ScopeFile, "cargo.check")
	defer span.End("")

	name := c.Command
	if name == "" {
		name = "cargo"
	}
	cmd := exec.CommandContext(ctx, name, c.args()...)
	cmd.Dir = c.Root
	cmd.Env = append(os.Environ(), c.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// rustc-потомки могут держать stdout после убийства cargo
	cmd.WaitDelay = waitDelay

	runErr := cmd.Run()
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, failure.New(failure.KindTimeout, component, "check", c.Root, err)
		}
		return nil, failure.Wrap(component, "check", c.Root, err)
	}
	ds, err := DecodeJSON(&stdout, c.Root)
	if err != nil {
		return nil, failure.New(failure.KindParse, component, "decode", c.Root, err)
	}
	if runErr != nil {
		var exit *exec.ExitError
		// cargo завершается с ненулевым кодом, если есть ошибки компиляции
		if !errors.As(runErr, &exit) || !hasError(ds) {
			return nil, failure.New(failure.KindIo, component, "check", c.Root,
				fmt.Errorf("%w: %s", runErr, lastLine(stderr.String())))
		}
	}
	span.WithExtra("diagnostics", fmt.Sprint(len(ds)))
	return ds, nil
}

// Scan implements Diagnoser. The whole project is checked and the result
// narrowed to path.
func (c *Cargo) Scan(ctx context.Context, path string) (diag.FileDiagnostics, error) {
	ds, err := c.Diagnostics(ctx)
	if err != nil {
		return diag.FileDiagnostics{}, err
	}
	return diag.Summarize(path, InFile(c.Root, canonicalPath(resolve(c.Root, path)), canonicalAll(ds)), time.Now()), nil
}

// ScanProject implements Diagnoser.
func (c *Cargo) ScanProject(ctx context.Context) (bool, error) {
	ds, err := c.Diagnostics(ctx)
	if err != nil {
		return false, err
	}
	return !hasError(ds), nil
}

func hasError(ds []diag.Diagnostic) bool {
	for _, d := range ds {
		if d.Level == diag.SevError {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func canonicalPath(p string) string {
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	return p
}

func canonicalAll(ds []diag.Diagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(ds))
	for i, d := range ds {
		d.Location.File = canonicalPath(d.Location.File)
		out[i] = d
	}
	return out
}

// Wire format of `cargo --message-format=json` and `rustc --error-format=json`.
type envelope struct {
	Reason  string          `json:"reason"`
	Message json.RawMessage `json:"message"`
}

type compilerMessage struct {
	Message  string            `json:"message"`
	Code     *compilerCode     `json:"code"`
	Level    string            `json:"level"`
	Spans    []compilerSpan    `json:"spans"`
	Children []compilerMessage `json:"children"`
	Rendered string            `json:"rendered"`
}

type compilerCode struct {
	Code string `json:"code"`
}

type compilerSpan struct {
	FileName             string  `json:"file_name"`
	LineStart            int     `json:"line_start"`
	LineEnd              int     `json:"line_end"`
	ColumnStart          int     `json:"column_start"`
	ColumnEnd            int     `json:"column_end"`
	IsPrimary            bool    `json:"is_primary"`
	Label                *string `json:"label"`
	SuggestedReplacement *string `json:"suggested_replacement"`
}

// DecodeJSON reads line-delimited compiler messages. Both the cargo envelope
// ({"reason":"compiler-message","message":{...}}) and bare rustc messages are
// accepted; other lines are skipped. Relative file names are joined to root.
// Messages without a primary span ("aborting due to...") are dropped.
func DecodeJSON(r io.Reader, root string) ([]diag.Diagnostic, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	var out []diag.Diagnostic
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return out, fmt.Errorf("line %q: %w", truncate(string(line), 80), err)
		}
		raw := json.RawMessage(line)
		switch {
		case env.Reason == "compiler-message":
			raw = env.Message
		case env.Reason != "":
			continue
		}
		var m compilerMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return out, fmt.Errorf("message: %w", err)
		}
		if d, ok := convert(m, root); ok {
			out = append(out, d)
		}
	}
	return out, sc.Err()
}

func convert(m compilerMessage, root string) (diag.Diagnostic, bool) {
	if m.Message == "" || m.Level == "" {
		return diag.Diagnostic{}, false
	}
	primary, ok := primarySpan(m.Spans)
	if !ok {
		return diag.Diagnostic{}, false
	}
	loc := diag.Location{
		File:      resolve(root, primary.FileName),
		Line:      primary.LineStart,
		Column:    primary.ColumnStart,
		EndLine:   primary.LineEnd,
		EndColumn: primary.ColumnEnd,
	}
	code := ""
	if m.Code != nil {
		code = m.Code.Code
	}
	return diag.New(code, diag.ParseSeverity(m.Level), m.Message, loc, hints(m)...), true
}

func primarySpan(spans []compilerSpan) (compilerSpan, bool) {
	for _, s := range spans {
		if s.IsPrimary {
			return s, true
		}
	}
	return compilerSpan{}, false
}

func hints(m compilerMessage) []string {
	var out []string
	for _, s := range m.Spans {
		if s.IsPrimary && s.Label != nil && *s.Label != "" {
			out = append(out, *s.Label)
		}
	}
	for _, ch := range m.Children {
		h := ch.Level + ": " + ch.Message
		for _, s := range ch.Spans {
			if s.SuggestedReplacement != nil && strings.TrimSpace(*s.SuggestedReplacement) != "" {
				h += " `" + strings.TrimSpace(*s.SuggestedReplacement) + "`"
				break
			}
		}
		out = append(out, h)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
