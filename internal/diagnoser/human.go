package diagnoser

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"rectify/internal/diag"
)

var (
	// error[E0599]: no method named `lenght` found
	// warning: unused variable: `x`
	headerPattern = regexp.MustCompile(`^(error|warning)(?:\[([A-Z]\d{4})\])?:\s*(.+)$`)
	// --> src/main.rs:4:7
	locationPattern = regexp.MustCompile(`^\s*-->\s*(.+?):(\d+):(\d+)\s*$`)
	// = help: consider importing this struct
	notePattern = regexp.MustCompile(`^\s*=\s*(note|help):\s*(.+)$`)
	// `#[warn(unused_imports)]` on by default
	lintPattern = regexp.MustCompile("#\\[(?:warn|deny|forbid)\\(([a-z_:]+)\\)\\]")
	// |     ^^^^^^ help: there is a method with a similar name
	caretPattern = regexp.MustCompile(`^\s*\|\s*(\^+)\s*(.*)$`)
	ansiPattern  = regexp.MustCompile(`\x1b\[[0-9;]*m`)

	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^error: could not compile`),
		regexp.MustCompile(`^(error|warning): aborting due to`),
		regexp.MustCompile(`^warning: .*\d+ warnings? emitted`),
		regexp.MustCompile(`^warning: build failed`),
	}
)

// ParseHuman reads the human-readable output of rustc or cargo, as saved
// from a terminal, and returns its diagnostics. Relative paths are joined to
// root. Diagnostics without a `-->` location are dropped.
func ParseHuman(r io.Reader, root string) ([]diag.Diagnostic, error) {
	p := humanParser{root: root}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	for sc.Scan() {
		p.line(ansiPattern.ReplaceAllString(strings.TrimRight(sc.Text(), "\r"), ""))
	}
	p.flush()
	return p.out, sc.Err()
}

type humanParser struct {
	root string
	out  []diag.Diagnostic

	open      bool
	level     diag.Severity
	code      string
	message   string
	loc       diag.Location
	hints     []string
	caretSeen bool
}

func (p *humanParser) line(line string) {
	for _, re := range noisePatterns {
		if re.MatchString(line) {
			p.flush()
			return
		}
	}
	if m := headerPattern.FindStringSubmatch(line); m != nil {
		p.flush()
		p.open = true
		p.level = diag.ParseSeverity(m[1])
		p.code = m[2]
		p.message = strings.TrimSpace(m[3])
		return
	}
	if !p.open {
		return
	}
	if m := locationPattern.FindStringSubmatch(line); m != nil {
		// первая стрелка указывает на основной спан
		if p.loc.File == "" {
			p.loc.File = resolve(p.root, m[1])
			p.loc.Line, _ = strconv.Atoi(m[2])
			p.loc.Column, _ = strconv.Atoi(m[3])
		}
		return
	}
	if m := caretPattern.FindStringSubmatch(line); m != nil {
		if !p.caretSeen && p.loc.File != "" {
			p.caretSeen = true
			p.loc.EndLine = p.loc.Line
			p.loc.EndColumn = p.loc.Column + len(m[1])
			if label := strings.TrimSpace(m[2]); label != "" {
				p.hints = append(p.hints, label)
			}
		}
		return
	}
	if m := notePattern.FindStringSubmatch(line); m != nil {
		if lint := lintPattern.FindStringSubmatch(m[2]); lint != nil && p.code == "" {
			p.code = lint[1]
			return
		}
		p.hints = append(p.hints, m[1]+": "+strings.TrimSpace(m[2]))
		return
	}
	if strings.TrimSpace(line) == "" {
		return
	}
	// "help: consider importing..." без знака равенства
	if strings.HasPrefix(line, "help: ") || strings.HasPrefix(line, "note: ") {
		p.hints = append(p.hints, strings.TrimSpace(line))
	}
}

func (p *humanParser) flush() {
	if p.open && p.loc.File != "" {
		p.out = append(p.out, diag.New(p.code, p.level, p.message, p.loc, p.hints...))
	}
	*p = humanParser{root: p.root, out: p.out}
}
