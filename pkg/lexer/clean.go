package lexer

import (
	"path"
	"strconv"
	"strings"

	"asmscope/pkg/lang"
)

// Options are resolved once per run by the caller.
type Options struct {
	// StripUnderscore removes the leading underscore object formats such as
	// Mach-O put on every global symbol.
	StripUnderscore bool
	Language        lang.Language
}

// cleaner is the per-run state of the cleaning pass. It is owned by a single
// Clean call and discarded afterwards.
type cleaner struct {
	mainIDs map[int]bool
	rust    bool
	norm    normalizer

	activeFile    int
	hasActiveFile bool
	sourceLine    int // 0 = unknown
	validSection  bool
	prevValid     bool
	sections      []sectionGate
	inUserBlock   bool
	pendingLabel  string
	hasPending    bool

	out     []string
	lineMap LineMap
}

// sectionGate is the gate state saved by .pushsection.
type sectionGate struct {
	valid, prev bool
}

// Clean filters raw compiler assembly down to the user's own code. It returns
// the cleaned (still mangled) text and the output-line to source-line map.
// Clean never fails; unrecognized input is treated as instructions.
func Clean(raw string, table *FileTable, mainID int, opts Options) (string, LineMap) {
	c := &cleaner{
		mainIDs:      mainAliases(table, mainID),
		rust:         opts.Language == lang.Rust,
		norm:         normalizer{stripUnderscore: opts.StripUnderscore},
		validSection: true,
		prevValid:    true,
		inUserBlock:  true,
		lineMap:      make(LineMap),
	}
	for _, line := range strings.Split(raw, "\n") {
		c.feed(strings.TrimRight(line, "\r"))
	}
	return strings.Join(c.out, "\n"), c.lineMap
}

// mainAliases returns the ids that name the main file. Compilers sometimes
// register the same file twice (DWARF 5 emits it as file 0 and file 1).
func mainAliases(table *FileTable, mainID int) map[int]bool {
	ids := map[int]bool{mainID: true}
	mainPath, ok := table.Path(mainID)
	if !ok || mainPath == "" {
		return ids
	}
	// DWARF 5 file 0 carries the compilation directory; other entries may be
	// relative to it.
	var compDir string
	if p, ok := table.Path(0); ok && path.IsAbs(p) {
		compDir = path.Dir(p)
	}
	want := resolvePath(mainPath, compDir)
	for _, id := range table.IDs() {
		if p, _ := table.Path(id); p != "" && resolvePath(p, compDir) == want {
			ids[id] = true
		}
	}
	return ids
}

func resolvePath(p, compDir string) string {
	if compDir != "" && !path.IsAbs(p) {
		p = path.Join(compDir, p)
	}
	return path.Clean(p)
}

func (c *cleaner) feed(line string) {
	// 1. section gate
	if c.sectionChange(line) {
		return
	}
	if !c.validSection {
		return
	}

	// 2. location directives
	if m := locDirective.FindStringSubmatch(line); m != nil {
		c.updateLocation(m[1], m[2])
		return
	}

	// 3. block gate
	if m := labelLine.FindStringSubmatch(line); m != nil {
		c.label(m[1])
		return
	}
	if !c.inUserBlock {
		return
	}

	// 4. file identity gate
	if c.hasActiveFile && !c.mainIDs[c.activeFile] {
		return
	}

	// 5. instruction and directive gate
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || isComment(trimmed) || cetNoop.MatchString(line) {
		return
	}
	if strings.HasPrefix(trimmed, ".") && !dataDirective.MatchString(line) {
		return
	}

	c.commit(line)
}

// sectionChange updates the section gate and reports whether line was a
// section directive.
func (c *cleaner) sectionChange(line string) bool {
	if previousSection.MatchString(line) {
		c.validSection, c.prevValid = c.prevValid, c.validSection
		return true
	}
	if popSection.MatchString(line) {
		// an unbalanced pop leaves the gate as it is
		if n := len(c.sections); n > 0 {
			top := c.sections[n-1]
			c.sections = c.sections[:n-1]
			c.validSection, c.prevValid = top.valid, top.prev
		}
		return true
	}
	if m := sectionDirective.FindStringSubmatch(line); m != nil {
		if m[1] == "pushsection" {
			c.sections = append(c.sections, sectionGate{valid: c.validSection, prev: c.prevValid})
		}
		c.enterSection(strings.Trim(m[2], `"`), m[3])
		return true
	}
	if m := bareSection.FindStringSubmatch(line); m != nil {
		c.enterSection("."+m[1], "")
		return true
	}
	return false
}

func (c *cleaner) enterSection(name, sub string) {
	c.prevValid = c.validSection
	// text, constant and data sections all stay open so user-visible
	// constants survive; only debug and metadata sections are skipped
	c.validSection = !skipSection.MatchString(name) && !skipSection.MatchString(sub)
}

func (c *cleaner) updateLocation(fileField, lineField string) {
	id, err := strconv.Atoi(fileField)
	if err != nil {
		return
	}
	src, err := strconv.Atoi(lineField)
	if err != nil {
		return
	}
	c.activeFile = id
	c.hasActiveFile = true
	// line 0 marks compiler-generated code with no source position
	c.sourceLine = src
}

func (c *cleaner) label(name string) {
	if isNoiseLabel(name) {
		return
	}
	if isSystemSymbol(name, c.rust) {
		c.inUserBlock = false
		c.hasPending = false
		c.pendingLabel = ""
		return
	}
	c.inUserBlock = true
	c.pendingLabel = name
	c.hasPending = true
}

func (c *cleaner) commit(line string) {
	if c.hasPending {
		if len(c.out) > 0 {
			c.out = append(c.out, "")
		}
		c.out = append(c.out, c.norm.label(c.pendingLabel))
		c.hasPending = false
		c.pendingLabel = ""
	}
	c.out = append(c.out, c.norm.instruction(line))
	if c.hasActiveFile && c.sourceLine > 0 && c.mainIDs[c.activeFile] {
		c.lineMap[len(c.out)-1] = c.sourceLine
	}
}
