package lexer

import (
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DefaultFileID is used when the input carries no .file directives at all.
const DefaultFileID = 1

// .file 1 "main.cpp"
// .file 1 "/work/dir" "main.cpp" md5 0x...
var fileDirective = regexp.MustCompile(`^\s*\.file\s+(\d+)\s+"([^"]*)"(?:\s+"([^"]*)")?`)

// FileTable maps .file ids to source paths, remembering encounter order.
type FileTable struct {
	paths map[int]string
	order []int
}

// NewFileTable returns an empty table.
func NewFileTable() *FileTable {
	return &FileTable{paths: make(map[int]string)}
}

func (ft *FileTable) add(id int, p string) {
	if _, seen := ft.paths[id]; !seen {
		ft.order = append(ft.order, id)
	}
	ft.paths[id] = p
}

// Path returns the source path recorded for id.
func (ft *FileTable) Path(id int) (string, bool) {
	if ft == nil {
		return "", false
	}
	p, ok := ft.paths[id]
	return p, ok
}

// IDs returns the recorded ids in encounter order.
func (ft *FileTable) IDs() []int {
	if ft == nil {
		return nil
	}
	out := make([]int, len(ft.order))
	copy(out, ft.order)
	return out
}

// Len is the number of distinct ids.
func (ft *FileTable) Len() int {
	if ft == nil {
		return 0
	}
	return len(ft.order)
}

// ScanDirectives builds the file table for raw and selects the main file id.
// When sourceFile is set, the first entry with the same base name wins;
// otherwise (or when nothing matches) the first id encountered is used, and
// DefaultFileID when there are no .file directives.
func ScanDirectives(raw string, sourceFile string) (*FileTable, int) {
	table := NewFileTable()
	for _, line := range strings.Split(raw, "\n") {
		m := fileDirective.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		p := m[2]
		if m[3] != "" {
			p = path.Join(m[2], m[3])
		}
		table.add(id, p)
	}
	return table, selectMain(table, sourceFile)
}

func selectMain(table *FileTable, sourceFile string) int {
	if sourceFile != "" {
		want := filepath.Base(sourceFile)
		for _, id := range table.order {
			if baseName(table.paths[id]) == want {
				return id
			}
		}
	}
	if len(table.order) > 0 {
		return table.order[0]
	}
	return DefaultFileID
}

// baseName handles both separators since the assembly may come from another host.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
