package ast

import (
	"fmt"
	"sort"

	"github.com/rivo/uniseg"
)

// FileInfo contains information about the contents of a source file,
// used to compute details about positions in the file.
type FileInfo struct {
	// The name of the source file.
	name string
	// The raw contents of the source file.
	data []byte
	// The offsets for each line in the file. The value is the zero-based
	// byte offset for a given line. The line is given by its index. So the
	// value at index 0 is the offset for the first line (which is always
	// zero). The value at index 1 is the offset at which the second line
	// begins. Etc.
	lines []int
}

// NewFileInfo creates a new instance for the given file.
func NewFileInfo(filename string, contents []byte) *FileInfo {
	return &FileInfo{
		name:  filename,
		data:  contents,
		lines: []int{0},
	}
}

// Name returns the name of the source file.
func (f *FileInfo) Name() string {
	return f.name
}

// AddLine records the offset of a line break, so that the lexer can
// report line numbers as it scans. The given offset is the zero-based
// byte offset of the newline character itself; the next line begins at
// offset+1.
func (f *FileInfo) AddLine(offset int) {
	if offset < 0 {
		panic(fmt.Sprintf("invalid offset: %d must not be negative", offset))
	}
	if offset >= len(f.data) {
		panic(fmt.Sprintf("invalid offset: %d is greater than file size %d", offset, len(f.data)))
	}
	if curr := len(f.lines); curr > 0 && f.lines[curr-1] > offset {
		panic(fmt.Sprintf("invalid offset: %d is not greater than previously observed line offset %d", offset, f.lines[curr-1]))
	}
	f.lines = append(f.lines, offset+1)
}

// SourcePos returns the position (line and column) of the given byte
// offset. Columns are one-based counts of grapheme clusters, so that a
// position lands on what a reader would consider one character even for
// combining marks and emoji.
func (f *FileInfo) SourcePos(offset int) SourcePos {
	if offset < 0 {
		offset = 0
	}
	if offset > len(f.data) {
		offset = len(f.data)
	}
	lineNumber := sort.Search(len(f.lines), func(n int) bool {
		return f.lines[n] > offset
	})
	lineStart := f.lines[lineNumber-1]
	col := uniseg.GraphemeClusterCount(string(f.data[lineStart:offset])) + 1
	return SourcePos{
		Filename: f.name,
		Line:     lineNumber,
		Col:      col,
		Offset:   offset,
	}
}

// SourcePos identifies a location in a source file.
type SourcePos struct {
	Filename  string
	Line, Col int
	Offset    int
}

func (pos SourcePos) String() string {
	if pos.Line <= 0 || pos.Col <= 0 {
		return pos.Filename
	}
	if pos.Filename == "" {
		return fmt.Sprintf("%d:%d", pos.Line, pos.Col)
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename, pos.Line, pos.Col)
}

// UnknownPos is a placeholder position when only the source file name
// is known.
func UnknownPos(filename string) SourcePos {
	return SourcePos{Filename: filename}
}
