package dapbackend

import (
	"bufio"
	"bytes"
	"fmt"
	"go/scanner"
	"go/token"
	"os"
	"path/filepath"

	"github.com/vajrock/debugger-mcp/internal/debugger"
)

// Files resolves source paths on the local filesystem. Relative paths are
// taken relative to Root.
type Files struct {
	Root string
}

var _ debugger.FileResolver = Files{}

func (f Files) abs(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.Root, path)
	}
	return filepath.Abs(path)
}

func (f Files) Resolve(path string) (debugger.File, error) {
	abs, err := f.abs(path)
	if err != nil {
		return debugger.File{}, fmt.Errorf("%w: %s", debugger.ErrFileNotFound, path)
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return debugger.File{}, fmt.Errorf("%w: %s", debugger.ErrFileNotFound, path)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return debugger.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	n, err := lineCount(src)
	if err != nil {
		return debugger.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return debugger.File{Path: abs, Name: filepath.Base(abs), Lines: n}, nil
}

// CanPutBreakpointAt reports whether line (1-based) holds code: it exists,
// and a token other than a comment starts on it.
func (f Files) CanPutBreakpointAt(file debugger.File, line int) bool {
	if line < 1 {
		return false
	}
	src, err := os.ReadFile(file.Path)
	if err != nil {
		return false
	}
	if n, err := lineCount(src); err != nil || line > n {
		return false
	}
	return codeLines(file.Path, src)[line]
}

// codeLines returns the lines on which a token other than a comment starts.
// Scan errors are ignored so files that do not compile still classify.
func codeLines(path string, src []byte) map[int]bool {
	fset := token.NewFileSet()
	file := fset.AddFile(path, -1, len(src))
	var sc scanner.Scanner
	sc.Init(file, src, nil, 0)

	lines := make(map[int]bool)
	for {
		pos, tok, lit := sc.Scan()
		if tok == token.EOF {
			return lines
		}
		// Semicolons inserted at line ends are not code.
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		lines[file.Line(pos)] = true
	}
}

func lineCount(src []byte) (int, error) {
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		n++
	}
	return n, sc.Err()
}
