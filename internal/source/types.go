package source

// FileID identifies a source file in the front end's file table. The memory
// core never loads file contents; it only threads IDs through spans so that
// diagnostics can be mapped back to user code.
type FileID uint32

// NoFileID marks the absence of a file reference.
const NoFileID FileID = 0

// IsValid reports whether the ID refers to a known file.
func (id FileID) IsValid() bool { return id != NoFileID }

// LineCol is a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
