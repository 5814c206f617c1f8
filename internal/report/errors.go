package report

// Kind identifies one of the error categories from spec §7. Callers use
// errors.As against *Error to branch on Kind without string matching.
type Kind int

const (
	_ Kind = iota
	FormatInvalid
	DNAInvalid
	PathMissing
	PathEscape
	RemapCollision
	ConcurrentOp
	IO
)

func (k Kind) String() string {
	switch k {
	case FormatInvalid:
		return "format-invalid"
	case DNAInvalid:
		return "dna-invalid"
	case PathMissing:
		return "path-missing"
	case PathEscape:
		return "path-escape"
	case RemapCollision:
		return "remap-collision"
	case ConcurrentOp:
		return "concurrent-op"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the spec's error-kind taxonomy.
// format-invalid and dna-invalid abort the current container; the rest
// are typically reported via a Sink and skipped (see each package's
// propagation rules).
type Error struct {
	Kind    Kind
	Path    string // file or reference path the error concerns, if any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Kind.String() + ": " + e.Wrapped.Error()
	}
	return e.Kind.String() + ": " + e.Path + ": " + e.Wrapped.Error()
}

func (e *Error) Unwrap() error { return e.Wrapped }

func New(kind Kind, path string, wrapped error) *Error {
	return &Error{Kind: kind, Path: path, Wrapped: wrapped}
}
