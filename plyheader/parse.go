package plyheader

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotPLY        = errors.New("not a ply file")
	ErrNoElement     = errors.New("property declared before any element")
	ErrElementSize   = errors.New("invalid element size")
	ErrMalformedLine = errors.New("malformed header line")
)

// Parse reads a header from the start of r. When r is seekable it is rewound
// first. Reading stops right after the end_header line; if r is an
// io.ByteReader nothing past that line is consumed, so the body can be read
// from r afterwards.
func Parse(r io.Reader) (*Header, error) {
	if s, ok := r.(io.Seeker); ok {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "rewinding ply stream")
		}
	}
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}

	first, err := readLine(br)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "reading ply magic")
	}
	if !strings.HasPrefix(first, Magic) {
		return nil, errors.Wrapf(ErrNotPLY, "first line %q", first)
	}

	h := New("")
	var current *Element
	var currentName string
	for lineNo := 2; ; lineNo++ {
		line, err := readLine(br)
		if err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "reading header line %d", lineNo)
		}
		fields := strings.Fields(line)
		if len(fields) > 0 {
			done, perr := h.apply(fields, &current, &currentName)
			if perr != nil {
				return nil, errors.Wrapf(perr, "line %d %q", lineNo, line)
			}
			if done {
				return h, nil
			}
		}
		if err == io.EOF {
			// a missing end_header is tolerated
			return h, nil
		}
	}
}

// ParseString parses header text.
func ParseString(text string) (*Header, error) {
	return Parse(strings.NewReader(text))
}

func (h *Header) apply(fields []string, current **Element, currentName *string) (bool, error) {
	key, rest := fields[0], fields[1:]
	switch key {
	case "format":
		h.Format = strings.Join(rest, " ")

	case "comment":
		h.Comments = append(h.Comments, strings.Join(rest, " "))

	case "element":
		if len(rest) != 2 {
			return false, errors.Wrap(ErrMalformedLine, "element needs a name and a size")
		}
		size, err := strconv.Atoi(rest[1])
		if err != nil || size < 0 {
			return false, errors.Wrapf(ErrElementSize, "%q", rest[1])
		}
		*current = h.AddElement(rest[0], size)
		*currentName = rest[0]

	case "property":
		if *current == nil {
			return false, ErrNoElement
		}
		var p Property
		switch {
		case len(rest) == 2 && rest[0] != ListToken:
			p = Scalar(rest[0], rest[1])
		case len(rest) == 4 && rest[0] == ListToken:
			p = List(rest[1], rest[2], rest[3])
		default:
			return false, errors.Wrapf(ErrMalformedLine, "property of element %s", *currentName)
		}
		(*current).Properties = append((*current).Properties, p)

	case EndHeader:
		return true, nil
	}
	return false, nil
}

// readLine returns the next line without its terminator. At end of input it
// returns what was read along with io.EOF.
func readLine(br io.ByteReader) (string, error) {
	var sb strings.Builder
	for {
		c, err := br.ReadByte()
		if err != nil {
			return strings.TrimSuffix(sb.String(), "\r"), err
		}
		if c == '\n' {
			return strings.TrimSuffix(sb.String(), "\r"), nil
		}
		sb.WriteByte(c)
	}
}

// byteReader reads one byte at a time so no input past the header is
// buffered away from the caller.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(b.r, b.buf[:])
	return b.buf[0], err
}
