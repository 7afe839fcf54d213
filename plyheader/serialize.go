package plyheader

import (
	"io"
	"strconv"
	"strings"
)

// Lines renders the header one line per entry, from "ply" to "end_header".
func (h *Header) Lines() []string {
	lines := []string{Magic, "format " + h.Format}
	for _, c := range h.Comments {
		lines = append(lines, "comment "+c)
	}
	if h.Elements != nil {
		for _, kv := range h.Elements.Order {
			lines = append(lines, "element "+kv.Key+" "+strconv.Itoa(kv.Value.Size))
			for _, p := range kv.Value.Properties {
				lines = append(lines, "property "+strings.Join(p.Tokens(), " "))
			}
		}
	}
	return append(lines, EndHeader)
}

// String is the header text; every line, end_header included, ends in "\n".
func (h *Header) String() string {
	return strings.Join(h.Lines(), "\n") + "\n"
}

func (h *Header) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, h.String())
	return int64(n), err
}
