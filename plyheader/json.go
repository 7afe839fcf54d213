package plyheader

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

type jsonElement struct {
	Size       int        `json:"size"`
	Properties [][]string `json:"properties"`
}

type jsonHeader struct {
	Format   string          `json:"format"`
	Comments []string        `json:"comments"`
	Elements json.RawMessage `json:"elements"`
}

func (h *Header) MarshalJSON() ([]byte, error) {
	els, err := h.ElementsJSON()
	if err != nil {
		return nil, err
	}
	comments := h.Comments
	if comments == nil {
		comments = []string{}
	}
	return json.Marshal(jsonHeader{Format: h.Format, Comments: comments, Elements: els})
}

func (h *Header) UnmarshalJSON(data []byte) error {
	var jh jsonHeader
	if err := json.Unmarshal(data, &jh); err != nil {
		return err
	}
	*h = *New(jh.Format)
	if jh.Comments != nil {
		h.Comments = jh.Comments
	}
	if len(jh.Elements) == 0 {
		return nil
	}
	return h.SetElementsJSON(jh.Elements)
}

// ElementsJSON encodes the element table alone. Go maps lose order, so the
// object is assembled by hand with keys in declaration order.
func (h *Header) ElementsJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if h.Elements != nil {
		for i, kv := range h.Elements.Order {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(kv.Key)
			if err != nil {
				return nil, err
			}
			props := make([][]string, len(kv.Value.Properties))
			for j, p := range kv.Value.Properties {
				props[j] = p.Tokens()
			}
			body, err := json.Marshal(jsonElement{Size: kv.Value.Size, Properties: props})
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(body)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SetElementsJSON replaces the element table from its JSON object form.
func (h *Header) SetElementsJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "decoding elements")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Wrap(ErrMalformedLine, "elements must be a JSON object")
	}
	h.Elements.Reset()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "decoding element name")
		}
		name, _ := tok.(string)
		var je jsonElement
		if err := dec.Decode(&je); err != nil {
			return errors.Wrapf(err, "decoding element %s", name)
		}
		el := h.AddElement(name, je.Size)
		for _, toks := range je.Properties {
			switch {
			case len(toks) == 2 && toks[0] != ListToken:
				el.Properties = append(el.Properties, Scalar(toks[0], toks[1]))
			case len(toks) == 4 && toks[0] == ListToken:
				el.Properties = append(el.Properties, List(toks[1], toks[2], toks[3]))
			default:
				return errors.Wrapf(ErrMalformedLine, "property %v of element %s", toks, name)
			}
		}
	}
	_, err = dec.Token()
	return errors.Wrap(err, "decoding elements")
}
