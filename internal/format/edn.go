package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// WriteEDN writes an EDN rendition of v. Values go through encoding/json first so
// json tags decide the field set; keys become kebab-case keywords, so both
// "customer_name" and "orderNo" read as :customer-name and :order-no.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := ednEncoder{pretty: pretty, indent: 2}
	enc.value(&buf, x, 0)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

type ednEncoder struct {
	pretty bool
	indent int
}

func (e ednEncoder) value(buf *bytes.Buffer, v any, level int) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("nil")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		buf.WriteString(strconv.Quote(t))
	case json.Number:
		buf.WriteString(t.String())
	case []any:
		items := make([]func(), len(t))
		for i, it := range t {
			items[i] = func() { e.value(buf, it, level+1) }
		}
		e.coll(buf, '[', ']', items, level)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]func(), len(keys))
		for i, k := range keys {
			items[i] = func() {
				buf.WriteByte(':')
				buf.WriteString(keyword(k))
				buf.WriteByte(' ')
				e.value(buf, t[k], level+1)
			}
		}
		e.coll(buf, '{', '}', items, level)
	default:
		buf.WriteString(strconv.Quote(fmt.Sprint(v)))
	}
}

// coll writes a delimited collection, one item per line when pretty.
func (e ednEncoder) coll(buf *bytes.Buffer, open, close byte, items []func(), level int) {
	buf.WriteByte(open)
	if len(items) == 0 {
		buf.WriteByte(close)
		return
	}
	for i, write := range items {
		switch {
		case e.pretty:
			buf.WriteByte('\n')
			buf.WriteString(strings.Repeat(" ", (level+1)*e.indent))
		case i > 0:
			buf.WriteByte(' ')
		}
		write()
	}
	if e.pretty {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(" ", level*e.indent))
	}
	buf.WriteByte(close)
}

func keyword(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == '_' || r == ' ':
			b.WriteByte('-')
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return b.String()
}
