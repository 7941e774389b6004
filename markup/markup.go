// Package markup compiles a linear speech sequence into the XML-like markup
// SAPI5 expects in one Speak call.
//
// Directives are linear but markup is hierarchical, so the builder tracks the
// wanted tag set separately from the tags currently open in the output. When
// the wanted set changes, the next flush closes every open tag in reverse
// order and reopens the wanted ones, which keeps the output well formed
// without re-emitting unchanged tags between consecutive pieces of text.
package markup

import (
	"fmt"
	"sort"
	"strings"
)

// Builder accumulates markup. The zero value is not usable, use NewBuilder.
type Builder struct {
	buf   strings.Builder
	dirty bool
	open  []string
	tags  map[string]map[string]string
}

// NewBuilder creates a new builder
func NewBuilder() *Builder {
	return &Builder{tags: make(map[string]map[string]string)}
}

// SetTag requests the provided tag to be open, with the provided attributes,
// around all subsequent text. It replaces any previous request for the same
// tag.
func (b *Builder) SetTag(name string, attrs map[string]string) {
	if cur, ok := b.tags[name]; ok && attrsEqual(cur, attrs) {
		return
	}
	if attrs == nil {
		attrs = map[string]string{}
	}
	b.tags[name] = attrs
	b.dirty = true
}

// DelTag removes a previous request for the provided tag. Removing an absent
// tag is a no-op.
func (b *Builder) DelTag(name string) {
	if _, ok := b.tags[name]; !ok {
		return
	}
	delete(b.tags, name)
	b.dirty = true
}

// WriteText appends a literal, escaping "<" which is the only character SAPI
// chokes on in text content
func (b *Builder) WriteText(s string) {
	b.flush()
	b.buf.WriteString(strings.Replace(s, "<", "&lt;", -1))
}

// WriteBookmark appends a self-closing bookmark tag. Bookmarks don't affect
// the tag state.
func (b *Builder) WriteBookmark(index int) {
	b.buf.WriteString(fmt.Sprintf(`<Bookmark Mark="%d" />`, index))
}

// WriteSilence appends a self-closing silence tag. Silences don't affect the
// tag state.
func (b *Builder) WriteSilence(msec int) {
	b.buf.WriteString(fmt.Sprintf(`<silence msec="%d" />`, msec))
}

// WritePronunciation appends a pron tag carrying a SAPI phonetic symbol
// string and its displayed text
func (b *Builder) WritePronunciation(sym, text string) {
	b.buf.WriteString(fmt.Sprintf(`<pron sym="%s">%s</pron>`, sym, text))
}

// Close drops all tag requests and forces a final flush so that every opened
// tag is closed. The builder must never yield unbalanced markup.
func (b *Builder) Close() {
	b.tags = make(map[string]map[string]string)
	b.dirty = true
	b.flush()
}

// String returns the markup built so far
func (b *Builder) String() string {
	return b.buf.String()
}

// flush closes open tags in reverse order and reopens the wanted tag set,
// but only when the wanted set has changed since the last flush
func (b *Builder) flush() {
	// Nothing changed
	if !b.dirty {
		return
	}

	// Close open tags in reverse order
	for i := len(b.open) - 1; i >= 0; i-- {
		b.buf.WriteString("</" + b.open[i] + ">")
	}
	b.open = b.open[:0]

	// Reopen wanted tags in a stable order
	for _, name := range b.tagNames() {
		b.buf.WriteString("<" + name)
		attrs := b.tags[name]
		for _, attr := range attrNames(attrs) {
			b.buf.WriteString(fmt.Sprintf(` %s="%s"`, attr, attrs[attr]))
		}
		b.buf.WriteString(">")
		b.open = append(b.open, name)
	}
	b.dirty = false
}

func (b *Builder) tagNames() (names []string) {
	for name := range b.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func attrNames(attrs map[string]string) (names []string) {
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func attrsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
