package markup

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderBalancedTags(t *testing.T) {
	b := NewBuilder()
	b.SetTag("pitch", map[string]string{"absmiddle": "0"})
	b.WriteText("a")
	b.SetTag("volume", map[string]string{"level": "80"})
	b.WriteText("b")
	b.DelTag("volume")
	b.Close()
	o := b.String()

	// Every open has a close, closes in reverse order of opens
	assert.Equal(t, `<pitch absmiddle="0">a</pitch><pitch absmiddle="0"><volume level="80">b</volume></pitch>`, o)
	assertBalanced(t, o)
}

func TestBuilderNoChurnBetweenTexts(t *testing.T) {
	b := NewBuilder()
	b.SetTag("pitch", map[string]string{"absmiddle": "0"})
	b.WriteText("a")
	b.WriteText("b")
	b.Close()
	assert.Equal(t, `<pitch absmiddle="0">ab</pitch>`, b.String())
}

func TestBuilderRedundantSetIsNotDirty(t *testing.T) {
	b := NewBuilder()
	b.SetTag("pitch", map[string]string{"absmiddle": "0"})
	b.WriteText("a")

	// Same tag, same attributes: no churn
	b.SetTag("pitch", map[string]string{"absmiddle": "0"})
	b.WriteText("b")
	b.Close()
	assert.Equal(t, `<pitch absmiddle="0">ab</pitch>`, b.String())
}

func TestBuilderDelAbsentTag(t *testing.T) {
	b := NewBuilder()
	b.SetTag("pitch", map[string]string{"absmiddle": "0"})
	b.WriteText("a")
	b.DelTag("volume")
	b.WriteText("b")
	b.Close()
	assert.Equal(t, `<pitch absmiddle="0">ab</pitch>`, b.String())
}

func TestBuilderEscapesText(t *testing.T) {
	b := NewBuilder()
	b.WriteText("1 < 2")
	b.Close()
	assert.Equal(t, "1 &lt; 2", b.String())
}

func TestBuilderSelfClosingTags(t *testing.T) {
	b := NewBuilder()
	b.WriteBookmark(12)
	b.WriteSilence(50)
	b.Close()
	assert.Equal(t, `<Bookmark Mark="12" /><silence msec="50" />`, b.String())
}

var tagRe = regexp.MustCompile(`</?([a-zA-Z]+)[^>]*?(/?)>`)

// assertBalanced checks that closes match opens in exact reverse order
func assertBalanced(t *testing.T, o string) {
	var stack []string
	for _, m := range tagRe.FindAllStringSubmatch(o, -1) {
		if m[2] == "/" {
			continue
		}
		if m[0][1] == '/' {
			if assert.NotEmpty(t, stack) {
				assert.Equal(t, stack[len(stack)-1], m[1])
				stack = stack[:len(stack)-1]
			}
			continue
		}
		stack = append(stack, m[1])
	}
	assert.Empty(t, stack)
}
