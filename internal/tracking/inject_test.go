package tracking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectPixelBeforeBody(t *testing.T) {
	inj := NewInjector("https://track.example.io/")
	out := inj.Inject("<html><body><p>Hi</p></body></html>", "c1", "r1")

	pixel := `<img src="https://track.example.io/track-email?type=open&cid=c1&rid=r1" width="1" height="1" alt="" style="display:none" />`
	assert.Equal(t, "<html><body><p>Hi</p>"+pixel+"</body></html>", out)
}

func TestInjectPixelAppendedWithoutBody(t *testing.T) {
	inj := NewInjector("https://t.io")
	out := inj.Inject("<p>Hi</p>", "c1", "r1")
	assert.True(t, strings.HasPrefix(out, "<p>Hi</p><img "))
}

func TestInjectRewritesLinks(t *testing.T) {
	inj := NewInjector("https://t.io")
	html := `<a href="https://example.com/a?b=1&c=2">x</a><a href="http://old.io">y</a><a href="mailto:a@b.io">z</a><a href="/relative">w</a>`

	out := inj.Inject(html, "c1", "r1")

	assert.Contains(t, out, `href="https://t.io/track-email?type=click&cid=c1&rid=r1&url=https%3A%2F%2Fexample.com%2Fa%3Fb%3D1%26c%3D2"`)
	assert.Contains(t, out, `href="https://t.io/track-email?type=click&cid=c1&rid=r1&url=http%3A%2F%2Fold.io"`)
	assert.Contains(t, out, `href="mailto:a@b.io"`)
	assert.Contains(t, out, `href="/relative"`)
}
