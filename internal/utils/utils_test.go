package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash("http://u"), Hash("http://u"))
	assert.NotEqual(t, Hash("http://u"), Hash("http://v"))
	assert.Len(t, Hash("x"), 64)
}

func TestIsAbsoluteURL(t *testing.T) {
	assert.True(t, IsAbsoluteURL("https://site/img.jpg"))
	assert.True(t, IsAbsoluteURL(" http://site "))
	assert.False(t, IsAbsoluteURL("/img.jpg"))
	assert.False(t, IsAbsoluteURL("//cdn/img.jpg"))
	assert.False(t, IsAbsoluteURL("data:image/png;base64,AAA"))
	assert.False(t, IsAbsoluteURL(""))
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://site/img/1.jpg", AbsoluteURL("https://site/news/a", "/img/1.jpg"))
	assert.Equal(t, "https://cdn/img.jpg", AbsoluteURL("https://site/news/a", "//cdn/img.jpg"))
	assert.Equal(t, "http://other/x", AbsoluteURL("https://site/", "http://other/x"))
	assert.Equal(t, "", AbsoluteURL("", "/img.jpg"))
	assert.Equal(t, "", AbsoluteURL("https://site/", ""))
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "Новое", Prefix("Новое исследование", 5))
	assert.Equal(t, "short", Prefix("short", 60))
}
