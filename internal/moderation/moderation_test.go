package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "helloworld"},
		{"r3t@rd", "retard"},
		{"soooo good!!!", "soogoodii"},
		{"$h0w 1t", "showit"},
		{"", ""},
		{"日本語", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestContainsSlur(t *testing.T) {
	assert.False(t, ContainsSlur("hello world"))
	assert.False(t, ContainsSlur("I had a rough day at work"))
	assert.False(t, ContainsSlur(""))
	assert.False(t, ContainsSlur("   "))
	assert.False(t, ContainsSlur("ünïcödé ✨ text"))

	assert.True(t, ContainsSlur("retard"))
	assert.True(t, ContainsSlur("RETARD"))
	assert.True(t, ContainsSlur("rrrreeeetaaaard"))
	assert.True(t, ContainsSlur("r3t@rd"))
	assert.True(t, ContainsSlur("r.e.t.a.r.d"))
	assert.True(t, ContainsSlur("you are such a r e t @ r d lol"))
	assert.False(t, ContainsSlur("r e t 4 r d"), "4 is not mapped to a letter")
}

func TestContainsSlurIsTotal(t *testing.T) {
	long := strings.Repeat("a quiet afternoon ", 20000)
	assert.NotPanics(t, func() {
		assert.False(t, ContainsSlur(long))
	})
	assert.NotPanics(t, func() {
		ContainsSlur(string([]byte{0xff, 0xfe, 0xfd}))
	})
}

func TestContainsProfanity(t *testing.T) {
	assert.True(t, ContainsProfanity("well, damn"))
	assert.True(t, ContainsProfanity("SHIT happens"))
	assert.False(t, ContainsProfanity("assistant"), "word boundary")
	assert.False(t, ContainsProfanity("classic"))
	assert.False(t, ContainsProfanity(""))
	assert.False(t, ContainsProfanity("   "))
}
