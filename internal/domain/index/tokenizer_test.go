package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"getUserToken", []string{"get", "user", "token"}},
		{"parseHTTPRequest", []string{"parse", "http", "request"}},
		{"APIKey", []string{"api", "key"}},
		{"get_user_by_id", []string{"get", "user", "by", "id"}},
		{"services/auth/handler", []string{"services", "auth", "handler"}},
		{"Foo::Bar.baz", []string{"foo", "bar", "baz"}},
		{"my-cool.func_name", []string{"my", "cool", "func", "name"}},
		{"LOGIN", []string{"login"}},
		{"handler404Response", []string{"handler", "404", "response"}},
		{"user tok", []string{"user", "tok"}},
		{"a", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestTokenize_NonASCII(t *testing.T) {
	assert.NotPanics(t, func() { Tokenize("résumé") })
	assert.Equal(t, []string{"rsum"}, Tokenize("résumé"))
	assert.Nil(t, Tokenize("日本"))
}

func TestSplitCamelCase(t *testing.T) {
	assert.Equal(t, []string{"parse", "HTTP", "Request"}, splitCamelCase("parseHTTPRequest"))
	assert.Equal(t, []string{"use", "State", "2"}, splitCamelCase("useState2"))
	assert.Nil(t, splitCamelCase(""))
}
