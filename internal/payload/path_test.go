package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	_, err := Compile("  ")
	assert.Error(t, err)

	_, err = Compile("user.[")
	assert.Error(t, err)

	p, err := Compile(" token || accessToken ")
	require.NoError(t, err)
	assert.Equal(t, "token || accessToken", p.String())
}

func TestPath_Text(t *testing.T) {
	data, err := Decode([]byte(`{"user":{"_id":42,"role":"TEACHER","active":true,"tags":["a"]},"accessToken":"abc","error":""}`))
	require.NoError(t, err)

	tests := []struct {
		expr   string
		want   string
		wantOK bool
	}{
		{"token || accessToken || access_token", "abc", true},
		{"user.id || user._id", "42", true},
		{"user.role", "TEACHER", true},
		{"user.active", "true", true},
		{"user.tags", "", false},
		{"user", "", false},
		{"error || message", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := MustCompile(tt.expr).Text(data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPath_SearchNilData(t *testing.T) {
	_, ok := MustCompile("user").Search(nil)
	assert.False(t, ok)

	_, ok = Path{}.Search(map[string]any{"user": 1})
	assert.False(t, ok)
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("[") })
}
