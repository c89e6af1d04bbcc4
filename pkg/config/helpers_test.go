package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{key: "api_key", value: "k", want: "k"},
		{key: "base_url", value: "https://mirror.example/api/download", want: "https://mirror.example/api/download"},
		{key: "user_agent", value: "bot/2", want: "bot/2"},
		{key: "output_dir", value: "/tmp/out", want: "/tmp/out"},
		{key: "http_timeout", value: "90s", want: "1m30s"},
		{key: "concurrency", value: "8", want: "8"},
		{key: "keep_going", value: "yes", want: ""},
		{key: "keep_going", value: "true", want: "true"},
		{key: "version_constraint", value: "< 5", want: "< 5"},
		{key: "log_level", value: "warn", want: "warn"},
		{key: "log_format", value: "json", want: "json"},
		{key: "hooks.pre_fetch", value: "pre.tengo", want: "pre.tengo"},
		{key: "hooks.post_fetch", value: "post.tengo", want: "post.tengo"},
		{key: "nope", value: "x", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.SetValue(tt.key, tt.value)
			if tt.want == "" {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			got, err := cfg.GetValue(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetValue_InvalidNumbers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.SetValue("http_timeout", "soon"))
	assert.Error(t, cfg.SetValue("concurrency", "many"))
	assert.Equal(t, 10*time.Minute, cfg.Settings.HTTPTimeout)
	assert.Equal(t, 1, cfg.Settings.Concurrency)
}

func TestToMap(t *testing.T) {
	m := DefaultConfig().ToMap()
	assert.Len(t, m, len(Keys))
	assert.Equal(t, "10m0s", m["http_timeout"])
	assert.Equal(t, "1", m["concurrency"])
	assert.Equal(t, "", m["hooks.pre_fetch"])
}
