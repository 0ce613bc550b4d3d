package flagx

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag followed by another flag keeps no value",
			args:         []string{"-c", "-notvalue"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "several allowed flags keep order",
			args:         []string{"-a", ":8080", "-s", "memory", "--other", "x"},
			allowedFlags: []string{"-s", "-a"},
			want:         []string{"-a", ":8080", "-s", "memory"},
		},
		{
			name:         "empty args",
			args:         nil,
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, "conf.json", ConfigFile([]string{"-a", ":1", "-c", "conf.json"}))
	assert.Equal(t, "other.json", ConfigFile([]string{"-config=other.json"}))
	assert.Equal(t, "", ConfigFile([]string{"-a", ":1"}))
}

func TestStringSlice(t *testing.T) {
	var details StringSlice

	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.Var(&details, "d", "detail")
	require.NoError(t, fs.Parse([]string{"-d", "sku=PWS-0001", "-d", "note = hi", "-d", "flag"}))

	assert.Equal(t, "sku=PWS-0001,note = hi,flag", details.String())
	assert.Equal(t, map[string]string{"sku": "PWS-0001", "note": "hi", "flag": ""}, details.Pairs())
}
