package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_JSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"3s","b":1500000000}`), &v))
	require.Equal(t, 3*time.Second, v.A.Duration)
	require.Equal(t, 1500*time.Millisecond, v.B.Duration)

	b, err := json.Marshal(v.A)
	require.NoError(t, err)
	require.Equal(t, `"3s"`, string(b))

	require.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v))
	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 250ms\nb: 2000\n"), &v))
	require.Equal(t, 250*time.Millisecond, v.A.Duration)
	require.Equal(t, 2*time.Microsecond, v.B.Duration)
}
