package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCommandsUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Commands
		wantErr bool
	}{
		{name: "scalar", input: "script: nosetests", want: Commands{"nosetests"}},
		{name: "list", input: "script: [make, make test]", want: Commands{"make", "make test"}},
		{name: "null", input: "script:", want: nil},
		{name: "empty list", input: "script: []", want: Commands{}},
		{name: "number stays as written", input: "script: 3.10", want: Commands{"3.10"}},
		{name: "nested map", input: "script: {a: b}", wantErr: true},
		{name: "nested list", input: "script: [[a]]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc struct {
				Script Commands `yaml:"script"`
			}
			err := yaml.Unmarshal([]byte(tt.input), &doc)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Script)
		})
	}
}

func TestConfigCloneIsDeep(t *testing.T) {
	c := Config{
		Language: "python",
		Commands: map[Stage]Commands{Script: {"a"}},
	}

	clone := c.Clone()
	clone.Commands[Script][0] = "b"

	assert.Equal(t, "a", c.Commands[Script][0])
}

func TestConfigStageReturnsCopy(t *testing.T) {
	c := Config{Commands: map[Stage]Commands{Install: {"pip install ."}}}

	got := c.Stage(Install)
	got[0] = "mutated"

	assert.Equal(t, "pip install .", c.Commands[Install][0])
	assert.Empty(t, c.Stage(Script))
}

func TestConfigLabel(t *testing.T) {
	assert.Equal(t, "python/3.4", Config{Language: "python", Variant: "3.4"}.Label())
	assert.Equal(t, "python/3.4 (FOO=bar)", Config{Language: "python", Variant: "3.4", Environment: "FOO=bar"}.Label())
}

func TestStagesOrder(t *testing.T) {
	assert.Len(t, Stages, 7)
	assert.Equal(t, BeforeInstall, Stages[0])
	assert.Equal(t, AfterScript, Stages[len(Stages)-1])
}
