package command_test

import (
	"testing"

	"github.com/aretw0/configurator/pkg/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Grammar(t *testing.T) {
	tests := []struct {
		data string
		want command.Command
	}{
		{"tpl:42", command.PickTemplate{ID: 42}},
		{"tplpage:3", command.TemplatePage{Page: 3}},
		{"tplpage:-1", command.TemplatePage{Page: -1}},
		{"search:new", command.NewSearch{}},
		{"val:7:99", command.PickValue{AttributeID: 7, ValueID: 99}},
		{"attrpage:+1", command.ValuePage{Delta: 1}},
		{"attrpage:-1", command.ValuePage{Delta: -1}},
		{"attr:back", command.Back{}},
		{"use:1001", command.UseExisting{VariantID: 1001}},
		{"change:attrs", command.ChangeSelections{}},
		{"create:new", command.Create{}},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, ok := command.Parse(tt.data)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, data := range []string{
		"tpl:42", "tplpage:3", "tplpage:-1", "search:new", "val:7:99",
		"attrpage:+1", "attrpage:-1", "attr:back", "use:1001", "change:attrs", "create:new",
	} {
		cmd, ok := command.Parse(data)
		require.True(t, ok, data)
		assert.Equal(t, data, cmd.String())
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, data := range []string{
		"",
		"tpl:",
		"tpl:abc",
		"tpl:-5",
		"tplpage:",
		"tplpage:x",
		"tplpage:+3",
		"tplpage:--1",
		"val:7",
		"val:7:",
		"val:a:1",
		"val:1:2:3",
		"attrpage:+2",
		"attrpage:0",
		"attr:forward",
		"use:",
		"change:values",
		"create:old",
		"search:old",
		"hello",
	} {
		_, ok := command.Parse(data)
		assert.False(t, ok, "expected %q to be rejected", data)
	}
}
