package memdom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
		parts   int
	}{
		{"li", false, 1},
		{"#todo-list li.todo", false, 2},
		{"ul#list .item.done", false, 2},
		{"*", false, 1},
		{"", true, 0},
		{"li.", true, 0},
		{"#", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel, err := ParseSelector(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, sel.parts, tt.parts)
		})
	}
}

func TestSelectorMatches(t *testing.T) {
	f := &Fixture{}
	body := &Element{owner: f, tag: "body"}
	list := &Element{owner: f, tag: "ul", id: "list"}
	item := &Element{owner: f, tag: "li", classes: []string{"item", "done"}}
	body.appendChild(list)
	list.appendChild(item)

	tests := []struct {
		selector string
		want     bool
	}{
		{"li", true},
		{".item", true},
		{"li.item.done", true},
		{"#list li", true},
		{"body li", true},
		{"body #list .done", true},
		{"#list", false},
		{"li.missing", false},
		{"section li", false},
		{"li ul", false},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			sel, err := ParseSelector(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Matches(item))
		})
	}
}
