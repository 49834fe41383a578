package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableRender(t *testing.T) {
	table := NewTable("Username", "Role")
	table.AddRow("alice", "user")
	table.AddRow("bob", "admin")

	var buf bytes.Buffer
	table.Render(&buf)

	out := buf.String()
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "ROLE")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "admin")
}

func TestTableRenderEmpty(t *testing.T) {
	table := NewTable("Username")

	var buf bytes.Buffer
	table.Render(&buf)

	assert.Contains(t, buf.String(), "USERNAME")
}
