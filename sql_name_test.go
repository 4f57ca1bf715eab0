package tsubakuro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTNameRoundTrip(t *testing.T) {
	n := NewTName("public", "t1", "c1")
	assert.Equal(t, "public.t1.c1", n.String())
	assert.Equal(t, []string{"public", "t1", "c1"}, n.Parts())
}

func TestParseTName(t *testing.T) {
	n := ParseTName("schema.table")
	assert.Equal(t, []string{"schema", "table"}, n.Parts())
}
