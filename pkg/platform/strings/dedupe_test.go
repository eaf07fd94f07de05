package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a1", "a2"}, DedupeAndTrim([]string{" a1 ", "a2", "a1", "", "  "}))
	assert.Empty(t, DedupeAndTrim(nil))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, SplitList("k1:9092, ,k2:9092,k1:9092"))
	assert.Empty(t, SplitList(""))
}
