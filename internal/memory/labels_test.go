package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLabels(t *testing.T) {
	labels := ExtractLabels("A beautiful sunset at the beach with family")

	assert.Contains(t, labels, "beautiful")
	assert.Contains(t, labels, "sunset")
	assert.Contains(t, labels, "beach")
	assert.Contains(t, labels, "family")
	assert.NotContains(t, labels, "the")
	assert.NotContains(t, labels, "with")
}

func TestExtractLabelsDropsShortWords(t *testing.T) {
	labels := ExtractLabels("my dog ran far away today")

	assert.NotContains(t, labels, "dog")
	assert.NotContains(t, labels, "ran")
	assert.NotContains(t, labels, "far")
	assert.Contains(t, labels, "away")
	assert.Contains(t, labels, "today")
}

func TestExtractLabelsStripsPunctuation(t *testing.T) {
	labels := ExtractLabels("Grandma's birthday, cake!!! candles...")

	assert.Contains(t, labels, "birthday")
	assert.Contains(t, labels, "cake")
	assert.Contains(t, labels, "candles")
}

func TestExtractLabelsDeduplicates(t *testing.T) {
	labels := ExtractLabels("beach beach beach sunset")

	count := 0
	for _, l := range labels {
		if l == "beach" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractLabelsCapped(t *testing.T) {
	words := []string{
		"alpha", "bravo", "charlie", "delta", "echo", "foxtrot",
		"golf", "hotel", "india", "juliett", "kilo", "lima",
	}
	labels := ExtractLabels(strings.Join(words, " "))

	assert.Len(t, labels, 10)
}

func TestExtractLabelsEmptyText(t *testing.T) {
	assert.Empty(t, ExtractLabels(""))
	assert.Empty(t, ExtractLabels("a an the"))
}
