package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invoicelens/invoice-scan/dto"
)

func TestTokenizeCollapsesBlankLines(t *testing.T) {
	raw := "\n\nAcme Co\n\n   12 Oak St\n\n\n"

	lines := Tokenize(raw, nil)

	assert.Len(t, lines, 2)
	assert.Equal(t, "Acme Co", lines[0].Text)
	assert.Equal(t, 0, lines[0].Index)
	assert.Equal(t, "12 Oak St", lines[1].Text)
	assert.Equal(t, 1, lines[1].Index)
}

func TestTokenizePreservesColumnSeparators(t *testing.T) {
	lines := Tokenize("  Widget\t2\t10.00\t20.00  ", nil)

	assert.Len(t, lines, 1)
	assert.Equal(t, "Widget\t2\t10.00\t20.00", lines[0].Text)
}

func TestTokenizeEmptyInput(t *testing.T) {
	assert.Empty(t, Tokenize("", nil))
	assert.Empty(t, Tokenize("\n \n\t\n", nil))
}

func TestTokenizeAttachesLineHints(t *testing.T) {
	hints := []dto.LineHint{
		{Text: "Acme Co", Y: 12.5},
		{Text: "12 Oak St", Y: 40.0},
	}

	lines := Tokenize("Acme Co\n12 Oak St\nno hint for this one", hints)

	assert.Len(t, lines, 3)
	assert.NotNil(t, lines[0].YPos)
	assert.Equal(t, 12.5, *lines[0].YPos)
	assert.NotNil(t, lines[1].YPos)
	assert.Equal(t, 40.0, *lines[1].YPos)
	assert.Nil(t, lines[2].YPos)
}
