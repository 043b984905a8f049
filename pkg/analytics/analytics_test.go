package analytics

import (
	"testing"

	"github.com/harrisonrobin/qplan/pkg/capacity"
	"github.com/harrisonrobin/qplan/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumIfs(t *testing.T) {
	got := SumIfs("Sheet1", 3, model.IncomingBlocker)
	assert.Equal(t, `=SUMIFS('Sheet1'!$G:$G,'Sheet1'!$D:$D,$A3,'Sheet1'!$H:$H,"Incoming Blocker")`, got)
}

func TestSumIfsQuotesSheetTitle(t *testing.T) {
	got := SumIfs("Q3 'draft'", 2, model.OwnTask)
	assert.Contains(t, got, `'Q3 ''draft'''!$G:$G`)
}

func TestTable(t *testing.T) {
	s := capacity.NewSettings([]string{"BI", "DE"}, capacity.Team{People: 5, Days: 21})
	s.Teams["DE"] = capacity.Team{People: 3, Days: 20}

	table := Table("Sheet1", s)
	require.Len(t, table, 4)

	assert.Equal(t, "Team", table[0][0])
	assert.Len(t, table[0], len(Headers))

	de := table[2]
	assert.Equal(t, "DE", de[0])
	assert.Equal(t, 3, de[1])
	assert.Equal(t, 20, de[2])
	assert.Equal(t, "=B3*C3", de[3])
	assert.Equal(t, SumIfs("Sheet1", 3, model.OwnTask), de[4])
	assert.Equal(t, SumIfs("Sheet1", 3, model.IncomingEnabler), de[6])
	assert.Equal(t, "=SUM(E3:G3)", de[7])
	assert.Equal(t, "=D3-H3", de[8])

	total := table[3]
	assert.Equal(t, "Total", total[0])
	assert.Equal(t, "=SUM(B2:B3)", total[1])
	assert.Equal(t, "=SUM(I2:I3)", total[8])
}

func TestTableWithoutDepartments(t *testing.T) {
	table := Table("Sheet1", capacity.Settings{})
	assert.Len(t, table, 1)
}
