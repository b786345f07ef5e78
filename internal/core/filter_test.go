package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFilterNormalize(t *testing.T) {
	f, err := ListFilter{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, f.Limit)

	_, err = ListFilter{Limit: MaxListLimit + 1}.Normalize()
	assert.True(t, IsValidation(err))

	_, err = ListFilter{Offset: -1}.Normalize()
	assert.True(t, IsValidation(err))

	_, err = ListFilter{Kind: "transfer"}.Normalize()
	assert.True(t, IsValidation(err))

	f, err = ListFilter{Unbounded: true}.Normalize()
	require.NoError(t, err)
	assert.Zero(t, f.Limit)
}

func TestListFilterMatches(t *testing.T) {
	tx := Transaction{
		Kind:     Expense,
		Category: "Food & Dining",
		Amount:   decimal.NewFromInt(1),
		Date:     time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC),
	}
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, ListFilter{}.Matches(tx))
	assert.True(t, ListFilter{Kind: Expense}.Matches(tx))
	assert.False(t, ListFilter{Kind: Income}.Matches(tx))
	assert.True(t, ListFilter{Category: "dining"}.Matches(tx))
	assert.False(t, ListFilter{Category: "travel"}.Matches(tx))
	assert.True(t, ListFilter{From: day, To: EndOfDay(day)}.Matches(tx))
	assert.False(t, ListFilter{To: day}.Matches(tx))
}

func TestPageMetadata(t *testing.T) {
	p := Page{Total: 150, Limit: 100, Offset: 0}
	assert.Equal(t, 2, p.TotalPages())
	assert.Equal(t, 1, p.CurrentPage())

	p.Offset = 100
	assert.Equal(t, 2, p.CurrentPage())

	assert.Equal(t, 0, Page{Limit: 100}.TotalPages())
}

func TestSortNewestFirst(t *testing.T) {
	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{ID: "a", Date: d1, CreatedAt: d1},
		{ID: "b", Date: d2, CreatedAt: d1},
		{ID: "c", Date: d1, CreatedAt: d2},
	}
	SortNewestFirst(txs)
	assert.Equal(t, []string{"b", "c", "a"}, []string{txs[0].ID, txs[1].ID, txs[2].ID})
}

func TestSortNewestFirstTieBreaksOnID(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{ID: "b", Date: d, CreatedAt: d},
		{ID: "c", Date: d, CreatedAt: d},
		{ID: "a", Date: d, CreatedAt: d},
	}
	SortNewestFirst(txs)
	assert.Equal(t, []string{"c", "b", "a"}, []string{txs[0].ID, txs[1].ID, txs[2].ID})
}
