package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "users", User{}.TableName())
	assert.Equal(t, "expenses", Expense{}.TableName())
	assert.Equal(t, "budgets", Budget{}.TableName())
}

func TestGetCategories(t *testing.T) {
	cats := GetCategories()
	assert.Equal(t, []string{
		"Food", "Transportation", "Entertainment", "Utilities",
		"Healthcare", "Shopping", "Other",
	}, cats)
}
