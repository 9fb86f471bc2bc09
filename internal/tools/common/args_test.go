package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArg(t *testing.T) {
	args := map[string]interface{}{"query": "  is:unread ", "count": 3.0}
	assert.Equal(t, "is:unread", StringArg(args, "query"))
	assert.Empty(t, StringArg(args, "count"))
	assert.Empty(t, StringArg(args, "missing"))
}

func TestIntArg(t *testing.T) {
	args := map[string]interface{}{"whole": 30.0, "fraction": 2.5, "text": "ten", "null": nil}

	n, err := IntArg(args, "whole", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	n, err = IntArg(args, "missing", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = IntArg(args, "null", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = IntArg(args, "fraction", 0)
	assert.Error(t, err)
	_, err = IntArg(args, "text", 0)
	assert.Error(t, err)
}

func TestListArg(t *testing.T) {
	args := map[string]interface{}{"calendars": "primary, team@example.com,,  "}
	assert.Equal(t, []string{"primary", "team@example.com"}, ListArg(args, "calendars"))
	assert.Nil(t, ListArg(args, "missing"))
}

func TestJSONResult(t *testing.T) {
	result, err := JSONResult(map[string]int{"count": 2})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.False(t, result.IsError)
}
