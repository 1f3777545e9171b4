package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MasterGowen/open-discussions/internal/indexing"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

func TestRenderStatusDuringRebuild(t *testing.T) {
	status := &indexing.Status{
		State:          indexing.StateBuilding,
		DefaultAlias:   "discussions_all_default",
		DefaultIndices: []string{"discussions_all_old"},
		ReindexAlias:   "discussions_all_reindexing",
		ReindexIndices: []string{"discussions_all_new"},
	}
	counts := map[string]int{"discussions_all_default": 120, "discussions_all_reindexing": 30}
	depths := map[tasks.Priority]int64{tasks.PriorityLow: 1, tasks.PriorityNormal: 7}

	var out bytes.Buffer
	renderStatus(&out, status, counts, depths)

	text := out.String()
	assert.Contains(t, text, "BUILDING")
	assert.Contains(t, text, "discussions_all_old")
	assert.Contains(t, text, "discussions_all_new")
	assert.Contains(t, text, "120")
	assert.Contains(t, text, "normal")
	assert.Contains(t, text, "7")
	assert.NotContains(t, text, "high")
}

func TestRenderStatusWithoutQueue(t *testing.T) {
	status := &indexing.Status{
		State:        indexing.StateNoIndex,
		DefaultAlias: "discussions_all_default",
		ReindexAlias: "discussions_all_reindexing",
	}

	var out bytes.Buffer
	renderStatus(&out, status, nil, nil)

	assert.Contains(t, out.String(), "NO_INDEX")
	assert.NotContains(t, out.String(), "Queue")
}

func TestAliasRow(t *testing.T) {
	assert.Equal(t, "-", aliasRow("a", nil, map[string]int{"a": 3})[1])
	assert.Equal(t, "-", aliasRow("a", []string{"i1"}, nil)[2])
	assert.Equal(t, "3", aliasRow("a", []string{"i1"}, map[string]int{"a": 3})[2])
}
