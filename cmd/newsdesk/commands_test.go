package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/deusflow/newsdesk/internal/config"
	"github.com/deusflow/newsdesk/internal/feeds"
	"github.com/deusflow/newsdesk/internal/news"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	catalog, err := feeds.Default()
	require.NoError(t, err)

	var out bytes.Buffer
	return &cli{catalog: catalog, cfg: config.Default(), out: &out}, &out
}

func TestSourcesReadsEnvPrefix(t *testing.T) {
	t.Setenv("NEWSDESK_REGION", "DE")
	c, out := newTestCLI(t)

	err := newRootCommand(c).ParseAndRun(context.Background(), []string{"sources", "-category", "Technology"})
	require.NoError(t, err)

	want := c.catalog.SourcesFor(news.RegionDE, news.CategoryTechnology)
	assert.Equal(t, want, strings.Fields(out.String()))
}

func TestGetReadsEnvPrefix(t *testing.T) {
	t.Setenv("NEWSDESK_REGION", "XX")
	c, _ := newTestCLI(t)

	err := newRootCommand(c).ParseAndRun(context.Background(), []string{"get", "abc"})
	assert.ErrorIs(t, err, news.ErrUnknownRegion)
}

func TestRegionsListsEveryRegion(t *testing.T) {
	c, out := newTestCLI(t)

	require.NoError(t, newRootCommand(c).ParseAndRun(context.Background(), []string{"regions"}))
	for _, r := range news.Regions() {
		assert.Contains(t, out.String(), string(r))
	}
	assert.Contains(t, out.String(), "categories:")
}
