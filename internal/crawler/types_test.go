package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainTableMergeOverwritesSourceURL(t *testing.T) {
	table := NewDomainTable()
	added := table.Merge(
		DomainRecord{Domain: "api.example.com", SourceURL: "https://site/a"},
		DomainRecord{Domain: "www.example.com", SourceURL: "https://site/a"},
	)
	require.Equal(t, 2, added)

	added = table.Merge(DomainRecord{Domain: "api.example.com", SourceURL: "https://site/b"})
	require.Zero(t, added)

	src, ok := table.Lookup("api.example.com")
	require.True(t, ok)
	assert.Equal(t, "https://site/b", src)

	src, ok = table.Lookup("www.example.com")
	require.True(t, ok)
	assert.Equal(t, "https://site/a", src, "other entries must be untouched")
	assert.Equal(t, 2, table.Len())
}

func TestDomainTableSkipsInvalidRecords(t *testing.T) {
	table := NewDomainTable()
	added := table.Merge(
		DomainRecord{Domain: "", SourceURL: "https://site/a"},
		DomainRecord{Domain: "localhost", SourceURL: "https://site/a"},
		DomainRecord{Domain: "*.example.com", SourceURL: "https://site/a"},
	)
	assert.Equal(t, 1, added)
	_, ok := table.Lookup("localhost")
	assert.False(t, ok)
}

func TestDomainTableRecordsSorted(t *testing.T) {
	table := NewDomainTable()
	table.Merge(
		DomainRecord{Domain: "zeta.example.com", SourceURL: "z"},
		DomainRecord{Domain: "alpha.example.com", SourceURL: "a"},
		DomainRecord{Domain: "mid.example.com", SourceURL: "m"},
	)
	assert.Equal(t, []DomainRecord{
		{Domain: "alpha.example.com", SourceURL: "a"},
		{Domain: "mid.example.com", SourceURL: "m"},
		{Domain: "zeta.example.com", SourceURL: "z"},
	}, table.Records())
}

func TestContentEmpty(t *testing.T) {
	assert.True(t, Content{}.Empty())
	assert.True(t, Content{Body: " \n\t"}.Empty())
	assert.False(t, Content{Body: "<html></html>"}.Empty())
}
