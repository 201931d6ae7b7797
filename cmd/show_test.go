package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
	csvstore "github.com/JakeFAU/bounty-scope-crawler/internal/storage/csv"
)

func writeSampleCSV(t *testing.T) string {
	t.Helper()
	table := crawler.NewDomainTable()
	table.Merge(
		crawler.DomainRecord{Domain: "api.acme.com", SourceURL: "https://hackerone.com/acme"},
		crawler.DomainRecord{Domain: "www.acme.com", SourceURL: "https://hackerone.com/acme"},
		crawler.DomainRecord{Domain: "beta.example.org", SourceURL: "https://hackerone.com/example"},
	)
	path := filepath.Join(t.TempDir(), "domains.csv")
	require.NoError(t, csvstore.New().Save(table, path))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestShowRendersDomains(t *testing.T) {
	path := writeSampleCSV(t)

	out, err := runRoot(t, "show", path)
	require.NoError(t, err)
	for _, want := range []string{"api.acme.com", "www.acme.com", "beta.example.org", "https://hackerone.com/example"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "api.acme.com"), strings.Index(out, "beta.example.org"))
}

func TestShowByProgram(t *testing.T) {
	path := writeSampleCSV(t)

	out, err := runRoot(t, "show", "--by-program", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "api.acme.com")
	assert.Contains(t, out, "https://hackerone.com/acme")
	assert.Less(t, strings.Index(out, "https://hackerone.com/acme"), strings.Index(out, "https://hackerone.com/example"))
}

func TestShowMissingFile(t *testing.T) {
	_, err := runRoot(t, "show", filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
