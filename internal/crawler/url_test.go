package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingPageURL(t *testing.T) {
	got, err := ListingPageURL("https://hackerone.com/opportunities/all", 3)
	require.NoError(t, err)
	assert.Equal(t, "https://hackerone.com/opportunities/all?page=3", got)

	got, err = ListingPageURL("https://hackerone.com/opportunities/all?page=9", 1)
	require.NoError(t, err)
	assert.Equal(t, "https://hackerone.com/opportunities/all?page=1", got)

	_, err = ListingPageURL("http://%zz", 1)
	require.Error(t, err)
}

func TestIsListingURL(t *testing.T) {
	markers := []string{"/opportunities/all", "/bug-bounty-programs"}
	assert.True(t, IsListingURL("https://hackerone.com/opportunities/all?page=2", markers))
	assert.True(t, IsListingURL("https://hackerone.com/bug-bounty-programs", markers))
	assert.False(t, IsListingURL("https://hackerone.com/security", markers))
	assert.False(t, IsListingURL("https://hackerone.com/opportunities/all", nil))
}

func TestNormalizeURL(t *testing.T) {
	got, err := NormalizeURL("HTTPS://HackerOne.com:443/Acme#scope")
	require.NoError(t, err)
	assert.Equal(t, "https://hackerone.com/Acme", got)
}
