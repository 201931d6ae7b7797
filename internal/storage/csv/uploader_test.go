package csvstore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csvstore "github.com/JakeFAU/bounty-scope-crawler/internal/storage/csv"
)

type capturingBlobs struct {
	path        string
	contentType string
	data        []byte
	err         error
}

func (c *capturingBlobs) PutObject(_ context.Context, path, contentType string, r io.Reader) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	c.path, c.contentType, c.data = path, contentType, buf.Bytes()
	return "mem://" + path, nil
}

func TestUploaderExport(t *testing.T) {
	blobs := &capturingBlobs{}
	up, err := csvstore.NewUploader("gcs", blobs, "/scopes/")
	require.NoError(t, err)
	assert.Equal(t, "gcs", up.Name())

	require.NoError(t, up.Export(context.Background(), "run-1", sampleTable()))
	assert.Equal(t, "scopes/run-1.csv", blobs.path)
	assert.Equal(t, "text/csv", blobs.contentType)
	assert.Contains(t, string(blobs.data), "domain,url\n*.initech.com,")
}

func TestUploaderDefaults(t *testing.T) {
	up, err := csvstore.NewUploader("", &capturingBlobs{}, "")
	require.NoError(t, err)
	assert.Equal(t, "csv-upload", up.Name())
	assert.Equal(t, "abc.csv", up.ObjectPath("abc"))
}

func TestUploaderErrors(t *testing.T) {
	_, err := csvstore.NewUploader("x", nil, "")
	require.Error(t, err)

	up, err := csvstore.NewUploader("x", &capturingBlobs{err: errors.New("denied")}, "p")
	require.NoError(t, err)
	require.ErrorContains(t, up.Export(context.Background(), "run", sampleTable()), "denied")
	require.Error(t, up.Export(context.Background(), "", sampleTable()))
}

func TestCheckpointPath(t *testing.T) {
	assert.Equal(t, "out.csv.tmp", csvstore.CheckpointPath("out.csv", ".tmp"))
}
