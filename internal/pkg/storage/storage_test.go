package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "primary/state.json", want: "primary/state.json"},
		{name: "leading slash", in: "/primary/state.json", want: "primary/state.json"},
		{name: "backslashes", in: `primary\state.json`, want: "primary/state.json"},
		{name: "empty", in: "", wantErr: true},
		{name: "traversal", in: "../etc/passwd", wantErr: true},
		{name: "double slash", in: "a//b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalAdapter_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := NewFromDriver(ctx, "", FactoryOptions{Local: LocalOptions{Dir: dir}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	info, err := st.PutObject(ctx, "primary/auth-state.json", []byte(`{"a":1}`), PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"run": "r1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "primary/auth-state.json", info.Key)
	assert.Equal(t, int64(7), info.Size)
	assert.Equal(t, filepath.Join(dir, "primary", "auth-state.json"), info.Location)

	fi, err := os.Stat(info.Location)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	data, got, err := st.GetObject(ctx, "primary/auth-state.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, "r1", got.Metadata["run"])

	require.NoError(t, st.DeleteObject(ctx, "primary/auth-state.json"))
	_, err = st.StatObject(ctx, "primary/auth-state.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.NoError(t, st.DeleteObject(ctx, "primary/auth-state.json"))
}

func TestLocalAdapter_Overwrite(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocal(LocalOptions{Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = st.PutObject(ctx, "k", []byte("one"), PutOptions{})
	require.NoError(t, err)
	_, err = st.PutObject(ctx, "k", []byte("two"), PutOptions{})
	require.NoError(t, err)

	data, _, err := st.GetObject(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestLocalAdapter_RejectsTraversal(t *testing.T) {
	st, err := NewLocal(LocalOptions{Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = st.PutObject(context.Background(), "../escape", []byte("x"), PutOptions{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewFromDriver_Unknown(t *testing.T) {
	_, err := NewFromDriver(context.Background(), "gcs", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestNewFromDriver_RequiresBucket(t *testing.T) {
	_, err := NewFromDriver(context.Background(), DriverMinIO, FactoryOptions{})
	assert.Error(t, err)

	_, err = NewFromDriver(context.Background(), DriverS3, FactoryOptions{})
	assert.Error(t, err)
}
