package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path, apikey, body string
}

func fakeSupabase(t *testing.T, status int) (*httptest.Server, func() []recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recorded{r.Method, r.URL.Path, r.Header.Get("apikey"), string(b)})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), calls...)
	}
}

func TestSupabase_UploadAndDelete(t *testing.T) {
	srv, calls := fakeSupabase(t, http.StatusOK)
	sb := NewSupabase(srv.URL, "secret", "docs")

	ref, err := sb.Upload(context.Background(), Object{
		Folder: "cases/42/case-intake", Name: "../Payslip March.pdf", ContentType: "application/pdf",
		Size: 4, Body: strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref.ID, "cases/42/case-intake/"))
	assert.True(t, strings.HasSuffix(ref.ID, "-Payslip_March.pdf"))
	assert.Contains(t, ref.URL, "/storage/v1/object/authenticated/docs/"+ref.ID)

	require.NoError(t, sb.Delete(context.Background(), ref.ID))

	got := calls()
	require.Len(t, got, 2)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/storage/v1/object/docs/"+ref.ID, got[0].path)
	assert.Equal(t, "%PDF", got[0].body)
	assert.Equal(t, "secret", got[0].apikey)
	assert.Equal(t, http.MethodDelete, got[1].method)
}

func TestSupabase_DeleteMissingIsOK(t *testing.T) {
	srv, _ := fakeSupabase(t, http.StatusNotFound)
	sb := NewSupabase(srv.URL, "secret", "docs")
	assert.NoError(t, sb.Delete(context.Background(), "cases/1/x.pdf"))
}

func TestSupabase_UploadError(t *testing.T) {
	srv, _ := fakeSupabase(t, http.StatusForbidden)
	sb := NewSupabase(srv.URL, "secret", "docs")
	_, err := sb.Upload(context.Background(), Object{Name: "a.pdf", Body: strings.NewReader("x")})
	assert.ErrorContains(t, err, "supabase upload error")
}

func TestSupabase_BulkDelete(t *testing.T) {
	srv, calls := fakeSupabase(t, http.StatusOK)
	sb := NewSupabase(srv.URL, "secret", "docs")

	require.NoError(t, sb.BulkDelete(context.Background(), []string{"a", "b"}))
	require.NoError(t, sb.BulkDelete(context.Background(), nil))

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, "/storage/v1/object/docs/remove", got[0].path)
	var body map[string][]string
	require.NoError(t, json.Unmarshal([]byte(got[0].body), &body))
	assert.Equal(t, []string{"a", "b"}, body["prefixes"])
}

func TestObjectKey(t *testing.T) {
	k := objectKey("cases/1", `C:\Users\me\résumé.pdf`)
	assert.True(t, strings.HasPrefix(k, "cases/1/"))
	assert.True(t, strings.HasSuffix(k, "-r_sum_.pdf"), k)
	assert.NotEqual(t, k, objectKey("cases/1", `C:\Users\me\résumé.pdf`))
}
