package ui

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"mcspec/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getPage(t *testing.T, a *App, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	return w.Code, w.Body.String()
}

func TestApp_Index(t *testing.T) {
	a, err := NewApp(Config{Port: "0"})
	require.NoError(t, err)

	code, body := getPage(t, a, "/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `id="empty"`)
	assert.Contains(t, body, "Mixed model")
}

func TestApp_PreviewReady(t *testing.T) {
	a, err := NewApp(Config{Options: resolver.Options{AssumeContinuous: true}})
	require.NoError(t, err)

	q := url.Values{}
	q.Set("formula", "y ~ x*g + (1|school)")
	q.Add("var", "g=factor:3")
	code, body := getPage(t, a, "/preview?"+q.Encode())
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `id="summary"`)
	assert.Contains(t, body, "Terms: x, g[2], g[3], x:g[2], x:g[3]")
	assert.Contains(t, body, `<section id="report">`)
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, `name="var" value="g=factor:3"`)
}

func TestApp_PreviewParseErrorShowsCaret(t *testing.T) {
	a, err := NewApp(Config{Options: resolver.Options{AssumeContinuous: true}})
	require.NoError(t, err)

	code, body := getPage(t, a, "/preview?"+url.Values{"formula": {"y ~ x +"}}.Encode())
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `id="error"`)
	assert.Contains(t, body, "y ~ x &#43;\n      ^")
	assert.Contains(t, body, "[parse]")
}

func TestApp_PreviewBadDeclaration(t *testing.T) {
	a, err := NewApp(Config{})
	require.NoError(t, err)

	code, body := getPage(t, a, "/preview?"+url.Values{"formula": {"y ~ g"}, "var": {"g=factor"}}.Encode())
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "factor needs a level count or labels")
}

func TestApp_PreviewUnresolvedIsPartial(t *testing.T) {
	a, err := NewApp(Config{})
	require.NoError(t, err)

	code, body := getPage(t, a, "/preview?"+url.Values{"formula": {"y ~ x"}}.Encode())
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "[resolve]")
	assert.NotContains(t, body, `id="report"`)
}
