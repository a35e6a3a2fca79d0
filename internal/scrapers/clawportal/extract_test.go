package clawportal

import (
	"testing"

	"clawredeem/pkg/htmlquery"

	"github.com/stretchr/testify/require"
)

func query(t *testing.T, html string) htmlquery.Query {
	t.Helper()
	q, err := htmlquery.ParseString(html)
	require.NoError(t, err)
	return q
}

func TestExtractCsrfToken(t *testing.T) {
	table := []struct {
		name     string
		html     string
		expected string
		ok       bool
	}{
		{
			name:     "login form",
			html:     `<form><input type="hidden" name="_csrf_token" value="abc123"><input name="email"></form>`,
			expected: "abc123",
			ok:       true,
		},
		{
			name:     "first match wins",
			html:     `<input name="_csrf_token" value="first"><input name="_csrf_token" value="second">`,
			expected: "first",
			ok:       true,
		},
		{name: "missing", html: `<form><input name="email"></form>`},
		{name: "no value", html: `<input name="_csrf_token">`},
		{name: "empty value", html: `<input name="_csrf_token" value="">`},
		{name: "id is not name", html: `<input id="_csrf_token" value="abc">`},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			token, ok := ExtractCsrfToken(query(t, row.html))
			require.Equal(t, row.ok, ok)
			require.Equal(t, row.expected, token)
		})
	}
}

func TestExtractRedeemToken(t *testing.T) {
	token, ok := ExtractRedeemToken(query(t, `
		<form name="code">
			<input type="hidden" id="code__token" name="code[_token]" value="r3d33m">
		</form>`))
	require.True(t, ok)
	require.Equal(t, "r3d33m", token)

	_, ok = ExtractRedeemToken(query(t, `<input name="code[_token]" value="r3d33m">`))
	require.False(t, ok)
}

func TestFormError(t *testing.T) {
	message, ok := FormError(query(t, `
		<div class="form-group">
			<span class="form-error-message">Dieser Code ist ungültig.</span>
			<span class="form-error-message">second</span>
		</div>`))
	require.True(t, ok)
	require.Equal(t, "Dieser Code ist ungültig.", message)

	_, ok = FormError(query(t, `<span class="form-error-message has-icon">x</span>`))
	require.False(t, ok)
}

func TestExtractPoints(t *testing.T) {
	table := []struct {
		name     string
		html     string
		expected ClawPoints
		ok       bool
	}{
		{
			name:     "three fields",
			html:     `<div class="dashboard-box"><p>120</p><p>40</p><p>80</p></div>`,
			expected: ClawPoints{Total: 120, Redeemable: 40, Claimed: 80},
			ok:       true,
		},
		{
			name:     "nested and padded",
			html:     `<section><div class="dashboard-box"><div><p> 1.250 </p></div><p>
				40</p><p>80</p><p>999</p></div></section>`,
			expected: ClawPoints{Total: 1250, Redeemable: 40, Claimed: 80},
			ok:       true,
		},
		{
			name:     "unparsable defaults to zero",
			html:     `<div class="dashboard-box"><p>n/a</p><p>40</p><p></p></div>`,
			expected: ClawPoints{Total: 0, Redeemable: 40, Claimed: 0},
			ok:       true,
		},
		{name: "too few fields", html: `<div class="dashboard-box"><p>120</p><p>40</p></div>`},
		{name: "class must match exactly", html: `<div class="dashboard-box wide"><p>1</p><p>2</p><p>3</p></div>`},
		{name: "no box", html: `<p>1</p><p>2</p><p>3</p>`},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			points, ok := ExtractPoints(query(t, row.html))
			require.Equal(t, row.ok, ok)
			require.Equal(t, row.expected, points)
		})
	}
}
