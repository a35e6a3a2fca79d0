package clawportal

import (
	"clawredeem/pkg/htmlquery"
)

const (
	csrfTokenField = "_csrf_token"
	redeemTokenId  = "code__token"
	tokenValueAttr = "value"
	formErrorClass = "form-error-message"
)

// InvalidLoginText is the marker the portal puts in the login response when
// the credentials were refused.
const InvalidLoginText = "E-Mail oder Passwort ist ungültig."

func valueOfFirst(q htmlquery.Query) (string, bool) {
	node, ok := q.First()
	if !ok {
		return "", false
	}
	value, ok := node.Attr(tokenValueAttr)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ExtractCsrfToken reads the login form's anti-forgery token, the value of the
// first element named "_csrf_token".
func ExtractCsrfToken(page htmlquery.Query) (string, bool) {
	return valueOfFirst(page.ByAttributeValue("name", csrfTokenField))
}

// ExtractRedeemToken reads the redeem form token, the value of the element
// with id "code__token".
func ExtractRedeemToken(page htmlquery.Query) (string, bool) {
	return valueOfFirst(page.ById(redeemTokenId))
}

// FormError returns the text of the first form error on a redeem response.
func FormError(page htmlquery.Query) (string, bool) {
	node, ok := page.ByClassExact(formErrorClass).First()
	if !ok {
		return "", false
	}
	return node.Text(), true
}
