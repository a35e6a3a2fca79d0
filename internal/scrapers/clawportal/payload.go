package clawportal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	ShortCodeLength = 10
	LongCodeLength  = 12
)

var ErrInvalidCodeLength = errors.New("code must be 10 or 12 characters long")

// Field is one key/value pair of a form body.
type Field struct {
	Key   string
	Value string
}

// Form is an ordered form body. Unlike url.Values it keeps fields in the order
// they were added, which the portal's forms are submitted in.
type Form []Field

func (f Form) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// Raw joins the fields as k=v pairs without escaping anything.
func (f Form) Raw() string {
	var out strings.Builder
	for i, field := range f {
		if i > 0 {
			out.WriteByte('&')
		}
		out.WriteString(field.Key)
		out.WriteByte('=')
		out.WriteString(field.Value)
	}
	return out.String()
}

// Encode form-urlencodes the fields, keeping their order.
func (f Form) Encode() string {
	var out strings.Builder
	for i, field := range f {
		if i > 0 {
			out.WriteByte('&')
		}
		out.WriteString(url.QueryEscape(field.Key))
		out.WriteByte('=')
		out.WriteString(url.QueryEscape(field.Value))
	}
	return out.String()
}

// NormalizeCode strips the whitespace codes tend to be copied with.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// CodeLength counts characters, not bytes.
func CodeLength(code string) int {
	return utf8.RuneCountInString(code)
}

func ValidateCode(code string) error {
	n := CodeLength(code)
	if n != ShortCodeLength && n != LongCodeLength {
		return fmt.Errorf("%w: %q has %d", ErrInvalidCodeLength, code, n)
	}
	return nil
}

// The redeem page carries two alternative subforms, one per code length. Only
// the subform matching the code is filled in, the other is sent empty.
func appendSubform(form Form, name string, size int, chars []rune) Form {
	for i := 0; i < size; i++ {
		value := ""
		if chars != nil {
			value = string(chars[i])
		}
		form = append(form, Field{
			Key:   fmt.Sprintf("code[%s][%s%d]", name, name, i+1),
			Value: value,
		})
	}
	return form
}

// EncodeRedeem builds the redeem form body for code, one character per field,
// followed by the form token.
func EncodeRedeem(code, token string) (Form, error) {
	err := ValidateCode(code)
	if err != nil {
		return nil, err
	}

	var ten, twelve []rune
	chars := []rune(code)
	if len(chars) == ShortCodeLength {
		ten = chars
	} else {
		twelve = chars
	}

	form := make(Form, 0, ShortCodeLength+LongCodeLength+1)
	form = appendSubform(form, "codeTen", ShortCodeLength, ten)
	form = appendSubform(form, "codeTwelve", LongCodeLength, twelve)
	form = append(form, Field{Key: "code[_token]", Value: token})
	return form, nil
}

// EncodeLogin builds the login form body.
func EncodeLogin(email, password, csrfToken string) Form {
	return Form{
		{Key: "email", Value: email},
		{Key: "password", Value: password},
		{Key: csrfTokenField, Value: csrfToken},
	}
}
