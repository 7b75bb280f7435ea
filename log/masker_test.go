/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMasker_Mask(t *testing.T) {
	masker := NewMasker(append([]MaskingRuleConfig{
		{Field: "X-Api-Key", Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader}},
		{Field: "apiKey", Masks: []MaskConfig{{RegExp: `<apiKey>.+?</apiKey>`, Mask: "<apiKey>***</apiKey>"}}},
		{Field: "stripe", Masks: []MaskConfig{{RegExp: `sk_live_[0-9a-z]+`, Mask: "sk_live_***"}}},
		{Masks: []MaskConfig{{RegExp: `\bpin=\d{4}\b`, Mask: "pin=****"}}},
	}, DefaultMasks...))

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no secrets",
			input: "GET /releases/249504 200",
			want:  "GET /releases/249504 200",
		},
		{
			name:  "authorization header",
			input: "GET /users/crate-digger/collection HTTP/1.1\r\nAuthorization: Discogs token=abcdef\r\nAccept: */*\r\n",
			want:  "GET /users/crate-digger/collection HTTP/1.1\r\nAuthorization: ***\r\nAccept: */*\r\n",
		},
		{
			name:  "custom header is case insensitive",
			input: "x-api-key: 12345\r\n",
			want:  "X-Api-Key: ***\r\n",
		},
		{
			name:  "api key in query",
			input: `Get "https://api.getsong.co/search/?type=song&api_key=0a1b2c&lookup=song:so+what" EOF`,
			want:  `Get "https://api.getsong.co/search/?type=song&api_key=***&lookup=song:so+what" EOF`,
		},
		{
			name:  "token and password in JSON",
			input: `{"username":"crate-digger","password":"p\"w","token": "abc"}`,
			want:  `{"username":"crate-digger","password": "***","token": "***"}`,
		},
		{
			name:  "custom regexp",
			input: "<request><apiKey>0a1b2c</apiKey></request>",
			want:  "<request><apiKey>***</apiKey></request>",
		},
		{
			name:  "regexps of absent fields are not run",
			input: "charged sk_live_9f8e7d",
			want:  "charged sk_live_9f8e7d",
		},
		{
			name:  "field name is matched case-insensitively",
			input: "STRIPE charged sk_live_9f8e7d",
			want:  "STRIPE charged sk_live_***",
		},
		{
			name:  "rule without field is always applied",
			input: "card pin=1234 accepted",
			want:  "card pin=**** accepted",
		},
		{
			name:  "several fields",
			input: "POST /oauth?client_secret=s1&refresh_token=r2\r\nAuthorization: Bearer t3\r\n",
			want:  "POST /oauth?client_secret=***&refresh_token=***\r\nAuthorization: ***\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, masker.Mask(tt.input))
		})
	}
}

func TestNewMasker_InvalidRegExp(t *testing.T) {
	require.Panics(t, func() {
		NewMasker([]MaskingRuleConfig{{Field: "secret", Masks: []MaskConfig{{RegExp: "(", Mask: "***"}}}})
	})
}

func TestMasker_RulesWithSameField(t *testing.T) {
	masker := NewMasker([]MaskingRuleConfig{
		{Field: "Token", Formats: []FieldMaskFormat{FieldMaskFormatURLEncoded}},
		{Field: "token", Masks: []MaskConfig{{RegExp: `Discogs \w+`, Mask: "Discogs ***"}}},
	})
	require.Equal(t, "Token=*** Discogs ***", masker.Mask("token=abc Discogs def"))
	require.Equal(t, "no secrets here", masker.Mask("no secrets here"))
	require.Equal(t, "plain", NewMasker(nil).Mask("plain"))
}
