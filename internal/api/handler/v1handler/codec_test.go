package v1handler_test

import (
	"testing"
	"time"

	"userapi/internal/api/handler/v1handler"
	"userapi/pkg/domain"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/require"
)

func TestDecodeUser(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    domain.User
		wantErr bool
	}{
		{
			name:  "string account number",
			input: `{"name":"Ada","account":{"number":"123","agency":"0001"}}`,
			want:  domain.User{Name: "Ada", Account: domain.Account{Number: "123", Agency: "0001"}},
		},
		{
			name:  "numeric account number",
			input: `{"account":{"number":123456}}`,
			want:  domain.User{Account: domain.Account{Number: "123456"}},
		},
		{
			name:  "server fields and unknown fields are ignored",
			input: `{"id":9,"createdAt":"2020-01-01T00:00:00Z","extra":[1,{"a":2}],"account":{"id":4,"number":"1"}}`,
			want:  domain.User{Account: domain.Account{Number: "1"}},
		},
		{
			name:  "nulls",
			input: `{"name":null,"account":{"number":null,"agency":null}}`,
			want:  domain.User{},
		},
		{name: "null account", input: `{"account":null}`, want: domain.User{}},
		{name: "empty object", input: `{}`, want: domain.User{}},
		{name: "fractional account number", input: `{"account":{"number":1.5}}`, wantErr: true},
		{name: "wrong type", input: `{"name":1}`, wantErr: true},
		{name: "not an object", input: `[]`, wantErr: true},
		{name: "truncated", input: `{"account":{"number":"1"`, wantErr: true},
		{name: "empty", input: ``, wantErr: true},
		{name: "trailing value", input: `{"account":{"number":"1"}} {}`, wantErr: true},
		{
			name:  "trailing whitespace",
			input: "{\"account\":{\"number\":\"1\"}}\n\t ",
			want:  domain.User{Account: domain.Account{Number: "1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v1handler.DecodeUser(jx.DecodeStr(tt.input))
			if tt.wantErr {
				require.Error(t, err)

				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeUser(t *testing.T) {
	var e jx.Encoder
	v1handler.EncodeUser(&e, &domain.User{
		ID:        1,
		Name:      "Ada",
		Account:   domain.Account{ID: 2, Number: "123"},
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	require.JSONEq(t,
		`{"id":1,"name":"Ada","account":{"id":2,"number":"123","agency":null},"createdAt":"2025-01-02T03:04:05Z"}`,
		e.String())
}
