package v1handler

import (
	"time"

	"userapi/pkg/domain"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// EncodeUser writes u as the v1 JSON user object.
func EncodeUser(e *jx.Encoder, u *domain.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(int64(u.ID))
	e.FieldStart("name")
	optStr(e, u.Name)
	e.FieldStart("account")
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(int64(u.Account.ID))
	e.FieldStart("number")
	e.Str(u.Account.Number)
	e.FieldStart("agency")
	optStr(e, u.Account.Agency)
	e.ObjEnd()
	if !u.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		e.Str(u.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	e.ObjEnd()
}

func optStr(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()

		return
	}
	e.Str(s)
}

// DecodeUser reads a v1 JSON user object. Server assigned fields (ids,
// createdAt) are accepted and ignored. The account number may be sent as a
// string or as an integer. Nothing but whitespace may follow the object.
func DecodeUser(d *jx.Decoder) (domain.User, error) {
	var u domain.User
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			s, err := decodeOptStr(d)
			if err != nil {
				return errors.Wrap(err, "decode field \"name\"")
			}
			u.Name = s
		case "account":
			if err := decodeAccount(d, &u.Account); err != nil {
				return errors.Wrap(err, "decode field \"account\"")
			}
		default:
			if err := d.Skip(); err != nil {
				return errors.Wrapf(err, "skip field %q", key)
			}
		}

		return nil
	}); err != nil {
		return domain.User{}, errors.Wrap(err, "decode user")
	}
	if tt := d.Next(); tt != jx.Invalid {
		return domain.User{}, errors.Errorf("unexpected %v after user object", tt)
	}

	return u, nil
}

func decodeAccount(d *jx.Decoder, a *domain.Account) error {
	if d.Next() == jx.Null {
		return d.Null()
	}

	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "number":
			n, err := decodeAccountNumber(d)
			if err != nil {
				return errors.Wrap(err, "decode field \"number\"")
			}
			a.Number = n
		case "agency":
			s, err := decodeOptStr(d)
			if err != nil {
				return errors.Wrap(err, "decode field \"agency\"")
			}
			a.Agency = s
		default:
			if err := d.Skip(); err != nil {
				return errors.Wrapf(err, "skip field %q", key)
			}
		}

		return nil
	})
}

func decodeAccountNumber(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Number:
		num, err := d.Num()
		if err != nil {
			return "", err //nolint: wrapcheck
		}
		if !num.IsInt() {
			return "", errors.Errorf("account number %s is not an integer", num)
		}

		return num.String(), nil
	case jx.Null:
		return "", d.Null()
	default:
		return d.Str() //nolint: wrapcheck
	}
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}

	return d.Str() //nolint: wrapcheck
}
