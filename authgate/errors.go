package authgate

import "github.com/climbbox/boxhub/errors"

var errForbidden = errors.New("token does not authorize this box")
