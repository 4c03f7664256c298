package session

import "errors"

var ErrManagerClosed = errors.New("session manager is closed")
