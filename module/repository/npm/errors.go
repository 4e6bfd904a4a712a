package npm

import "errors"

var errInvalidUTF8 = errors.New("body is not valid UTF-8")
