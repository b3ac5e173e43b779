package notify

import (
	"errors"
	"net/url"
)

func unwrapURLError(err error) error {
	var uErr *url.Error
	if errors.As(err, &uErr) {
		return uErr.Err
	}
	return err
}
