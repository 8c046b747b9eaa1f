package model

import (
	"fmt"
	"net/url"
)

// Validate checks that the registration names a notification and an absolute http(s) destination.
func (r *CallbackRegistration) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRegistration)
	}

	if r.DestinationURL == "" {
		return fmt.Errorf("%w: destinationUrl is required", ErrInvalidRegistration)
	}

	u, err := url.Parse(r.DestinationURL)
	if err != nil {
		return fmt.Errorf("%w: destinationUrl: %v", ErrInvalidRegistration, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: destinationUrl must be an absolute http or https URL", ErrInvalidRegistration)
	}

	return nil
}
