package handlers

import "fmt"

func errInvalidID(field string) error {
	return fmt.Errorf("%s must be a UUID", field)
}
